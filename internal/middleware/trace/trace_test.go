package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if !strings.HasPrefix(a, "req_") || len(a) != len("req_")+16 {
		t.Errorf("unexpected id format %q", a)
	}
	if a == b {
		t.Error("ids should be unique")
	}
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"no incoming id", "", false},
		{"well formed incoming id", "abc-123_X", true},
		{"incoming id with spaces", "abc 123", false},
		{"oversized incoming id", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMiddleware()
			var seen string
			h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = FromRequest(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if seen == "" {
				t.Fatal("handler saw no request id")
			}
			if rr.Header().Get(HeaderRequestID) != seen {
				t.Errorf("response id %q != context id %q", rr.Header().Get(HeaderRequestID), seen)
			}
			if tt.keep && seen != tt.incoming {
				t.Errorf("id = %q, want incoming %q", seen, tt.incoming)
			}
			if !tt.keep && !strings.HasPrefix(seen, "req_") {
				t.Errorf("id = %q, want generated id", seen)
			}
			if m.TotalRequests() != 1 {
				t.Errorf("TotalRequests = %d, want 1", m.TotalRequests())
			}
		})
	}
}

func TestGetRequestIDWithoutValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := FromRequest(req); got != "" {
		t.Errorf("FromRequest() = %q, want empty", got)
	}
}
