package http

import (
	"net/http"

	"ledger/internal/connections"
)

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request, userID string) {
	conns, err := s.directory.Fetch(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := connectionsResponse{UserID: userID, Connections: conns}
	if partner, ok := connections.ActivePartner(conns); ok {
		resp.Partner = partner
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAddConnection answers with the same messages the directory uses, so
// clients can show them as is.
func (s *Server) handleAddConnection(w http.ResponseWriter, r *http.Request, userID string) {
	var req connectionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	outcome, err := s.directory.Add(r.Context(), userID, sanitizeInput(req.TargetID))
	msg := connections.AddMessage(outcome, err)
	if err != nil {
		status, _ := statusFor(err)
		s.writeErrorMessage(w, r, status, msg, err)
		return
	}

	status := http.StatusCreated
	if outcome == connections.OutcomeAlreadyConnected {
		status = http.StatusOK
	}
	writeJSON(w, status, messageResponse{Outcome: outcome.String(), Message: msg})
}

func (s *Server) handleRemoveConnection(w http.ResponseWriter, r *http.Request, userID string) {
	err := s.directory.Remove(r.Context(), userID, r.PathValue("id"))
	msg := connections.RemoveMessage(err)
	if err != nil {
		status, _ := statusFor(err)
		s.writeErrorMessage(w, r, status, msg, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}
