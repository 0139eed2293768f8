package http

import (
	"context"
	"fmt"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

// openView opens the ledger selected by the view query parameter. The
// caller must Close the returned view.
func (s *Server) openView(ctx context.Context, r *http.Request, userID string) (*ledger.View, error) {
	which, err := ParseViewParam(r.URL.Query())
	if err != nil {
		return nil, err
	}

	v := ledger.NewView(ledger.Session{UserID: userID}, s.records,
		ledger.WithConverter(s.conv),
		ledger.WithEditPolicy(s.policy),
		ledger.WithLogger(log.FromContext(ctx)))
	if which == viewPartner {
		err = v.OpenPartner(ctx, s.directory)
	} else {
		err = v.OpenSelf(ctx)
	}
	if err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

// openWritableView opens the session user's own ledger for a mutation. A
// request aimed at the partner is refused before its body is read.
func (s *Server) openWritableView(ctx context.Context, r *http.Request, userID string) (*ledger.View, error) {
	which, err := ParseViewParam(r.URL.Query())
	if err != nil {
		return nil, err
	}
	if which == viewPartner {
		return nil, core.ErrReadOnlyView
	}
	return s.openView(ctx, r, userID)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, userID string) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.openView(r.Context(), r, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer v.Close()

	visible, err := v.Visible(filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := expenseListResponse{
		Viewing:  v.Viewing(),
		ReadOnly: !v.IsSelf(),
		Count:    len(visible),
		Expenses: make([]expenseResponse, 0, len(visible)),
	}
	for _, e := range visible {
		resp.Expenses = append(resp.Expenses, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, userID string) {
	v, err := s.openWritableView(r.Context(), r, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer v.Close()

	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := req.toNewExpense(s.conv, core.DateOf(s.now()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := v.Create(r.Context(), e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/expenses/"+id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, userID string) {
	v, err := s.openWritableView(r.Context(), r, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer v.Close()

	var req updateExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := v.Update(r.Context(), r.PathValue("id"), patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, userID string) {
	v, err := s.openWritableView(r.Context(), r, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer v.Close()

	if err := v.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, userID string) {
	window, err := ParseWindow(r.URL.Query(), s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.openView(r.Context(), r, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer v.Close()

	summary, err := v.Summary(window)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(v.Viewing(), summary))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, userID string) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.openView(r.Context(), r, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer v.Close()

	visible, err := v.Visible(filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(filter)))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteTSV(w, visible); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export write failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err.Error())
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Expenses exported",
		log.FieldOperation, log.OpExport,
		log.FieldViewing, v.Viewing(),
		log.FieldCount, len(visible))
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request, userID string) {
	var req convertRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	from, err := core.ParseCurrency(req.From)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, err := s.conv.Edit(core.AmountPair{}, from, string(req.Amount))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amountPairResponse{
		AmountPrimary:   core.FormatAmount(pair.Primary),
		AmountSecondary: core.FormatAmount(pair.Secondary),
	})
}
