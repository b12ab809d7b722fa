package http

import (
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"truckbooks/internal/core"
	"truckbooks/internal/ledger"
)

type entryPayload struct {
	EntryDate   string `json:"entry_date"`
	IsIncome    bool   `json:"is_income"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	HSTIncluded bool   `json:"hst_included"`
	Description string `json:"description"`
	TruckID     int64  `json:"truck_id"`
	DriverID    int64  `json:"driver_id"`
}

type entryResponse struct {
	ID          int64  `json:"id"`
	EntryDate   string `json:"entry_date"`
	IsIncome    bool   `json:"is_income"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	HSTIncluded bool   `json:"hst_included"`
	Description string `json:"description"`
	TruckID     int64  `json:"truck_id"`
	TruckName   string `json:"truck_name"`
	DriverID    int64  `json:"driver_id"`
	DriverName  string `json:"driver_name"`
}

func toEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		EntryDate:   e.Date.String(),
		IsIncome:    e.IsIncome,
		Category:    e.Category,
		Amount:      e.Amount.Format(),
		AmountCents: e.Amount.Cents,
		HSTIncluded: e.HSTIncluded,
		Description: e.Description,
		TruckID:     e.TruckID,
		TruckName:   e.DisplayTruck(),
		DriverID:    e.DriverID,
		DriverName:  e.DisplayDriver(),
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	truckID, err := parseIDQuery(r, "truck_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := fmt.Sprintf("%s|%s|%d", from, to, truckID)
	sum, ok := s.summaries.Get(key)
	if !ok {
		var err error
		sum, err = s.engine.Totals(r.Context(), ledger.Filter{From: from, To: to, TruckID: truckID})
		if err != nil {
			slog.ErrorContext(r.Context(), "Summary failed", "error", err)
			writeError(w, http.StatusInternalServerError, "ledger store unavailable")
			return
		}
		s.summaries.Set(key, sum)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"income":        sum.Income.Format(),
		"expense":       sum.Expense.Format(),
		"profit":        sum.Profit.Format(),
		"income_cents":  sum.Income.Cents,
		"expense_cents": sum.Expense.Cents,
		"profit_cents":  sum.Profit.Cents,
	})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listEntries(w, r)
	case http.MethodPost:
		s.createEntry(w, r)
	case http.MethodPut:
		s.updateEntry(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	truckID, err := parseIDQuery(r, "truck_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := s.repo.ListEntries(r.Context(), from, to, truckID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List entries failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ledger store unavailable")
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// entryFromPayload parses the textual date and amount fields, collecting
// field errors instead of stopping at the first one.
func entryFromPayload(payload entryPayload) (core.Entry, core.ValidationErrors) {
	var errs core.ValidationErrors
	date, err := core.ParseDate(payload.EntryDate)
	if err != nil {
		errs = append(errs, core.FieldError{Field: "entry_date", Message: "date must be YYYY-MM-DD"})
	}
	cents, err := core.ParseDecimalToCents(payload.Amount)
	if err != nil {
		errs = append(errs, core.FieldError{Field: "amount", Message: "amount must be a positive decimal"})
	}
	if len(errs) > 0 {
		return core.Entry{}, errs
	}
	return core.Entry{
		Date:        date,
		IsIncome:    payload.IsIncome,
		Category:    payload.Category,
		Amount:      core.Money{Cents: cents},
		HSTIncluded: payload.HSTIncluded,
		Description: payload.Description,
		TruckID:     payload.TruckID,
		DriverID:    payload.DriverID,
	}, nil
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var payload entryPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, errs := entryFromPayload(payload)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}

	created, err := s.repo.CreateEntry(r.Context(), entry)
	if err != nil {
		var verrs core.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": verrs})
			return
		}
		slog.ErrorContext(r.Context(), "Create entry failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ledger store unavailable")
		return
	}

	s.summaries.Clear()
	writeJSON(w, http.StatusCreated, toEntryResponse(created))
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID int64 `json:"id"`
		entryPayload
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	entry, errs := entryFromPayload(payload.entryPayload)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
		return
	}
	entry.ID = payload.ID

	if err := s.repo.UpdateEntry(r.Context(), entry); err != nil {
		var verrs core.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": verrs})
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "entry not found")
		default:
			slog.ErrorContext(r.Context(), "Update entry failed", "id", payload.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "ledger store unavailable")
		}
		return
	}

	s.summaries.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteEntry removes a ledger entry; the configured delete
// password gates destructive edits. An empty configured password
// disables deletion entirely.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		ID       int64  `json:"id"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if s.cfg.DeletePassword == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.DeletePassword)) != 1 {
		writeError(w, http.StatusForbidden, "invalid delete password")
		return
	}

	if err := s.repo.DeleteEntry(r.Context(), req.ID); err != nil {
		slog.ErrorContext(r.Context(), "Delete entry failed", "id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "ledger store unavailable")
		return
	}
	s.summaries.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTrucks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		trucks, err := s.repo.ListTrucks(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "List trucks failed", "error", err)
			writeError(w, http.StatusInternalServerError, "ledger store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"trucks": trucks})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		truck, err := s.repo.CreateTruck(r.Context(), req.Name)
		if err != nil {
			if isConstraint(err) {
				writeError(w, http.StatusConflict, "truck name already exists")
				return
			}
			writeValidationErrors(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, truck)
	case http.MethodDelete:
		id, err := parseIDQuery(r, "id")
		if err != nil || id == 0 {
			writeError(w, http.StatusBadRequest, "id must be a positive integer")
			return
		}
		if err := s.repo.DeleteTruck(r.Context(), id); err != nil {
			slog.ErrorContext(r.Context(), "Delete truck failed", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "ledger store unavailable")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleDrivers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		drivers, err := s.repo.ListDrivers(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "List drivers failed", "error", err)
			writeError(w, http.StatusInternalServerError, "ledger store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"drivers": drivers})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		driver, err := s.repo.CreateDriver(r.Context(), req.Name)
		if err != nil {
			if isConstraint(err) {
				writeError(w, http.StatusConflict, "driver name already exists")
				return
			}
			writeValidationErrors(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, driver)
	case http.MethodDelete:
		id, err := parseIDQuery(r, "id")
		if err != nil || id == 0 {
			writeError(w, http.StatusBadRequest, "id must be a positive integer")
			return
		}
		if err := s.repo.DeleteDriver(r.Context(), id); err != nil {
			slog.ErrorContext(r.Context(), "Delete driver failed", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "ledger store unavailable")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// isConstraint reports whether an insert failed on the unique name
// index.
func isConstraint(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}
