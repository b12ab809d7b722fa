package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"truckbooks/internal/artifact"
	"truckbooks/internal/report"
)

// parseMonthQuery reads a required month=YYYY-MM parameter.
func parseMonthQuery(r *http.Request) (year, month int, err error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	parts := strings.SplitN(v, "-", 2)
	if len(parts) != 2 {
		return 0, 0, errors.New("month must be YYYY-MM")
	}
	year, yerr := strconv.Atoi(parts[0])
	month, merr := strconv.Atoi(parts[1])
	if yerr != nil || merr != nil || year < 1 || month < 1 || month > 12 {
		return 0, 0, errors.New("month must be YYYY-MM")
	}
	return year, month, nil
}

func (s *Server) reportResult(w http.ResponseWriter, r *http.Request, filename string, err error) {
	switch {
	case errors.Is(err, report.ErrNoData):
		writeError(w, http.StatusNotFound, "no data for this selection")
	case err != nil:
		slog.ErrorContext(r.Context(), "Report generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "report generation failed")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"filename": filename})
	}
}

// handleMonthlyReport builds the monthly statement. truck_id=0 (or
// absent) produces the all-trucks report with one section per truck.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	year, month, err := parseMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	truckID, err := parseIDQuery(r, "truck_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var filename string
	if truckID == 0 {
		filename, err = s.generator.MonthlyAllTrucks(r.Context(), year, month)
	} else {
		filename, err = s.generator.MonthlyTruck(r.Context(), year, month, truckID)
	}
	s.reportResult(w, r, filename, err)
}

func (s *Server) handleDriverPayReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	driverID, err := parseIDQuery(r, "driver_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
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

	filename, err := s.generator.DriverPay(r.Context(), driverID, from, to)
	s.reportResult(w, r, filename, err)
}

func (s *Server) handleHSTReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	filename, err := s.generator.HST(r.Context())
	s.reportResult(w, r, filename, err)
}

// handleDownload streams a previously generated artifact. Requests
// that try to step outside the reports directory get the same 404 as
// a missing file.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := r.URL.Query().Get("f")
	path, err := s.artifacts.Resolve(name)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		slog.ErrorContext(r.Context(), "Artifact resolve failed", "error", err)
		writeError(w, http.StatusInternalServerError, "download failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}
