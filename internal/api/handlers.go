package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/analysis"
	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/source"
	"github.com/sells-group/disclosure-cli/internal/xbrl"
)

type handlers struct {
	analyzer Analyzer
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) factTable(w http.ResponseWriter, r *http.Request) {
	p := analysis.FactTableParams{Options: analysis.DefaultFactTableOptions()}
	if err := decodeBody(w, r, &p); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.analyzer.BuildFactTable(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) timeSeries(w http.ResponseWriter, r *http.Request) {
	p := analysis.TimeSeriesParams{Options: analysis.DefaultTimeSeriesOptions()}
	if err := decodeBody(w, r, &p); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.analyzer.TimeSeriesAnalysis(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) filings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, eris.Wrapf(analysis.ErrInvalidConfig, "limit %q is not a number", s))
			return
		}
		limit = n
	}
	res, err := h.analyzer.ListFilings(r.Context(), q.Get("country"), q.Get("company_id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeBody decodes the JSON request into v, which callers pre-fill with
// defaults so omitted fields keep them.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return eris.Wrapf(analysis.ErrInvalidConfig, "invalid request body: %v", err)
	}
	return nil
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, analysis.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrNoData), errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound
	case resilience.IsAuth(err), errors.Is(err, xbrl.ErrParse):
		return http.StatusBadGateway
	case resilience.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
