package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledgerlens/internal/cashback"
	"ledgerlens/internal/core"
	"ledgerlens/internal/ledger"
	"ledgerlens/internal/log"
	"ledgerlens/internal/report"
	"ledgerlens/internal/savings"
)

// SavingsView is the body of a savings response.
type SavingsView struct {
	Month   string  `json:"month"`
	Limit   int     `json:"limit"`
	Savings float64 `json:"savings"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	params, err := ParseReportParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.source.Load(ctx, ledger.Bounds{})
	if err != nil {
		logger.LogError(ctx, "Failed to load ledger", err, log.OpLoad,
			log.NewFields().WithReport(string(kind), params.Reference, params.Range))
		txs = nil
	}

	out, err := s.builder.BuildReport(ctx, kind, params.Reference, txs, params.Range)
	if err != nil {
		fields := log.NewFields().WithReport(string(kind), params.Reference, params.Range)
		switch {
		case errors.Is(err, report.ErrNoData):
			logger.WarnContext(ctx, "Report requested without ledger data", fields.ToSlice()...)
			writeError(w, http.StatusNotFound, report.MsgNoData)
		default:
			logger.LogError(ctx, "Report build failed", err, log.OpBuild, fields)
			writeError(w, http.StatusInternalServerError, report.MsgProcessingError)
		}
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCashback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := s.source.Load(ctx, ledger.Bounds{})
	if err != nil {
		logger.LogError(ctx, "Failed to load ledger", err, log.OpLoad, log.NewFields())
		writeError(w, http.StatusServiceUnavailable, report.MsgNoData)
		return
	}

	analysis, err := cashback.Analyze(txs, params.Year, params.Month)
	if err != nil {
		var dateErr *core.DateParseError
		if errors.As(err, &dateErr) {
			logger.WarnContext(ctx, "Ledger contains a malformed date",
				slog.String("raw_date", dateErr.Raw), slog.Int(log.FieldYear, params.Year), slog.Int(log.FieldMonth, params.Month))
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		logger.LogError(ctx, "Cashback analysis failed", err, log.OpAnalyze, log.NewFields())
		writeError(w, http.StatusInternalServerError, report.MsgProcessingError)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	params, err := ParseSavingsParams(r.URL.Query(), s.now(), s.savingsLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := s.source.Load(ctx, ledger.Bounds{})
	if err != nil {
		logger.LogError(ctx, "Failed to load ledger", err, log.OpLoad, log.NewFields())
		writeError(w, http.StatusServiceUnavailable, report.MsgNoData)
		return
	}

	total, err := savings.Compute(txs, params.Month, params.Limit, savings.WithLogger(logger.Slog()))
	if err != nil {
		if errors.Is(err, savings.ErrInvalidMonth) || errors.Is(err, savings.ErrInvalidLimit) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.LogError(ctx, "Savings computation failed", err, log.OpAnalyze, log.NewFields())
		writeError(w, http.StatusInternalServerError, report.MsgProcessingError)
		return
	}
	writeJSON(w, http.StatusOK, SavingsView{
		Month:   params.Month,
		Limit:   params.Limit,
		Savings: core.RoundCents(total).InexactFloat64(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := report.Encode(v)
	if err != nil {
		slog.Error("Failed to encode response", log.FieldError, err)
		status = http.StatusInternalServerError
		body = report.ErrorDocument(report.MsgProcessingError)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(report.ErrorDocument(msg))
}
