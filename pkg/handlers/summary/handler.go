package summary

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/de-tools/umami-digest/pkg/adapters"
	"github.com/de-tools/umami-digest/pkg/models/api"
	"github.com/de-tools/umami-digest/pkg/models/domain"
	"github.com/de-tools/umami-digest/pkg/runtime/terminal/export"
	"github.com/de-tools/umami-digest/pkg/services/summary"
	"github.com/rs/zerolog"
)

type Handler struct {
	svc summary.Service
}

func NewHandler(svc summary.Service) *Handler {
	return &Handler{svc: svc}
}

// GetSummary renders the summary for ?date= (default yesterday) as ?format=json|markdown.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	format, ok := parseFormat(r.URL.Query().Get("format"))
	if !ok {
		http.Error(w, "invalid 'format'. Expected one of: json, markdown", http.StatusBadRequest)
		return
	}

	doc, err := h.svc.Summary(ctx, strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := export.Render(doc, format)
	if err != nil {
		logger.Error().Err(err).Msg("failed to render summary")
		http.Error(w, "failed to render summary", http.StatusInternalServerError)
		return
	}

	if format == export.FormatJSON {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}
	if _, err := w.Write(out); err != nil {
		logger.Error().Err(err).Msg("failed to write summary")
	}
}

func (h *Handler) ListFunnels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	reports, err := h.svc.FunnelReports(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]api.FunnelReport, 0, len(reports))
	for _, ref := range reports {
		response = append(response, adapters.MapDomainReportRefToAPI(ref))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode funnel reports")
	}
}

func parseFormat(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", export.FormatJSON:
		return export.FormatJSON, true
	case export.FormatMarkdown, "md":
		return export.FormatMarkdown, true
	default:
		return "", false
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		cfgErr *domain.ConfigError
		apiErr *domain.APIError
	)
	switch {
	case errors.As(err, &cfgErr):
		http.Error(w, cfgErr.Error(), http.StatusBadRequest)
	case errors.As(err, &apiErr):
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("upstream request failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("summary request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
