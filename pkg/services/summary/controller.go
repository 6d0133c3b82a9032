package summary

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/umami-digest/pkg/models/domain"
	"github.com/de-tools/umami-digest/pkg/services/funnel"
	"github.com/rs/zerolog"
)

// AnalyticsClient is the subset of the Umami API the summary needs.
type AnalyticsClient interface {
	GetWebsite(ctx context.Context, websiteID string) (*domain.WebsiteInfo, error)
	GetStats(ctx context.Context, websiteID string, window domain.TimeWindow) (*domain.BasicMetrics, error)
	ListFunnelReports(ctx context.Context, websiteID string) ([]domain.FunnelReportRef, error)
	RunFunnel(
		ctx context.Context,
		websiteID string,
		ref domain.FunnelReportRef,
		window domain.TimeWindow,
	) ([]domain.FunnelStep, error)
}

type Request struct {
	WebsiteID   string
	Window      domain.TimeWindow
	FunnelNames []string
	Overrides   map[string]string
	Labels      map[string]string
}

type Controller struct {
	client AnalyticsClient
}

func NewController(client AnalyticsClient) *Controller {
	return &Controller{client: client}
}

// Build runs the whole pipeline sequentially. Website, stats and report listing failures are
// fatal; a failing funnel only marks its own entry.
func (c *Controller) Build(ctx context.Context, req Request) (*domain.SummaryDocument, error) {
	logger := zerolog.Ctx(ctx).With().Str("website", req.WebsiteID).Str("day", req.Window.Day).Logger()

	website, err := c.client.GetWebsite(ctx, req.WebsiteID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch website: %w", err)
	}

	metrics, err := c.client.GetStats(ctx, req.WebsiteID, req.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch basic stats: %w", err)
	}

	reports, err := c.client.ListFunnelReports(ctx, req.WebsiteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list funnel reports: %w", err)
	}

	available := make([]string, 0, len(reports))
	for _, r := range reports {
		if r.Name != "" {
			available = append(available, r.Name)
		}
	}

	matches := funnel.Resolve(req.FunnelNames, reports, req.Overrides)
	results := make([]domain.FunnelResult, 0, len(matches))
	for _, m := range matches {
		result := c.runMatch(ctx, req, m)
		logger.Info().
			Str("funnel", result.DesiredName).
			Str("status", string(result.Status)).
			Str("method", string(result.Method)).
			Str("report", result.ReportName).
			Msg("funnel processed")
		results = append(results, result)
	}

	return &domain.SummaryDocument{
		Provider:         domain.ProviderName,
		Website:          *website,
		Metrics:          *metrics,
		Window:           req.Window,
		Funnels:          results,
		AvailableReports: available,
	}, nil
}

func (c *Controller) runMatch(ctx context.Context, req Request, m funnel.Match) domain.FunnelResult {
	result := domain.FunnelResult{
		DesiredName: m.Desired,
		DisplayName: m.Desired,
		LookupName:  m.Lookup,
		Method:      m.Method,
	}
	if label, ok := req.Labels[m.Desired]; ok && label != "" {
		result.DisplayName = label
	}

	if !m.Resolved() {
		result.Status = domain.FunnelStatusNotFound
		result.Note = "no matching funnel report found"
		return result
	}

	result.ReportID = m.Report.ID
	result.ReportName = m.Report.Name

	if !m.Report.HasSteps() {
		result.Status = domain.FunnelStatusInvalidReport
		result.Note = "report parameters have no steps"
		if m.Report.ParamsError != "" {
			result.Note = "report parameters could not be parsed: " + m.Report.ParamsError
		}
		return result
	}

	steps, err := c.client.RunFunnel(ctx, req.WebsiteID, *m.Report, req.Window)
	if err != nil {
		result.Status = domain.FunnelStatusError
		result.Note = errorNote(err)
		return result
	}

	result.Status = domain.FunnelStatusOK
	result.Steps = ComputeRates(steps)
	if len(result.Steps) > 0 {
		result.StartVisitors = result.Steps[0].Visitors
		result.FinalVisitors = result.Steps[len(result.Steps)-1].Visitors
	}
	result.ConversionRate = ratio(result.FinalVisitors, result.StartVisitors)
	return result
}

// ComputeRates fills the per-step rates. Rates are nil when the denominator is zero.
func ComputeRates(steps []domain.FunnelStep) []domain.FunnelStep {
	out := make([]domain.FunnelStep, len(steps))
	copy(out, steps)
	for i := range out {
		if i > 0 {
			out[i].RateFromPrevious = ratio(out[i].Visitors, out[i-1].Visitors)
		}
		out[i].RateFromFirst = ratio(out[i].Visitors, out[0].Visitors)
	}
	return out
}

func ratio(num, den int64) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}

func errorNote(err error) string {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		if apiErr.Body == "" {
			return fmt.Sprintf("request failed: HTTP %d", apiErr.Status)
		}
		return fmt.Sprintf("request failed: HTTP %d: %s", apiErr.Status, apiErr.Body)
	}
	return "request failed: " + err.Error()
}
