package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/umami-digest/pkg/models/domain"
	"github.com/de-tools/umami-digest/pkg/services/config"
	"github.com/de-tools/umami-digest/pkg/services/timewindow"
)

// Service runs the daily summary for one configured website.
type Service interface {
	Summary(ctx context.Context, day string) (*domain.SummaryDocument, error)
	FunnelReports(ctx context.Context) ([]domain.FunnelReportRef, error)
}

type service struct {
	settings   *config.Settings
	client     AnalyticsClient
	controller *Controller
	now        func() time.Time
}

func NewService(settings *config.Settings, client AnalyticsClient, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{
		settings:   settings,
		client:     client,
		controller: NewController(client),
		now:        now,
	}
}

// Summary builds the document for day, falling back to the configured date when day is empty.
func (s *service) Summary(ctx context.Context, day string) (*domain.SummaryDocument, error) {
	if day == "" {
		day = s.settings.Date
	}
	window, err := timewindow.Compute(s.settings.Timezone, day, s.now())
	if err != nil {
		return nil, err
	}

	return s.controller.Build(ctx, Request{
		WebsiteID:   s.settings.WebsiteID,
		Window:      window,
		FunnelNames: s.settings.FunnelNames,
		Overrides:   s.settings.ReportMap,
		Labels:      s.settings.FunnelLabels,
	})
}

func (s *service) FunnelReports(ctx context.Context) ([]domain.FunnelReportRef, error) {
	reports, err := s.client.ListFunnelReports(ctx, s.settings.WebsiteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list funnel reports: %w", err)
	}
	return reports, nil
}
