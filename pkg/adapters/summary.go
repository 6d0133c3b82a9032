package adapters

import (
	"fmt"
	"math"
	"time"

	"github.com/de-tools/umami-digest/pkg/models/api"
	"github.com/de-tools/umami-digest/pkg/models/domain"
)

func MapDomainSummaryToAPI(doc *domain.SummaryDocument) api.Summary {
	avg := doc.Metrics.AverageVisitSeconds()

	funnels := make([]api.Funnel, 0, len(doc.Funnels))
	for _, f := range doc.Funnels {
		funnels = append(funnels, MapDomainFunnelToAPI(f))
	}

	available := make([]string, 0, len(doc.AvailableReports))
	available = append(available, doc.AvailableReports...)

	return api.Summary{
		Source: doc.Provider,
		Website: api.Website{
			ID:     doc.Website.ID,
			Name:   doc.Website.Name,
			Domain: doc.Website.Domain,
		},
		Date:     doc.Window.Day,
		Timezone: doc.Window.Timezone,
		TimeRange: api.TimeRange{
			LocalStart: doc.Window.LocalStart.Format(time.RFC3339),
			LocalEnd:   doc.Window.LocalEnd.Format(time.RFC3339),
			UTCStart:   doc.Window.StartISO(),
			UTCEnd:     doc.Window.EndISO(),
			StartAtMs:  doc.Window.StartMillis(),
			EndAtMs:    doc.Window.EndMillis(),
		},
		BasicData: api.BasicData{
			Visitors:             doc.Metrics.Visitors,
			Visits:               doc.Metrics.Visits,
			PageViews:            doc.Metrics.PageViews,
			Bounces:              doc.Metrics.Bounces,
			VisitDurationSeconds: round2(avg),
			VisitDuration:        FormatDuration(avg),
			TotalTimeSeconds:     round2(doc.Metrics.TotalTimeSeconds),
		},
		FunnelData:       funnels,
		AvailableFunnels: available,
	}
}

func MapDomainFunnelToAPI(f domain.FunnelResult) api.Funnel {
	steps := make([]api.FunnelStep, 0, len(f.Steps))
	for _, s := range f.Steps {
		steps = append(steps, api.FunnelStep{
			StepIndex:        s.Index,
			StepType:         s.Type,
			StepValue:        s.Value,
			Visitors:         s.Visitors,
			Dropped:          s.Dropped,
			RateFromPrevious: s.RateFromPrevious,
			RateFromFirst:    s.RateFromFirst,
		})
	}

	return api.Funnel{
		RequestedName:     f.DesiredName,
		DisplayName:       f.DisplayName,
		LookupName:        f.LookupName,
		MatchMethod:       string(f.Method),
		MatchedReportName: f.ReportName,
		ReportID:          f.ReportID,
		Status:            string(f.Status),
		Note:              f.Note,
		StartVisitors:     f.StartVisitors,
		FinalVisitors:     f.FinalVisitors,
		ConversionRate:    f.ConversionRate,
		Steps:             steps,
	}
}

func MapDomainReportRefToAPI(ref domain.FunnelReportRef) api.FunnelReport {
	return api.FunnelReport{
		ID:        ref.ID,
		Name:      ref.Name,
		StepCount: ref.StepCount(),
		Window:    ref.Window,
	}
}

// FormatDuration renders seconds as "Hh Mm Ss", rounded to whole seconds.
func FormatDuration(seconds float64) string {
	total := int64(math.Round(seconds))
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total%3600)/60, total%60)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
