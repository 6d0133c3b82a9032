package domain

import "time"

const ProviderName = "Umami"

// SummaryDocument is everything rendered and delivered for a single day.
type SummaryDocument struct {
	Provider         string
	Website          WebsiteInfo
	Metrics          BasicMetrics
	Window           TimeWindow
	Funnels          []FunnelResult
	AvailableReports []string
}

// TimeWindow is the half-open [LocalStart, LocalEnd) day in Timezone.
type TimeWindow struct {
	Day        string
	Timezone   string
	LocalStart time.Time
	LocalEnd   time.Time
}

func (w TimeWindow) StartUTC() time.Time { return w.LocalStart.UTC() }
func (w TimeWindow) EndUTC() time.Time   { return w.LocalEnd.UTC() }

func (w TimeWindow) StartMillis() int64 { return w.LocalStart.UnixMilli() }
func (w TimeWindow) EndMillis() int64   { return w.LocalEnd.UnixMilli() }

func (w TimeWindow) StartISO() string { return FormatISO(w.LocalStart) }
func (w TimeWindow) EndISO() string   { return FormatISO(w.LocalEnd) }

// FormatISO renders t as ISO-8601 UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
