package api

// Summary is the JSON form of a summary document. Field order is the output key order.
type Summary struct {
	Source           string    `json:"source"`
	Website          Website   `json:"website"`
	Date             string    `json:"date"`
	Timezone         string    `json:"timezone"`
	TimeRange        TimeRange `json:"time_range"`
	BasicData        BasicData `json:"basic_data"`
	FunnelData       []Funnel  `json:"funnel_data"`
	AvailableFunnels []string  `json:"available_funnel_reports"`
}

type Website struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

type TimeRange struct {
	LocalStart string `json:"local_start"`
	LocalEnd   string `json:"local_end"`
	UTCStart   string `json:"utc_start"`
	UTCEnd     string `json:"utc_end"`
	StartAtMs  int64  `json:"start_at_ms"`
	EndAtMs    int64  `json:"end_at_ms"`
}

type BasicData struct {
	Visitors             int64   `json:"visitors"`
	Visits               int64   `json:"visits"`
	PageViews            int64   `json:"pageviews"`
	Bounces              int64   `json:"bounces"`
	VisitDurationSeconds float64 `json:"visit_duration_seconds"`
	VisitDuration        string  `json:"visit_duration"`
	TotalTimeSeconds     float64 `json:"totaltime_seconds"`
}

type Funnel struct {
	RequestedName     string       `json:"requested_name"`
	DisplayName       string       `json:"display_name"`
	LookupName        string       `json:"lookup_name"`
	MatchMethod       string       `json:"match_method,omitempty"`
	MatchedReportName string       `json:"matched_report_name,omitempty"`
	ReportID          string       `json:"report_id,omitempty"`
	Status            string       `json:"status"`
	Note              string       `json:"note,omitempty"`
	StartVisitors     int64        `json:"start_visitors"`
	FinalVisitors     int64        `json:"final_visitors"`
	ConversionRate    *float64     `json:"conversion_rate"`
	Steps             []FunnelStep `json:"steps"`
}

type FunnelStep struct {
	StepIndex        int      `json:"step_index"`
	StepType         string   `json:"step_type"`
	StepValue        string   `json:"step_value"`
	Visitors         int64    `json:"visitors"`
	Dropped          int64    `json:"dropped"`
	RateFromPrevious *float64 `json:"rate_from_previous"`
	RateFromFirst    *float64 `json:"rate_from_first"`
}

// FunnelReport is one entry of the provider's funnel report listing.
type FunnelReport struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StepCount int    `json:"step_count"`
	Window    int    `json:"window"`
}
