package domain

type WebsiteInfo struct {
	ID     string
	Name   string
	Domain string
}

type BasicMetrics struct {
	Visitors         int64
	Visits           int64
	PageViews        int64
	Bounces          int64
	TotalTimeSeconds float64
}

// AverageVisitSeconds is total time spread over visits; zero without visits.
func (m BasicMetrics) AverageVisitSeconds() float64 {
	if m.Visits <= 0 {
		return 0
	}
	return m.TotalTimeSeconds / float64(m.Visits)
}
