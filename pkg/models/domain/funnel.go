package domain

import "encoding/json"

const DefaultFunnelWindowMinutes = 60

// FunnelReportRef is a stored funnel report as listed by the provider.
type FunnelReportRef struct {
	ID     string
	Name   string
	Steps  json.RawMessage
	Window int
	// ParamsError is set when the stored parameters could not be decoded.
	ParamsError string
}

// HasSteps reports whether the stored definition carries a non-empty step list.
func (r FunnelReportRef) HasSteps() bool {
	var steps []json.RawMessage
	if err := json.Unmarshal(r.Steps, &steps); err != nil {
		return false
	}
	return len(steps) > 0
}

// StepCount is the number of steps in the stored definition.
func (r FunnelReportRef) StepCount() int {
	var steps []json.RawMessage
	if err := json.Unmarshal(r.Steps, &steps); err != nil {
		return 0
	}
	return len(steps)
}

// MatchMethod records how a desired name was matched to a stored report.
type MatchMethod string

const (
	MatchNone     MatchMethod = ""
	MatchOverride MatchMethod = "override"
	MatchExact    MatchMethod = "exact"
	MatchFuzzy    MatchMethod = "fuzzy"
)

// FunnelStatus is the outcome of one requested funnel.
type FunnelStatus string

const (
	FunnelStatusOK            FunnelStatus = "ok"
	FunnelStatusNotFound      FunnelStatus = "not_found"
	FunnelStatusInvalidReport FunnelStatus = "invalid_report"
	FunnelStatusError         FunnelStatus = "error"
)

// FunnelStep is one row of an executed funnel.
type FunnelStep struct {
	Index            int
	Type             string
	Value            string
	Visitors         int64
	Dropped          int64
	RateFromPrevious *float64
	RateFromFirst    *float64
}

// FunnelResult is the rendered outcome of one desired funnel name, in request order.
type FunnelResult struct {
	DesiredName    string
	DisplayName    string
	LookupName     string
	Method         MatchMethod
	ReportID       string
	ReportName     string
	Status         FunnelStatus
	Note           string
	Steps          []FunnelStep
	StartVisitors  int64
	FinalVisitors  int64
	ConversionRate *float64
}
