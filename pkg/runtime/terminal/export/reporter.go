package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/umami-digest/pkg/adapters"
	"github.com/de-tools/umami-digest/pkg/models/api"
	"github.com/de-tools/umami-digest/pkg/models/domain"
)

const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

const markdownTemplate = `# {{.Provider}} Daily Summary

- Platform: {{.Provider}}
- Website: {{website .Website}}
- Date: {{.Window.Day}} ({{.Window.Timezone}})
- Window (UTC): {{.Window.StartISO}} to {{.Window.EndISO}}

## Basic Metrics

| Metric | Value |
| --- | --- |
| Visitors | {{.Metrics.Visitors}} |
| Visits | {{.Metrics.Visits}} |
| Page views | {{.Metrics.PageViews}} |
| Bounces | {{.Metrics.Bounces}} |
| Avg visit duration | {{duration .Metrics.AverageVisitSeconds}} |

## Funnels
{{if not .Funnels}}
No funnels requested.
{{end}}{{range .Funnels}}
### {{title .}}
{{if eq .Status "ok"}}
Report: {{.ReportName}}{{if .Method}} ({{.Method}} match){{end}}

| # | Step | Visitors | From previous | From first |
| --- | --- | --- | --- | --- |
{{range .Steps}}| {{.Index}} | {{step .}} | {{.Visitors}} | {{percent .RateFromPrevious}} | {{percent .RateFromFirst}} |
{{end}}
Conversion: {{.StartVisitors}} -> {{.FinalVisitors}} ({{percent .ConversionRate}})
{{else if eq .Status "not_found"}}
Not found: no funnel report named "{{.LookupName}}".
{{else if eq .Status "invalid_report"}}
Invalid report: "{{.ReportName}}" has no steps configured.
{{else}}
Error: {{.Note}}
{{end}}{{end}}`

var funcMap = template.FuncMap{
	"website": func(w domain.WebsiteInfo) string {
		name := w.Name
		if name == "" {
			name = w.Domain
		}
		if name == "" {
			return w.ID
		}
		return fmt.Sprintf("%s (%s)", name, w.ID)
	},
	"duration": adapters.FormatDuration,
	"percent":  formatPercent,
	"title": func(f domain.FunnelResult) string {
		if f.DisplayName == "" || f.DisplayName == f.DesiredName {
			return f.DesiredName
		}
		return fmt.Sprintf("%s (%s)", f.DesiredName, f.DisplayName)
	},
	"step": func(s domain.FunnelStep) string {
		label := strings.TrimSpace(s.Value)
		if label == "" {
			label = fmt.Sprintf("step %d", s.Index)
		}
		if s.Type != "" {
			label = s.Type + ": " + label
		}
		return strings.ReplaceAll(label, "|", `\|`)
	},
}

var summaryTemplate = template.Must(template.New("summary").Funcs(funcMap).Parse(markdownTemplate))

// Reporter writes summary documents in one output format.
type Reporter struct {
	writer io.Writer
	format string
}

func NewReporter(writer io.Writer, format string) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	if format == "" {
		format = FormatMarkdown
	}
	return &Reporter{writer: writer, format: format}
}

func (r *Reporter) Handle(doc *domain.SummaryDocument) error {
	out, err := Render(doc, r.format)
	if err != nil {
		return err
	}
	_, err = r.writer.Write(out)
	return err
}

// Render produces the document bytes. The same document always renders to the same bytes.
func Render(doc *domain.SummaryDocument, format string) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		md, err := Markdown(doc)
		if err != nil {
			return nil, err
		}
		return []byte(md), nil
	case FormatJSON:
		return JSON(doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func Markdown(doc *domain.SummaryDocument) (string, error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

func JSON(doc *domain.SummaryDocument) ([]byte, error) {
	return MarshalSummary(adapters.MapDomainSummaryToAPI(doc))
}

// MarshalSummary indents with two spaces and ends with a newline.
func MarshalSummary(summary api.Summary) ([]byte, error) {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render json: %w", err)
	}
	return append(out, '\n'), nil
}

func formatPercent(rate *float64) string {
	if rate == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *rate*100)
}
