package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/de-tools/umami-digest/pkg/adapters"
	"github.com/de-tools/umami-digest/pkg/models/api"
	"github.com/de-tools/umami-digest/pkg/models/domain"
)

const funnelListTemplate = `{{if not .}}No funnel reports found.
{{else}}Funnel reports ({{len .}}):
{{range .}}- {{.Name}} [{{.ID}}] {{.StepCount}} steps{{if .Window}}, window {{.Window}}m{{end}}
{{end}}{{end}}`

var funnelListTmpl = template.Must(template.New("funnels").Parse(funnelListTemplate))

// FunnelReporter lists the funnel reports stored for a website.
type FunnelReporter struct {
	writer io.Writer
	format string
}

func NewFunnelReporter(writer io.Writer, format string) *FunnelReporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &FunnelReporter{writer: writer, format: format}
}

func (r *FunnelReporter) Handle(reports []domain.FunnelReportRef) error {
	items := make([]api.FunnelReport, 0, len(reports))
	for _, ref := range reports {
		items = append(items, adapters.MapDomainReportRefToAPI(ref))
	}

	if r.format == FormatJSON {
		out, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render json: %w", err)
		}
		_, err = r.writer.Write(append(out, '\n'))
		return err
	}

	if err := funnelListTmpl.Execute(r.writer, items); err != nil {
		return fmt.Errorf("failed to render funnel list: %w", err)
	}
	return nil
}
