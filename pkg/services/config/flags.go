package config

import "github.com/spf13/pflag"

// RegisterFlags defines the settings flags. Defaults are empty so unset flags never shadow
// lower-precedence sources.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("base-url", "", "Umami API base URL (default "+DefaultBaseURL+")")
	fs.String("website-id", "", "Umami website id")
	fs.String("timezone", "", "IANA timezone for the day boundary (default "+DefaultTimezone+")")
	fs.String("date", "", "Day to summarize, YYYY-MM-DD, 'yesterday' or 'today' (default yesterday)")
	fs.String("funnel-names", "", "Comma-separated funnel names to report")
	fs.String("report-name-map", "", "JSON object mapping funnel names to stored report names")
	fs.String("funnel-labels", "", "JSON object mapping funnel names to display labels")
	fs.String("format", "", "Output format: markdown or json (default markdown)")
	fs.String("output", "", "Write the document to this file instead of stdout")
	fs.String("timeout", "", "HTTP timeout per request, e.g. 30s")
	fs.String("user-agent", "", "User-Agent sent to the Umami API")
	fs.String("webhook-url", "", "Chat webhook URL to deliver the document to")
	fs.String("webhook-kind", "", "Webhook envelope: auto, feishu, slack, discord or generic")
}
