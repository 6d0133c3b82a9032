package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/de-tools/umami-digest/pkg/models/domain"
	"github.com/de-tools/umami-digest/pkg/services/timewindow"
	"github.com/de-tools/umami-digest/pkg/store/client"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyBaseURL       = "UMAMI_BASE_URL"
	KeyAPIKey        = "UMAMI_API_KEY"
	KeyBearerToken   = "UMAMI_BEARER_TOKEN"
	KeyWebsiteID     = "UMAMI_WEBSITE_ID"
	KeyTimezone      = "UMAMI_TIMEZONE"
	KeyUserAgent     = "UMAMI_USER_AGENT"
	KeyFunnelNames   = "UMAMI_FUNNEL_NAMES"
	KeyReportMap     = "UMAMI_FUNNEL_REPORT_MAP"
	KeyFunnelLabels  = "UMAMI_FUNNEL_LABELS"
	KeyTimeout       = "UMAMI_TIMEOUT"
	KeyProfile       = "UMAMI_PROFILE"
	KeyWebhookURL    = "FEISHU_WEBHOOK_URL"
	KeyWebhookSecret = "FEISHU_WEBHOOK_SECRET"
	KeyWebhookKind   = "WEBHOOK_KIND"

	// Flag-only keys.
	keyDate   = "date"
	keyFormat = "format"
	keyOutput = "output"
)

const (
	DefaultBaseURL     = "https://api.umami.is/v1"
	DefaultTimezone    = "UTC"
	DefaultFunnelNames = "pv -> login,pv -> purchase,guest trial,pricing"
	DefaultTimeout     = 30 * time.Second
	// Cloudflare in front of Umami Cloud rejects library user agents.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

var DefaultFunnelLabels = map[string]string{
	"pv -> login":    "登录率",
	"pv -> purchase": "付费率",
	"guest trial":    "试用率",
	"pricing":        "价格查看率",
}

var WebhookKinds = []string{"auto", "feishu", "slack", "discord", "generic"}

var envKeys = []string{
	KeyBaseURL, KeyAPIKey, KeyBearerToken, KeyWebsiteID, KeyTimezone, KeyUserAgent,
	KeyFunnelNames, KeyReportMap, KeyFunnelLabels, KeyTimeout,
	KeyWebhookURL, KeyWebhookSecret, KeyWebhookKind,
}

// FlagKeys maps CLI flag names to the settings key they override.
var FlagKeys = map[string]string{
	"base-url":        KeyBaseURL,
	"website-id":      KeyWebsiteID,
	"timezone":        KeyTimezone,
	"user-agent":      KeyUserAgent,
	"funnel-names":    KeyFunnelNames,
	"report-name-map": KeyReportMap,
	"funnel-labels":   KeyFunnelLabels,
	"timeout":         KeyTimeout,
	"webhook-url":     KeyWebhookURL,
	"webhook-kind":    KeyWebhookKind,
	"date":            keyDate,
	"format":          keyFormat,
	"output":          keyOutput,
}

type Settings struct {
	BaseURL       string
	APIKey        string
	BearerToken   string
	WebsiteID     string
	Timezone      string
	Date          string
	FunnelNames   []string
	ReportMap     map[string]string
	FunnelLabels  map[string]string
	Format        string
	OutputPath    string
	UserAgent     string
	Timeout       time.Duration
	WebhookURL    string
	WebhookSecret string
	WebhookKind   string
	Profile       string
}

// Sources lists where settings come from. Precedence, highest first:
// Flags, EnvFile, the Profile section of ProfilesFile, the process environment, defaults.
type Sources struct {
	Flags        *pflag.FlagSet
	EnvFile      string
	ProfilesFile string
	Profile      string
	LookupEnv    func(key string) (string, bool)
}

func Load(ctx context.Context, src Sources) (*Settings, error) {
	lookup := src.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	v := viper.New()
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyTimezone, DefaultTimezone)
	v.SetDefault(KeyFunnelNames, DefaultFunnelNames)
	v.SetDefault(KeyUserAgent, DefaultUserAgent)
	v.SetDefault(KeyTimeout, DefaultTimeout.String())
	v.SetDefault(KeyWebhookKind, "auto")
	v.SetDefault(keyFormat, FormatMarkdown)

	// Environment sits just above built-in defaults.
	for _, key := range envKeys {
		if val, ok := lookup(key); ok && strings.TrimSpace(val) != "" {
			v.SetDefault(key, val)
		}
	}

	profile := strings.TrimSpace(src.Profile)
	if profile == "" {
		if val, ok := lookup(KeyProfile); ok {
			profile = strings.TrimSpace(val)
		}
	}
	if profile != "" {
		values, err := loadProfile(ctx, src.ProfilesFile, profile)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(values); err != nil {
			return nil, &domain.ConfigError{Field: "profile", Msg: err.Error()}
		}
	}

	if src.EnvFile != "" {
		values, err := godotenv.Read(src.EnvFile)
		if err != nil {
			return nil, &domain.ConfigError{
				Field: "env-file",
				Msg:   fmt.Sprintf("failed to read %s: %v", src.EnvFile, err),
			}
		}
		merged := make(map[string]any, len(values))
		for k, val := range values {
			merged[k] = val
		}
		if err := v.MergeConfigMap(merged); err != nil {
			return nil, &domain.ConfigError{Field: "env-file", Msg: err.Error()}
		}
	}

	if src.Flags != nil {
		for name, key := range FlagKeys {
			if f := src.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	s := &Settings{
		BaseURL:       strings.TrimRight(strings.TrimSpace(v.GetString(KeyBaseURL)), "/"),
		APIKey:        strings.TrimSpace(v.GetString(KeyAPIKey)),
		BearerToken:   strings.TrimSpace(v.GetString(KeyBearerToken)),
		WebsiteID:     strings.TrimSpace(v.GetString(KeyWebsiteID)),
		Timezone:      strings.TrimSpace(v.GetString(KeyTimezone)),
		Date:          strings.TrimSpace(v.GetString(keyDate)),
		FunnelNames:   ParseFunnelNames(v.GetString(KeyFunnelNames)),
		Format:        strings.ToLower(strings.TrimSpace(v.GetString(keyFormat))),
		OutputPath:    strings.TrimSpace(v.GetString(keyOutput)),
		UserAgent:     strings.TrimSpace(v.GetString(KeyUserAgent)),
		WebhookURL:    strings.TrimSpace(v.GetString(KeyWebhookURL)),
		WebhookSecret: strings.TrimSpace(v.GetString(KeyWebhookSecret)),
		WebhookKind:   strings.ToLower(strings.TrimSpace(v.GetString(KeyWebhookKind))),
		Profile:       profile,
	}

	var err error
	if s.ReportMap, err = ParseNameMap(KeyReportMap, v.GetString(KeyReportMap)); err != nil {
		return nil, err
	}
	if s.FunnelLabels, err = ParseNameMap(KeyFunnelLabels, v.GetString(KeyFunnelLabels)); err != nil {
		return nil, err
	}
	if s.FunnelLabels == nil {
		s.FunnelLabels = DefaultFunnelLabels
	}
	if s.Timeout, err = parseTimeout(v.GetString(KeyTimeout)); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func loadProfile(ctx context.Context, path, profile string) (map[string]any, error) {
	if path == "" {
		path = DefaultProfilesPath()
	}
	registry, err := NewRegistry(path)
	if err != nil {
		msg := fmt.Sprintf("failed to load profiles file %s: %v", path, err)
		if errors.Is(err, fs.ErrNotExist) {
			msg = fmt.Sprintf("profiles file %s does not exist", path)
		}
		return nil, &domain.ConfigError{Field: "profile", Msg: msg}
	}
	values, err := registry.GetProfile(ctx, profile)
	if err != nil {
		return nil, &domain.ConfigError{Field: "profile", Msg: err.Error()}
	}
	return values, nil
}

// Validate checks required fields and the auth mode.
func (s *Settings) Validate() error {
	if s.BaseURL == "" {
		return &domain.ConfigError{Field: KeyBaseURL, Msg: "base URL is required"}
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &domain.ConfigError{Field: KeyBaseURL, Msg: fmt.Sprintf("invalid base URL %q", s.BaseURL)}
	}

	switch {
	case s.APIKey == "" && s.BearerToken == "":
		return &domain.ConfigError{
			Field: "auth",
			Msg:   "missing credentials, set UMAMI_API_KEY (cloud) or UMAMI_BEARER_TOKEN (self-hosted)",
		}
	case s.APIKey != "" && s.BearerToken != "":
		return &domain.ConfigError{
			Field: "auth",
			Msg:   "ambiguous credentials, set only one of UMAMI_API_KEY or UMAMI_BEARER_TOKEN",
		}
	}

	if s.WebsiteID == "" {
		return &domain.ConfigError{Field: KeyWebsiteID, Msg: "website id is required"}
	}
	if _, err := timewindow.LoadLocation(s.Timezone); err != nil {
		return err
	}

	switch s.Format {
	case FormatMarkdown, FormatJSON:
	case "md":
		s.Format = FormatMarkdown
	default:
		return &domain.ConfigError{Field: "format", Msg: fmt.Sprintf("unsupported format %q, use markdown or json", s.Format)}
	}

	if !slices.Contains(WebhookKinds, s.WebhookKind) {
		return &domain.ConfigError{
			Field: KeyWebhookKind,
			Msg:   fmt.Sprintf("unsupported webhook kind %q, use one of %s", s.WebhookKind, strings.Join(WebhookKinds, ", ")),
		}
	}
	if s.WebhookURL != "" {
		u, err := url.Parse(s.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &domain.ConfigError{Field: KeyWebhookURL, Msg: fmt.Sprintf("invalid webhook URL %q", s.WebhookURL)}
		}
	}
	return nil
}

func (s *Settings) ClientOptions() client.Options {
	return client.Options{
		BaseURL:     s.BaseURL,
		APIKey:      s.APIKey,
		BearerToken: s.BearerToken,
		UserAgent:   s.UserAgent,
		Timeout:     s.Timeout,
	}
}

// ParseFunnelNames splits a comma-separated list, dropping blanks.
func ParseFunnelNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ParseNameMap decodes a JSON object of string to string. Empty input yields a nil map.
func ParseNameMap(field, raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, &domain.ConfigError{Field: field, Msg: fmt.Sprintf("must be a JSON object: %v", err)}
	}
	if decoded == nil {
		return nil, &domain.ConfigError{Field: field, Msg: "must be a JSON object"}
	}

	out := make(map[string]string, len(decoded))
	for k, val := range decoded {
		s, ok := val.(string)
		if !ok {
			return nil, &domain.ConfigError{Field: field, Msg: fmt.Sprintf("value for %q must be a string", k)}
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(s)
	}
	return out, nil
}

func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, &domain.ConfigError{Field: KeyTimeout, Msg: fmt.Sprintf("invalid timeout %q", raw)}
	}
	return d, nil
}
