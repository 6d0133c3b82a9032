package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/umami-digest/pkg/models/domain"
	"github.com/rs/zerolog"
)

const (
	APIKeyHeader = "x-umami-api-key"

	DefaultTimeout = 30 * time.Second
	reportPageSize = 100
)

type Options struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	UserAgent   string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// UmamiClient talks to the Umami REST API. Every call is a single attempt.
type UmamiClient struct {
	baseURL    string
	apiKey     string
	token      string
	userAgent  string
	httpClient *http.Client
}

func NewUmamiClient(opts Options) (*UmamiClient, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, &domain.ConfigError{Field: "base_url", Msg: "base URL is required"}
	}

	apiKey := strings.TrimSpace(opts.APIKey)
	token := strings.TrimSpace(opts.BearerToken)
	if (apiKey == "") == (token == "") {
		return nil, &domain.ConfigError{
			Field: "auth",
			Msg:   "exactly one of UMAMI_API_KEY or UMAMI_BEARER_TOKEN must be set",
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &UmamiClient{
		baseURL:    base,
		apiKey:     apiKey,
		token:      token,
		userAgent:  opts.UserAgent,
		httpClient: httpClient,
	}, nil
}

type websiteResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

func (c *UmamiClient) GetWebsite(ctx context.Context, websiteID string) (*domain.WebsiteInfo, error) {
	var resp websiteResponse
	if err := c.do(ctx, http.MethodGet, "websites/"+url.PathEscape(websiteID), nil, nil, &resp); err != nil {
		return nil, err
	}

	info := &domain.WebsiteInfo{ID: resp.ID, Name: resp.Name, Domain: resp.Domain}
	if info.ID == "" {
		info.ID = websiteID
	}
	return info, nil
}

// metricValue accepts both a bare number and the {"value": n, "prev": m} shape.
type metricValue float64

func (m *metricValue) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = 0
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*m = metricValue(n)
		return nil
	}

	var nested struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return fmt.Errorf("unexpected metric value %s", data)
	}
	if nested.Value != nil {
		*m = metricValue(*nested.Value)
	}
	return nil
}

type statsResponse struct {
	PageViews metricValue `json:"pageviews"`
	Visitors  metricValue `json:"visitors"`
	Visits    metricValue `json:"visits"`
	Bounces   metricValue `json:"bounces"`
	TotalTime metricValue `json:"totaltime"`
}

func (c *UmamiClient) GetStats(
	ctx context.Context,
	websiteID string,
	window domain.TimeWindow,
) (*domain.BasicMetrics, error) {
	query := url.Values{}
	query.Set("startAt", strconv.FormatInt(window.StartMillis(), 10))
	query.Set("endAt", strconv.FormatInt(window.EndMillis(), 10))

	var resp statsResponse
	path := "websites/" + url.PathEscape(websiteID) + "/stats"
	if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, err
	}

	return &domain.BasicMetrics{
		Visitors:         int64(resp.Visitors),
		Visits:           int64(resp.Visits),
		PageViews:        int64(resp.PageViews),
		Bounces:          int64(resp.Bounces),
		TotalTimeSeconds: float64(resp.TotalTime),
	}, nil
}

type reportParameters struct {
	Steps  json.RawMessage `json:"steps"`
	Window json.RawMessage `json:"window"`
}

type reportItem struct {
	ID         string          `json:"id"`
	ReportID   string          `json:"reportId"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Parameters json.RawMessage `json:"parameters"`
}

type reportListResponse struct {
	Data []reportItem `json:"data"`
}

func (c *UmamiClient) ListFunnelReports(ctx context.Context, websiteID string) ([]domain.FunnelReportRef, error) {
	query := url.Values{}
	query.Set("websiteId", websiteID)
	query.Set("type", "funnel")
	query.Set("page", "1")
	query.Set("pageSize", strconv.Itoa(reportPageSize))

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "reports", query, nil, &raw); err != nil {
		return nil, err
	}

	items, err := decodeReportList(raw)
	if err != nil {
		return nil, &domain.APIError{
			Method: http.MethodGet,
			URL:    c.endpoint("reports", query),
			Err:    err,
			Body:   domain.Snippet(raw),
		}
	}

	refs := make([]domain.FunnelReportRef, 0, len(items))
	for _, item := range items {
		if item.Type != "" && !strings.EqualFold(item.Type, "funnel") {
			continue
		}
		ref := mapReportItem(item)
		if ref.ParamsError != "" {
			zerolog.Ctx(ctx).Debug().
				Str("report", ref.Name).
				Str("error", ref.ParamsError).
				Msg("failed to decode report parameters")
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func decodeReportList(raw json.RawMessage) ([]reportItem, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []reportItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode report list: %w", err)
		}
		return items, nil
	}

	var resp reportListResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode report list: %w", err)
	}
	return resp.Data, nil
}

func mapReportItem(item reportItem) domain.FunnelReportRef {
	ref := domain.FunnelReportRef{ID: item.ID, Name: item.Name}
	if ref.ID == "" {
		ref.ID = item.ReportID
	}

	params, err := decodeParameters(item.Parameters)
	if err != nil {
		ref.ParamsError = err.Error()
	}
	if len(params.Steps) > 0 && !bytes.Equal(params.Steps, []byte("null")) {
		ref.Steps = params.Steps
	}

	var window float64
	if err := json.Unmarshal(params.Window, &window); err == nil && window > 0 && window == float64(int(window)) {
		ref.Window = int(window)
	}
	return ref
}

// decodeParameters handles parameters stored either as an object or as a JSON-encoded string.
func decodeParameters(raw json.RawMessage) (reportParameters, error) {
	var params reportParameters
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return params, nil
	}

	if trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return params, fmt.Errorf("invalid parameters string: %w", err)
		}
		trimmed = []byte(encoded)
	}

	if err := json.Unmarshal(trimmed, &params); err != nil {
		return reportParameters{}, fmt.Errorf("invalid parameters: %w", err)
	}
	return params, nil
}

type funnelRequest struct {
	WebsiteID  string           `json:"websiteId"`
	Type       string           `json:"type"`
	Filters    map[string]any   `json:"filters"`
	Parameters funnelParameters `json:"parameters"`
}

type funnelParameters struct {
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Steps     json.RawMessage `json:"steps"`
	Window    int             `json:"window"`
}

type funnelRow struct {
	Type     string          `json:"type"`
	Value    json.RawMessage `json:"value"`
	Visitors metricValue     `json:"visitors"`
	Dropped  metricValue     `json:"dropped"`
}

// RunFunnel executes the stored steps of ref over window. Steps are forwarded verbatim; the
// window falls back to DefaultFunnelWindowMinutes when the report does not define one.
func (c *UmamiClient) RunFunnel(
	ctx context.Context,
	websiteID string,
	ref domain.FunnelReportRef,
	window domain.TimeWindow,
) ([]domain.FunnelStep, error) {
	if !ref.HasSteps() {
		return nil, fmt.Errorf("report %q has no steps", ref.Name)
	}

	windowMinutes := ref.Window
	if windowMinutes <= 0 {
		windowMinutes = domain.DefaultFunnelWindowMinutes
	}

	body := funnelRequest{
		WebsiteID: websiteID,
		Type:      "funnel",
		Filters:   map[string]any{},
		Parameters: funnelParameters{
			StartDate: window.StartISO(),
			EndDate:   window.EndISO(),
			Steps:     ref.Steps,
			Window:    windowMinutes,
		},
	}

	var rows []funnelRow
	if err := c.do(ctx, http.MethodPost, "reports/funnel", nil, body, &rows); err != nil {
		return nil, err
	}

	steps := make([]domain.FunnelStep, 0, len(rows))
	for i, row := range rows {
		steps = append(steps, domain.FunnelStep{
			Index:    i + 1,
			Type:     row.Type,
			Value:    rawString(row.Value),
			Visitors: int64(row.Visitors),
			Dropped:  int64(row.Dropped),
		})
	}
	return steps, nil
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (c *UmamiClient) endpoint(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *UmamiClient) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
	out any,
) error {
	logger := zerolog.Ctx(ctx)
	endpoint := c.endpoint(path, query)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &domain.APIError{Method: method, URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str("method", method).Str("url", endpoint).Msg("umami request failed")
		return &domain.APIError{Method: method, URL: endpoint, Err: err}
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close response body")
		}
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.APIError{Method: method, URL: endpoint, Status: resp.StatusCode, Err: err}
	}

	logger.Debug().
		Str("method", method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("umami request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.APIError{
			Method: method,
			URL:    endpoint,
			Status: resp.StatusCode,
			Body:   domain.Snippet(data),
		}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &domain.APIError{
			Method: method,
			URL:    endpoint,
			Status: resp.StatusCode,
			Err:    errors.New("empty response body"),
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &domain.APIError{
			Method: method,
			URL:    endpoint,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected response: %w", err),
			Body:   domain.Snippet(data),
		}
	}
	return nil
}
