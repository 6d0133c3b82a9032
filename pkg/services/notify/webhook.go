package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
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
	KindAuto    = "auto"
	KindFeishu  = "feishu"
	KindSlack   = "slack"
	KindDiscord = "discord"
	KindGeneric = "generic"

	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

const DefaultTimeout = 15 * time.Second

type Options struct {
	URL    string
	Secret string
	// Kind selects the envelope. Empty or "auto" detects it from the URL host.
	Kind       string
	HTTPClient *http.Client
	Now        func() time.Time
}

// Publisher posts rendered documents to one chat webhook.
type Publisher struct {
	url    string
	secret string
	kind   string
	client *http.Client
	now    func() time.Time
}

func NewPublisher(opts Options) (*Publisher, error) {
	u, err := url.Parse(strings.TrimSpace(opts.URL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &domain.ConfigError{Field: "webhook-url", Msg: fmt.Sprintf("invalid webhook URL %q", opts.URL)}
	}

	kind := strings.ToLower(strings.TrimSpace(opts.Kind))
	switch kind {
	case "", KindAuto:
		kind = DetectKind(u.Hostname())
	case KindFeishu, KindSlack, KindDiscord, KindGeneric:
	default:
		return nil, &domain.ConfigError{Field: "webhook-kind", Msg: fmt.Sprintf("unsupported webhook kind %q", opts.Kind)}
	}

	p := &Publisher{
		url:    u.String(),
		secret: opts.Secret,
		kind:   kind,
		client: opts.HTTPClient,
		now:    opts.Now,
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: DefaultTimeout}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// DetectKind maps a webhook host to its envelope kind.
func DetectKind(host string) string {
	host = strings.ToLower(host)
	switch {
	case hostMatches(host, "feishu.cn"), hostMatches(host, "larksuite.com"):
		return KindFeishu
	case host == "hooks.slack.com":
		return KindSlack
	case hostMatches(host, "discord.com"), hostMatches(host, "discordapp.com"):
		return KindDiscord
	default:
		return KindGeneric
	}
}

func hostMatches(host, suffix string) bool {
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}

func (p *Publisher) Kind() string { return p.kind }

// Publish sends one POST. Non-2xx responses, transport failures and Feishu error codes
// return a *domain.DeliveryError.
func (p *Publisher) Publish(ctx context.Context, text string, format string) error {
	payload, err := p.envelope(text, format)
	if err != nil {
		return &domain.DeliveryError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return &domain.DeliveryError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("kind", p.kind).Int("bytes", len(payload)).Msg("posting webhook")

	resp, err := p.client.Do(req)
	if err != nil {
		return &domain.DeliveryError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 10240))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.DeliveryError{Status: resp.StatusCode, Body: domain.Snippet(body)}
	}

	if p.kind == KindFeishu {
		if err := feishuResult(body); err != nil {
			return &domain.DeliveryError{Status: resp.StatusCode, Body: domain.Snippet(body), Err: err}
		}
	}

	logger.Info().Str("kind", p.kind).Int("status", resp.StatusCode).Msg("webhook delivered")
	return nil
}

func (p *Publisher) envelope(text, format string) ([]byte, error) {
	switch p.kind {
	case KindFeishu:
		msg := feishuMessage{MsgType: "text"}
		msg.Content.Text = text
		if p.secret != "" {
			ts := p.now().Unix()
			sign, err := FeishuSign(p.secret, ts)
			if err != nil {
				return nil, err
			}
			msg.Timestamp = strconv.FormatInt(ts, 10)
			msg.Sign = sign
		}
		return json.Marshal(msg)
	case KindSlack:
		return json.Marshal(map[string]string{"text": text})
	case KindDiscord:
		return json.Marshal(map[string]string{"content": text})
	default:
		if format == FormatJSON && json.Valid([]byte(text)) {
			return []byte(text), nil
		}
		return json.Marshal(map[string]string{"text": text})
	}
}

type feishuMessage struct {
	Timestamp string `json:"timestamp,omitempty"`
	Sign      string `json:"sign,omitempty"`
	MsgType   string `json:"msg_type"`
	Content   struct {
		Text string `json:"text"`
	} `json:"content"`
}

// FeishuSign is base64(HMAC-SHA256) keyed by "timestamp\nsecret" over an empty message.
func FeishuSign(secret string, timestamp int64) (string, error) {
	key := strconv.FormatInt(timestamp, 10) + "\n" + secret
	mac := hmac.New(sha256.New, []byte(key))
	if _, err := mac.Write(nil); err != nil {
		return "", fmt.Errorf("failed to sign webhook payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// feishuResult checks the JSON body Feishu returns with HTTP 200.
func feishuResult(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var res struct {
		Code       *int   `json:"code"`
		Msg        string `json:"msg"`
		StatusCode *int   `json:"StatusCode"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil
	}
	code := res.Code
	if code == nil {
		code = res.StatusCode
	}
	if code != nil && *code != 0 {
		return fmt.Errorf("feishu returned code %d: %s", *code, res.Msg)
	}
	return nil
}
