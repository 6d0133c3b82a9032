package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/umami-digest/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	contentType string
	body        []byte
}

func newWebhookServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		got.contentType = r.Header.Get("Content-Type")
		got.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestDetectKind(t *testing.T) {
	tests := map[string]string{
		"open.feishu.cn":       KindFeishu,
		"open.larksuite.com":   KindFeishu,
		"hooks.slack.com":      KindSlack,
		"discord.com":          KindDiscord,
		"ptb.discordapp.com":   KindDiscord,
		"notfeishu.cn":         KindGeneric,
		"chat.example.com":     KindGeneric,
		"hooks.slack.com.evil": KindGeneric,
	}
	for host, want := range tests {
		assert.Equal(t, want, DetectKind(host), host)
	}
}

func TestPublish_Envelopes(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		format string
		text   string
		want   map[string]any
	}{
		{name: "slack", kind: KindSlack, format: FormatMarkdown, text: "# hi", want: map[string]any{"text": "# hi"}},
		{name: "discord", kind: KindDiscord, format: FormatMarkdown, text: "# hi", want: map[string]any{"content": "# hi"}},
		{name: "generic markdown", kind: KindGeneric, format: FormatMarkdown, text: "# hi",
			want: map[string]any{"text": "# hi"}},
		{name: "generic json", kind: KindGeneric, format: FormatJSON, text: `{"source":"Umami"}`,
			want: map[string]any{"source": "Umami"}},
		{name: "feishu", kind: KindFeishu, format: FormatMarkdown, text: "# hi",
			want: map[string]any{"msg_type": "text", "content": map[string]any{"text": "# hi"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, got := newWebhookServer(t, http.StatusOK, `{"code":0}`)
			p, err := NewPublisher(Options{URL: srv.URL, Kind: tc.kind})
			require.NoError(t, err)

			require.NoError(t, p.Publish(context.Background(), tc.text, tc.format))
			assert.Equal(t, "application/json; charset=utf-8", got.contentType)
			assert.Equal(t, tc.want, decode(t, got.body))
		})
	}
}

func TestPublish_FeishuSigned(t *testing.T) {
	// Given
	srv, got := newWebhookServer(t, http.StatusOK, `{"code":0,"msg":"success"}`)
	now := time.Unix(1700000000, 0)
	p, err := NewPublisher(Options{
		URL:    srv.URL,
		Kind:   KindFeishu,
		Secret: "s3cret",
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)

	// When
	require.NoError(t, p.Publish(context.Background(), "hello", FormatMarkdown))

	// Then
	body := decode(t, got.body)
	sign, err := FeishuSign("s3cret", 1700000000)
	require.NoError(t, err)
	assert.Equal(t, "1700000000", body["timestamp"])
	assert.Equal(t, sign, body["sign"])
	assert.NotEmpty(t, sign)
}

func TestFeishuSign_DependsOnInputs(t *testing.T) {
	a, err := FeishuSign("secret", 1)
	require.NoError(t, err)
	b, err := FeishuSign("secret", 2)
	require.NoError(t, err)
	c, err := FeishuSign("other", 1)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestPublish_Failures(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv, _ := newWebhookServer(t, http.StatusBadGateway, "upstream down")
		p, err := NewPublisher(Options{URL: srv.URL, Kind: KindSlack})
		require.NoError(t, err)

		err = p.Publish(context.Background(), "x", FormatMarkdown)
		var delivery *domain.DeliveryError
		require.True(t, errors.As(err, &delivery))
		assert.Equal(t, http.StatusBadGateway, delivery.Status)
		assert.Equal(t, "upstream down", delivery.Body)
	})

	t.Run("feishu error code", func(t *testing.T) {
		srv, _ := newWebhookServer(t, http.StatusOK, `{"code":19021,"msg":"sign match fail"}`)
		p, err := NewPublisher(Options{URL: srv.URL, Kind: KindFeishu})
		require.NoError(t, err)

		err = p.Publish(context.Background(), "x", FormatMarkdown)
		var delivery *domain.DeliveryError
		require.True(t, errors.As(err, &delivery))
		assert.Equal(t, http.StatusOK, delivery.Status)
		assert.Contains(t, err.Error(), "19021")
	})

	t.Run("transport", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		p, err := NewPublisher(Options{URL: url, Kind: KindGeneric})
		require.NoError(t, err)

		err = p.Publish(context.Background(), "x", FormatMarkdown)
		var delivery *domain.DeliveryError
		require.True(t, errors.As(err, &delivery))
		assert.Zero(t, delivery.Status)
		assert.Error(t, delivery.Err)
	})
}

func TestNewPublisher_Invalid(t *testing.T) {
	_, err := NewPublisher(Options{URL: "not a url"})
	var cfgErr *domain.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = NewPublisher(Options{URL: "https://example.com/hook", Kind: "teams"})
	assert.True(t, errors.As(err, &cfgErr))

	p, err := NewPublisher(Options{URL: "https://open.feishu.cn/open-apis/bot/v2/hook/abc"})
	require.NoError(t, err)
	assert.Equal(t, KindFeishu, p.Kind())
}
