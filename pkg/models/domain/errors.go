package domain

import (
	"fmt"
	"strings"
)

// ConfigError reports missing or invalid settings. It is always raised before any network call.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// APIError is a failed or malformed analytics API response. Status is 0 for transport failures.
type APIError struct {
	Method string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.URL)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// DeliveryError is a failed webhook POST.
type DeliveryError struct {
	Status int
	Body   string
	Err    error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("webhook delivery failed: HTTP %d: %v", e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("webhook delivery failed: %v", e.Err)
	default:
		return fmt.Sprintf("webhook delivery failed: HTTP %d: %s", e.Status, e.Body)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }

const maxBodySnippet = 500

// Snippet trims a response body for inclusion in an error.
func Snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodySnippet {
		return strings.ToValidUTF8(s[:maxBodySnippet], "") + "..."
	}
	return s
}
