package notification

import (
	"errors"
	"net/url"
	"strings"

	"github.com/carehospital/admin-api/pkg/metrics"
)

const WhatsAppBaseURL = "https://wa.me/"

var ErrNoRecipient = errors.New("phone number has no digits")

// DigitsOnly strips every non-digit character.
func DigitsOnly(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// componentUnescaper undoes the QueryEscape encodings that
// encodeURIComponent leaves literal.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s like encodeURIComponent.
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// Handoff builds click-to-chat links for the external messaging app.
// Opening the link is the client's job.
type Handoff struct {
	baseURL string
	metrics *metrics.Metrics
}

// NewHandoff returns a Handoff for baseURL (WhatsAppBaseURL when empty). m may be nil.
func NewHandoff(baseURL string, m *metrics.Metrics) *Handoff {
	if baseURL == "" {
		baseURL = WhatsAppBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Handoff{baseURL: baseURL, metrics: m}
}

// BuildLink returns <base><digits>?text=<encoded message>.
func (h *Handoff) BuildLink(phone, message string) (string, error) {
	digits := DigitsOnly(phone)
	if digits == "" {
		h.count("no_recipient")
		return "", ErrNoRecipient
	}
	h.count("success")
	return h.baseURL + digits + "?text=" + EncodeComponent(message), nil
}

func (h *Handoff) count(result string) {
	if h.metrics != nil {
		h.metrics.Handoffs.WithLabelValues(result).Inc()
	}
}
