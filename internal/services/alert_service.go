package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/containrrr/shoutrrr"

	"github.com/fleetdesk/backend/internal/audit"
	"github.com/fleetdesk/backend/internal/version"
)

// AlertService delivers critical violations to shoutrrr destinations
// (Slack, Discord, SMTP, generic webhooks...).
type AlertService struct {
	urls []string
	send func(url, message string) error
}

var _ audit.Alerter = (*AlertService)(nil)

// NewAlertService returns an AlertService for the given shoutrrr URLs.
// Blank entries are ignored.
func NewAlertService(urls []string) *AlertService {
	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	return &AlertService{urls: clean, send: shoutrrr.Send}
}

// Enabled reports whether any destination is configured.
func (s *AlertService) Enabled() bool { return len(s.urls) > 0 }

// Alert sends a to every destination. It gives up when ctx is done.
func (s *AlertService) Alert(ctx context.Context, a audit.Alert) error {
	msg := formatAlert(a)
	var errs []error
	for _, u := range s.urls {
		done := make(chan error, 1)
		go func(u string) { done <- s.send(u, msg) }(u)

		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", serviceName(u), err))
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("%s: %w", serviceName(u), ctx.Err()))
			return errors.Join(errs...)
		}
	}
	return errors.Join(errs...)
}

func formatAlert(a audit.Alert) string {
	v := a.Violation
	var b strings.Builder
	fmt.Fprintf(&b, "%s security alert: %s (%s)\n\n", version.Name, v.Type, v.Severity)
	fmt.Fprintf(&b, "source: %s\n", v.Source)
	if v.FieldName != "" {
		fmt.Fprintf(&b, "field: %s\n", v.FieldName)
	}
	fmt.Fprintf(&b, "identifier: %s\n", v.Identifier())
	fmt.Fprintf(&b, "session: %s\n", a.SessionID)
	fmt.Fprintf(&b, "violation: %s\n", v.ID)
	if fp := v.Details["fingerprint"]; fp != "" {
		fmt.Fprintf(&b, "fingerprint: %s\n", fp)
	}
	fmt.Fprintf(&b, "time: %s", a.Timestamp.UTC().Format(time.RFC3339))
	return b.String()
}

// serviceName keeps credentials embedded in shoutrrr URLs out of errors.
func serviceName(u string) string {
	if scheme, _, ok := strings.Cut(u, "://"); ok {
		return scheme
	}
	return "alert"
}
