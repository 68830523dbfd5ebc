// Package interceptor gates create, update and delete operations behind
// blocking, rate limiting and content validation.
package interceptor

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fleetdesk/backend/internal/audit"
	"github.com/fleetdesk/backend/internal/classifier"
	"github.com/fleetdesk/backend/internal/fieldvalidator"
	"github.com/fleetdesk/backend/internal/logger"
	"github.com/fleetdesk/backend/internal/metrics"
	"github.com/fleetdesk/backend/internal/patterns"
	"github.com/fleetdesk/backend/internal/ratelimit"
	"github.com/fleetdesk/backend/internal/util"
)

// Limit is a fixed-window quota.
type Limit struct {
	Max    int
	Window time.Duration
}

// Config tunes the guard.
type Config struct {
	StrictMode bool
	// Limits per operation. An operation without an entry is not limited.
	Limits map[Operation]Limit
	// Rules per resource. Resources without an entry validate every field
	// as free text.
	Rules map[string]fieldvalidator.RuleSet
}

// DefaultConfig returns the stock quotas and the fleet resource rules.
func DefaultConfig() Config {
	return Config{
		Limits: map[Operation]Limit{
			OpCreate: {Max: 20, Window: time.Minute},
			OpUpdate: {Max: 30, Window: time.Minute},
			OpDelete: {Max: 10, Window: time.Minute},
		},
		Rules: fieldvalidator.ResourceRules(),
	}
}

// Decision is the outcome of one guarded operation. SanitizedData is set
// only when IsValid is true.
type Decision struct {
	IsValid       bool
	SanitizedData map[string]any
	Violations    []audit.Violation
	Errors        map[string][]string
	Warnings      map[string][]string
	Severity      classifier.Severity
	Err           error
}

// Guard composes the validator, the limiter and the ledger.
type Guard struct {
	cfg       Config
	validator *fieldvalidator.Validator
	limiter   *ratelimit.Limiter
	ledger    *audit.Ledger
}

// New returns a Guard. Nil collaborators are replaced by fresh defaults.
func New(cfg Config, v *fieldvalidator.Validator, l *ratelimit.Limiter, ledger *audit.Ledger) *Guard {
	if v == nil {
		v = fieldvalidator.New(nil)
	}
	if l == nil {
		l = ratelimit.New()
	}
	if ledger == nil {
		ledger = audit.New(audit.DefaultConfig())
	}
	if cfg.Rules == nil {
		cfg.Rules = fieldvalidator.ResourceRules()
	}
	return &Guard{cfg: cfg, validator: v, limiter: l, ledger: ledger}
}

// Ledger returns the audit ledger the guard records into.
func (g *Guard) Ledger() *audit.Ledger { return g.ledger }

// Limiter returns the guard's rate limiter.
func (g *Guard) Limiter() *ratelimit.Limiter { return g.limiter }

// ValidateOperation decides whether data may be written to resource. Block
// and rate-limit checks run before any content inspection. Dangerous content
// is always rejected; suspicious content is recorded and, unless the guard
// runs in strict mode, let through in sanitized form.
func (g *Guard) ValidateOperation(ctx context.Context, data map[string]any, op Operation, resource string) Decision {
	actor := ActorFrom(ctx)
	source := string(op) + ":" + resource
	log := logger.WithFields(logrus.Fields{
		"operation":  op,
		"resource":   util.LogSafe(resource, 64),
		"identifier": util.LogSafe(actor.Identifier(), 100),
	})

	if g.ledger.IsBlocked(actor.Identifier()) {
		log.Info("operation refused: identifier blocked")
		return reject(ErrIdentifierBlocked, map[string][]string{"_": {ErrIdentifierBlocked.Error()}})
	}

	if lim, ok := g.cfg.Limits[op]; ok {
		key := actor.Identifier() + ":" + string(op) + ":" + resource
		if !g.limiter.IsAllowed(key, lim.Max, lim.Window) {
			metrics.IncRateLimited(string(op), resource)
			v := g.ledger.Record(ctx, audit.Violation{
				UserID:    actor.UserID,
				SessionID: actor.SessionID,
				Type:      audit.TypeRateLimit,
				Severity:  audit.SeverityHigh,
				Source:    source,
				Blocked:   true,
				Details: map[string]string{
					"limit":     strconv.Itoa(lim.Max),
					"window":    lim.Window.String(),
					"client_ip": actor.ClientIP,
				},
			})
			d := reject(ErrRateLimited, map[string][]string{"_": {ErrRateLimited.Error()}})
			d.Violations = []audit.Violation{v}
			return d
		}
	}

	if op == OpDelete {
		return Decision{IsValid: true, Severity: classifier.Safe}
	}

	res := g.validator.ValidateObject(data, g.cfg.Rules[resource], fieldvalidator.Options{
		StrictMode: g.cfg.StrictMode,
		Partial:    op == OpUpdate,
	})
	metrics.IncValidation(res.Severity.String())

	switch res.Severity {
	case classifier.Dangerous:
		d := reject(ErrMaliciousContent, res.Errors)
		d.Warnings = res.Warnings
		d.Severity = res.Severity
		d.Violations = g.recordFields(ctx, actor, source, res, classifier.Dangerous, audit.SeverityCritical, true)
		log.Warn("operation refused: malicious content")
		return d
	case classifier.Suspicious:
		violations := g.recordFields(ctx, actor, source, res, classifier.Suspicious, audit.SeverityMedium, !res.IsValid)
		if !res.IsValid {
			d := reject(ErrValidation, res.Errors)
			d.Warnings = res.Warnings
			d.Severity = res.Severity
			d.Violations = violations
			return d
		}
		return Decision{
			IsValid:       true,
			SanitizedData: res.Sanitized,
			Violations:    violations,
			Warnings:      res.Warnings,
			Severity:      res.Severity,
		}
	}

	if !res.IsValid {
		d := reject(ErrValidation, res.Errors)
		d.Warnings = res.Warnings
		d.Severity = res.Severity
		return d
	}
	return Decision{
		IsValid:       true,
		SanitizedData: res.Sanitized,
		Warnings:      res.Warnings,
		Severity:      res.Severity,
	}
}

func reject(err error, errs map[string][]string) Decision {
	return Decision{IsValid: false, Err: err, Errors: errs}
}

// recordFields writes one violation per field at exactly the given severity.
func (g *Guard) recordFields(ctx context.Context, actor Actor, source string, res fieldvalidator.ObjectResult,
	level classifier.Severity, sev audit.Severity, blocked bool) []audit.Violation {
	paths := make([]string, 0, len(res.Fields))
	for p, r := range res.Fields {
		if r.Severity == level {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	out := make([]audit.Violation, 0, len(paths))
	for _, p := range paths {
		r := res.Fields[p]
		out = append(out, g.ledger.Record(ctx, audit.Violation{
			UserID:         actor.UserID,
			SessionID:      actor.SessionID,
			Type:           violationType(r.Matches),
			Severity:       sev,
			Source:         source,
			FieldName:      p,
			OriginalValue:  r.Input,
			SanitizedValue: r.SanitizedValue,
			Blocked:        blocked,
			Details:        map[string]string{"client_ip": actor.ClientIP},
		}))
	}
	return out
}

// violationType maps matched signature categories to a violation type.
// Script and protocol abuse outrank SQL, which outranks everything else.
func violationType(matches []patterns.Signature) audit.ViolationType {
	t := audit.TypeMaliciousInput
	for _, m := range matches {
		switch m.Category {
		case patterns.CategoryXSS, patterns.CategoryProtocol:
			return audit.TypeXSS
		case patterns.CategorySQL:
			t = audit.TypeSQLInjection
		}
	}
	return t
}
