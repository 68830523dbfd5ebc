// Package audit keeps the rolling ledger of security violations, derives
// threat metrics from it and temporarily blocks repeat offenders.
package audit

import (
	"time"
)

// ViolationType classifies what kind of check a violation failed.
type ViolationType string

const (
	TypeXSS            ViolationType = "XSS_ATTEMPT"
	TypeSQLInjection   ViolationType = "SQL_INJECTION"
	TypeMaliciousInput ViolationType = "MALICIOUS_INPUT"
	TypeRateLimit      ViolationType = "RATE_LIMIT_EXCEEDED"
	TypeCSRF           ViolationType = "CSRF_VIOLATION"
	TypeUnauthorized   ViolationType = "UNAUTHORIZED_ACCESS"
)

// Severity of a recorded violation.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// weight is the score penalty of one violation of this severity.
func (s Severity) weight() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 3
	case SeverityHigh:
		return 7
	case SeverityCritical:
		return 15
	}
	return 0
}

// ThreatLevel is the coarse state derived from the metrics score.
type ThreatLevel string

const (
	ThreatSafe       ThreatLevel = "SAFE"
	ThreatSuspicious ThreatLevel = "SUSPICIOUS"
	ThreatDangerous  ThreatLevel = "DANGEROUS"
	ThreatCritical   ThreatLevel = "CRITICAL"
)

// Violation is one recorded failure of a security check. Records are
// persisted as JSON; unknown or missing fields are tolerated on load.
type Violation struct {
	ID             string            `json:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	SessionID      string            `json:"session_id"`
	UserID         string            `json:"user_id,omitempty"`
	Type           ViolationType     `json:"violation_type"`
	Severity       Severity          `json:"severity"`
	Source         string            `json:"source"`
	FieldName      string            `json:"field_name,omitempty"`
	OriginalValue  string            `json:"original_value,omitempty"`
	SanitizedValue string            `json:"sanitized_value,omitempty"`
	Blocked        bool              `json:"blocked"`
	Patterns       []string          `json:"patterns,omitempty"`
	Details        map[string]string `json:"details,omitempty"`
}

// Identifier returns the blocking identity for a user or session.
func Identifier(userID, sessionID string) string {
	switch {
	case userID != "":
		return userID
	case sessionID != "":
		return sessionID
	default:
		return "anonymous"
	}
}

// Identifier returns the blocking identity of the violation's actor.
func (v Violation) Identifier() string {
	return Identifier(v.UserID, v.SessionID)
}

// Block is an active temporary block.
type Block struct {
	Identifier string    `json:"identifier"`
	Source     string    `json:"source"`
	Count      int       `json:"count"`
	Since      time.Time `json:"since"`
	Until      time.Time `json:"until"`
}

// Count pairs a name with its number of occurrences.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Metrics summarizes the ledger over a trailing window.
type Metrics struct {
	Window      time.Duration         `json:"window"`
	GeneratedAt time.Time             `json:"generated_at"`
	Total       int                   `json:"total"`
	ByType      map[ViolationType]int `json:"by_type"`
	BySeverity  map[Severity]int      `json:"by_severity"`
	TopFields   []Count               `json:"top_fields"`
	TopPatterns []Count               `json:"top_patterns"`
	Blocked     int                   `json:"blocked_identifiers"`
	Score       int                   `json:"score"`
	ThreatLevel ThreatLevel           `json:"threat_level"`
}
