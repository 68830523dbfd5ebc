package audit

import (
	"context"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/fleetdesk/backend/internal/logger"
	"github.com/fleetdesk/backend/internal/metrics"
	"github.com/fleetdesk/backend/internal/patterns"
	"github.com/fleetdesk/backend/internal/util"
)

const (
	valueLimit   = 200
	labelLimit   = 100
	patternLimit = 64
)

// Config bounds the ledger. Zero fields take the DefaultConfig value.
type Config struct {
	MemoryCap      int
	StoreCap       int
	BlockThreshold int
	BlockWindow    time.Duration
	BlockCooldown  time.Duration
	MetricsWindow  time.Duration
	Retention      time.Duration
	AlertTimeout   time.Duration
	TopN           int
}

// DefaultConfig returns the stock ledger limits.
func DefaultConfig() Config {
	return Config{
		MemoryCap:      1000,
		StoreCap:       100,
		BlockThreshold: 5,
		BlockWindow:    15 * time.Minute,
		BlockCooldown:  15 * time.Minute,
		MetricsWindow:  24 * time.Hour,
		Retention:      24 * time.Hour,
		AlertTimeout:   5 * time.Second,
		TopN:           10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MemoryCap <= 0 {
		c.MemoryCap = d.MemoryCap
	}
	if c.StoreCap <= 0 {
		c.StoreCap = d.StoreCap
	}
	if c.StoreCap > c.MemoryCap {
		c.StoreCap = c.MemoryCap
	}
	if c.BlockThreshold <= 0 {
		c.BlockThreshold = d.BlockThreshold
	}
	if c.BlockWindow <= 0 {
		c.BlockWindow = d.BlockWindow
	}
	if c.BlockCooldown <= 0 {
		c.BlockCooldown = d.BlockCooldown
	}
	if c.MetricsWindow <= 0 {
		c.MetricsWindow = d.MetricsWindow
	}
	if c.Retention <= 0 {
		c.Retention = d.Retention
	}
	if c.AlertTimeout <= 0 {
		c.AlertTimeout = d.AlertTimeout
	}
	if c.TopN <= 0 {
		c.TopN = d.TopN
	}
	return c
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithStore persists the newest violations to s after every change.
func WithStore(s Store) Option { return func(l *Ledger) { l.store = s } }

// WithAlerter sends critical violations to a.
func WithAlerter(a Alerter) Option { return func(l *Ledger) { l.alerter = a } }

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithCatalog sets the catalog used to extract attack patterns.
func WithCatalog(c *patterns.Catalog) Option { return func(l *Ledger) { l.catalog = c } }

// WithBlockListener registers fn for newly issued blocks.
func WithBlockListener(fn BlockListener) Option { return func(l *Ledger) { l.onBlock = fn } }

// WithSessionID sets the session id stamped on records that carry none.
func WithSessionID(id string) Option { return func(l *Ledger) { l.sessionID = id } }

// Ledger is the in-memory violation log. It is safe for concurrent use.
type Ledger struct {
	cfg       Config
	store     Store
	alerter   Alerter
	catalog   *patterns.Catalog
	onBlock   BlockListener
	sessionID string
	now       func() time.Time

	mu        sync.Mutex
	entries   []Violation // oldest first
	hits      map[string][]time.Time
	blocks    map[string]Block
	frequency map[string]int

	saveMu sync.Mutex
	alerts sync.WaitGroup
}

// New builds a ledger. Without WithStore nothing is persisted.
func New(cfg Config, opts ...Option) *Ledger {
	l := &Ledger{
		cfg:       cfg.withDefaults(),
		now:       time.Now,
		hits:      make(map[string][]time.Time),
		blocks:    make(map[string]Block),
		frequency: make(map[string]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.catalog == nil {
		l.catalog = patterns.Default()
	}
	if l.sessionID == "" {
		l.sessionID = uuid.NewString()
	}
	return l
}

// Config returns the effective limits.
func (l *Ledger) Config() Config { return l.cfg }

// Record appends v, updates blocking state and persists the tail. Missing id,
// timestamp and session id are filled in; values are truncated and made
// log-safe. The stored record is returned.
func (l *Ledger) Record(ctx context.Context, v Violation) Violation {
	now := l.now()
	v = l.populate(v, now)

	l.mu.Lock()
	l.entries = append(l.entries, v)
	if over := len(l.entries) - l.cfg.MemoryCap; over > 0 {
		l.entries = append([]Violation(nil), l.entries[over:]...)
	}
	for _, p := range v.Patterns {
		l.frequency[p]++
	}
	issued, isNew := l.countLocked(v, now)
	l.mu.Unlock()

	metrics.IncViolation(string(v.Type), string(v.Severity))
	logger.WithFields(logrus.Fields{
		"violation_id": v.ID,
		"type":         v.Type,
		"severity":     v.Severity,
		"source":       v.Source,
		"field":        v.FieldName,
		"identifier":   util.LogSafe(v.Identifier(), labelLimit),
		"blocked":      v.Blocked,
	}).Warn("security violation recorded")

	if isNew {
		metrics.IncBlock()
		logger.WithFields(logrus.Fields{
			"identifier": util.LogSafe(issued.Identifier, labelLimit),
			"source":     issued.Source,
			"until":      issued.Until,
		}).Warn("identifier temporarily blocked")
		if l.onBlock != nil {
			l.onBlock(issued)
		}
	}

	l.persist(ctx)

	if v.Severity == SeverityCritical && l.alerter != nil {
		l.alert(v)
	}
	return v
}

func (l *Ledger) populate(v Violation, now time.Time) Violation {
	raw := v.OriginalValue
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Timestamp.IsZero() {
		v.Timestamp = now
	}
	if v.SessionID == "" {
		v.SessionID = l.sessionID
	}
	if v.Type == "" {
		v.Type = TypeMaliciousInput
	}
	if v.Severity == "" {
		v.Severity = SeverityLow
	}
	v.UserID = util.LogSafe(v.UserID, labelLimit)
	v.SessionID = util.LogSafe(v.SessionID, labelLimit)
	v.Source = util.LogSafe(v.Source, labelLimit)
	v.FieldName = util.LogSafe(v.FieldName, labelLimit)

	details := make(map[string]string, len(v.Details)+2)
	for k, val := range v.Details {
		details[k] = util.LogSafe(val, valueLimit)
	}
	if raw != "" {
		sum := blake2b.Sum256([]byte(raw))
		details["fingerprint"] = hex.EncodeToString(sum[:])
		details["length"] = strconv.Itoa(utf8.RuneCountInString(raw))
		if len(v.Patterns) == 0 {
			v.Patterns = l.catalog.Extract(raw)
		}
	}
	v.Details = details

	pats := make([]string, 0, len(v.Patterns))
	for _, p := range v.Patterns {
		if p = util.LogSafe(p, patternLimit); p != "" {
			pats = append(pats, p)
		}
	}
	v.Patterns = pats

	v.OriginalValue = util.LogSafe(raw, valueLimit)
	v.SanitizedValue = util.LogSafe(v.SanitizedValue, valueLimit)
	return v
}

// countLocked adds v to its (identifier, source) window and blocks the
// identifier once the threshold is exceeded. It reports a block only when it
// was newly issued; an active block is extended instead.
func (l *Ledger) countLocked(v Violation, now time.Time) (Block, bool) {
	id := v.Identifier()
	key := id + "|" + v.Source
	hits := pruneBefore(l.hits[key], now.Add(-l.cfg.BlockWindow))
	hits = append(hits, now)
	l.hits[key] = hits

	if len(hits) <= l.cfg.BlockThreshold {
		return Block{}, false
	}
	until := now.Add(l.cfg.BlockCooldown)
	if b, ok := l.blocks[id]; ok && now.Before(b.Until) {
		b.Until = until
		b.Count = len(hits)
		l.blocks[id] = b
		return Block{}, false
	}
	b := Block{Identifier: id, Source: v.Source, Count: len(hits), Since: now, Until: until}
	l.blocks[id] = b
	return b, true
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append([]time.Time(nil), ts[i:]...)
}

func (l *Ledger) persist(ctx context.Context) {
	if l.store == nil {
		return
	}
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	l.mu.Lock()
	start := max(0, len(l.entries)-l.cfg.StoreCap)
	tail := append([]Violation(nil), l.entries[start:]...)
	l.mu.Unlock()

	if err := l.store.Save(context.WithoutCancel(ctx), tail); err != nil {
		logger.Log().WithError(err).Warn("failed to persist security violations")
	}
}

func (l *Ledger) alert(v Violation) {
	a := Alert{Violation: v, SessionID: v.SessionID, Timestamp: l.now()}
	l.alerts.Add(1)
	go func() {
		defer l.alerts.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.IncAlertFailure()
				logger.Log().WithField("violation_id", v.ID).Errorf("security alert panicked: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), l.cfg.AlertTimeout)
		defer cancel()
		if err := l.alerter.Alert(ctx, a); err != nil {
			metrics.IncAlertFailure()
			logger.Log().WithError(err).WithField("violation_id", v.ID).Warn("security alert delivery failed")
		}
	}()
}

// Wait blocks until every pending alert delivery has returned.
func (l *Ledger) Wait() { l.alerts.Wait() }

// Violations returns up to limit records, newest first. A limit <= 0 returns
// all of them.
func (l *Ledger) Violations(limit int) []Violation {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Violation, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Len returns the number of records held in memory.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// IsBlocked reports whether id is currently blocked. Expired blocks are
// dropped on the way.
func (l *Ledger) IsBlocked(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.blocks[id]
	if !ok {
		return false
	}
	if !l.now().Before(b.Until) {
		delete(l.blocks, id)
		return false
	}
	return true
}

// Blocked lists the active blocks, soonest expiry first.
func (l *Ledger) Blocked() []Block {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	out := make([]Block, 0, len(l.blocks))
	for id, b := range l.blocks {
		if !now.Before(b.Until) {
			delete(l.blocks, id)
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Until.Equal(out[j].Until) {
			return out[i].Identifier < out[j].Identifier
		}
		return out[i].Until.Before(out[j].Until)
	})
	return out
}

// Unblock lifts the block on id and forgets its violation windows. It
// reports whether a block was active.
func (l *Ledger) Unblock(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.blocks[id]
	delete(l.blocks, id)
	prefix := id + "|"
	for key := range l.hits {
		if strings.HasPrefix(key, prefix) {
			delete(l.hits, key)
		}
	}
	return ok && l.now().Before(b.Until)
}

// Clear drops every record, window and pattern count. Active blocks keep
// running until they expire.
func (l *Ledger) Clear(ctx context.Context) {
	l.mu.Lock()
	l.entries = nil
	l.hits = make(map[string][]time.Time)
	l.frequency = make(map[string]int)
	l.mu.Unlock()

	l.persist(ctx)
}

// Sweep drops records older than the retention period, expired blocks and
// stale windows. It returns how many records were removed.
func (l *Ledger) Sweep(ctx context.Context) int {
	now := l.now()
	cutoff := now.Add(-l.cfg.Retention)

	l.mu.Lock()
	kept := l.entries[:0:0]
	for _, v := range l.entries {
		if v.Timestamp.After(cutoff) {
			kept = append(kept, v)
		}
	}
	removed := len(l.entries) - len(kept)
	l.entries = kept
	l.frequency = countPatterns(kept)

	for id, b := range l.blocks {
		if !now.Before(b.Until) {
			delete(l.blocks, id)
		}
	}
	windowCutoff := now.Add(-l.cfg.BlockWindow)
	for key, hits := range l.hits {
		if hits = pruneBefore(hits, windowCutoff); len(hits) == 0 {
			delete(l.hits, key)
		} else {
			l.hits[key] = hits
		}
	}
	l.mu.Unlock()

	if removed > 0 {
		l.persist(ctx)
	}
	return removed
}

// Load restores persisted records. Records past the retention period are
// skipped and missing ids are filled in.
func (l *Ledger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	loaded, err := l.store.Load(ctx)
	if err != nil {
		return err
	}
	cutoff := l.now().Add(-l.cfg.Retention)
	restored := make([]Violation, 0, len(loaded))
	for _, v := range loaded {
		if !v.Timestamp.After(cutoff) {
			continue
		}
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		restored = append(restored, v)
	}
	sort.SliceStable(restored, func(i, j int) bool { return restored[i].Timestamp.Before(restored[j].Timestamp) })

	l.mu.Lock()
	l.entries = append(restored, l.entries...)
	if over := len(l.entries) - l.cfg.MemoryCap; over > 0 {
		l.entries = append([]Violation(nil), l.entries[over:]...)
	}
	l.frequency = countPatterns(l.entries)
	l.mu.Unlock()
	return nil
}

func countPatterns(entries []Violation) map[string]int {
	freq := make(map[string]int)
	for _, v := range entries {
		for _, p := range v.Patterns {
			freq[p]++
		}
	}
	return freq
}

// PatternFrequency returns the attack-pattern counts, most frequent first.
func (l *Ledger) PatternFrequency() []Count {
	l.mu.Lock()
	defer l.mu.Unlock()
	return topCounts(l.frequency, 0)
}
