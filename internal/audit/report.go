package audit

import "sort"

// Metrics summarizes the records inside the metrics window. It is computed
// from scratch on every call.
func (l *Ledger) Metrics() Metrics {
	now := l.now()
	cutoff := now.Add(-l.cfg.MetricsWindow)

	l.mu.Lock()
	recent := make([]Violation, 0, len(l.entries))
	for _, v := range l.entries {
		if v.Timestamp.After(cutoff) {
			recent = append(recent, v)
		}
	}
	blocked := 0
	for _, b := range l.blocks {
		if now.Before(b.Until) {
			blocked++
		}
	}
	l.mu.Unlock()

	m := Metrics{
		Window:      l.cfg.MetricsWindow,
		GeneratedAt: now,
		Total:       len(recent),
		ByType:      make(map[ViolationType]int),
		BySeverity:  make(map[Severity]int),
		Blocked:     blocked,
	}
	fields := make(map[string]int)
	pats := make(map[string]int)
	penalty := 0
	critical := false
	for _, v := range recent {
		m.ByType[v.Type]++
		m.BySeverity[v.Severity]++
		if v.FieldName != "" {
			fields[v.FieldName]++
		}
		for _, p := range v.Patterns {
			pats[p]++
		}
		penalty += v.Severity.weight()
		if v.Severity == SeverityCritical {
			critical = true
		}
	}
	m.TopFields = topCounts(fields, l.cfg.TopN)
	m.TopPatterns = topCounts(pats, l.cfg.TopN)
	m.Score = max(0, 100-penalty)
	m.ThreatLevel = threatLevel(m.Score, critical)
	return m
}

func threatLevel(score int, critical bool) ThreatLevel {
	switch {
	case critical:
		return ThreatCritical
	case score >= 80:
		return ThreatSafe
	case score >= 50:
		return ThreatSuspicious
	default:
		return ThreatDangerous
	}
}

// topCounts sorts counts by frequency then name. n <= 0 keeps everything.
func topCounts(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for name, c := range counts {
		out = append(out, Count{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
