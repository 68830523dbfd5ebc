package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fleetdesk/backend/internal/audit"
	"github.com/fleetdesk/backend/internal/logger"
	"github.com/fleetdesk/backend/internal/models"
	"github.com/fleetdesk/backend/internal/util"
)

// Decision sources and actions.
const (
	DecisionSourceLedger = "ledger"
	DecisionSourceManual = "manual"
	DecisionBlock        = "block"
	DecisionUnblock      = "unblock"
)

type SecurityService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSecurityService returns a SecurityService using the provided DB
func NewSecurityService(db *gorm.DB) *SecurityService {
	return &SecurityService{db: db, now: time.Now}
}

// LogDecision stores a security decision record
func (s *SecurityService) LogDecision(d *models.SecurityDecision) error {
	if d == nil {
		return nil
	}
	if d.UUID == "" {
		d.UUID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	return s.db.Create(d).Error
}

// ListDecisions returns recent security decisions, ordered by created_at desc
func (s *SecurityService) ListDecisions(limit int) ([]models.SecurityDecision, error) {
	var res []models.SecurityDecision
	q := s.db.Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// LogAudit stores an audit entry
func (s *SecurityService) LogAudit(a *models.SecurityAudit) error {
	if a == nil {
		return nil
	}
	if a.UUID == "" {
		a.UUID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	return s.db.Create(a).Error
}

// ListAudits returns recent audit entries, newest first
func (s *SecurityService) ListAudits(limit int) ([]models.SecurityAudit, error) {
	var res []models.SecurityAudit
	q := s.db.Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// OnBlock persists a block issued by the audit ledger. It has the
// audit.BlockListener signature; failures are only logged.
func (s *SecurityService) OnBlock(b audit.Block) {
	until := b.Until
	d := &models.SecurityDecision{
		Source:     DecisionSourceLedger,
		Action:     DecisionBlock,
		Identifier: b.Identifier,
		Scope:      b.Source,
		Details:    fmt.Sprintf("%d violations in window", b.Count),
		Until:      &until,
	}
	if err := s.LogDecision(d); err != nil {
		logger.Log().WithError(err).WithField("identifier", util.LogSafe(b.Identifier, 100)).Warn("failed to store block decision")
	}
}

// RecordUnblock stores a manual unblock and the matching audit entry.
func (s *SecurityService) RecordUnblock(identifier, actor, ip string) error {
	if err := s.LogDecision(&models.SecurityDecision{
		Source:     DecisionSourceManual,
		Action:     DecisionUnblock,
		Identifier: identifier,
		IP:         ip,
	}); err != nil {
		return err
	}
	return s.LogAudit(&models.SecurityAudit{
		Actor:   actor,
		Action:  "unblock",
		Details: identifier,
	})
}
