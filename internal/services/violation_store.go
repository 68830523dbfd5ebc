package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fleetdesk/backend/internal/audit"
	"github.com/fleetdesk/backend/internal/models"
)

// ViolationsSettingKey is the settings row holding the persisted ledger tail.
const ViolationsSettingKey = "security.violations"

// ViolationStore persists the audit ledger tail as one JSON blob in the
// settings table.
type ViolationStore struct {
	db *gorm.DB
}

var _ audit.Store = (*ViolationStore)(nil)

// NewViolationStore returns a ViolationStore using the provided DB
func NewViolationStore(db *gorm.DB) *ViolationStore {
	return &ViolationStore{db: db}
}

// Load returns the stored violations. A missing row is an empty ledger.
func (s *ViolationStore) Load(ctx context.Context) ([]audit.Violation, error) {
	var row models.Setting
	if err := s.db.WithContext(ctx).Where("key = ?", ViolationsSettingKey).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load violations: %w", err)
	}
	if row.Value == "" {
		return nil, nil
	}
	var out []audit.Violation
	if err := json.Unmarshal([]byte(row.Value), &out); err != nil {
		return nil, fmt.Errorf("decode violations: %w", err)
	}
	return out, nil
}

// Save replaces the stored violations.
func (s *ViolationStore) Save(ctx context.Context, violations []audit.Violation) error {
	if violations == nil {
		violations = []audit.Violation{}
	}
	b, err := json.Marshal(violations)
	if err != nil {
		return fmt.Errorf("encode violations: %w", err)
	}
	row := models.Setting{Key: ViolationsSettingKey, Value: string(b), Type: "json", Category: "security"}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}
