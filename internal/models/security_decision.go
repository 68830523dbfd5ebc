package models

import (
	"time"
)

// SecurityDecision stores a block or unblock of an identifier, whether issued
// by the audit ledger or by an administrator, so it can be reviewed later.
type SecurityDecision struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UUID       string     `json:"uuid" gorm:"uniqueIndex"`
	Source     string     `json:"source"` // ledger, manual
	Action     string     `json:"action"` // block, unblock
	Identifier string     `json:"identifier" gorm:"index"`
	IP         string     `json:"ip"`
	Scope      string     `json:"scope"` // operation:resource that triggered the block
	Details    string     `json:"details" gorm:"type:text"`
	Until      *time.Time `json:"until,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
