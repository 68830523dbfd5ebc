package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction kinds.
const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

// Transaction is one entry of a vehicle's income/expense ledger.
type Transaction struct {
	ID          string    `gorm:"primaryKey" json:"id" mapstructure:"-"`
	VehicleID   string    `json:"vehicle_id" gorm:"index;not null" mapstructure:"vehicle_id" validate:"required,max=64"`
	Kind        string    `json:"kind" mapstructure:"kind" validate:"required,oneof=income expense"`
	Category    string    `json:"category" mapstructure:"category" validate:"max=50"`
	Amount      float64   `json:"amount" mapstructure:"amount" validate:"gte=0,lte=1000000000"`
	Date        time.Time `json:"date" gorm:"index" mapstructure:"date" validate:"required"`
	Description string    `json:"description" gorm:"type:text" mapstructure:"description" validate:"max=500"`

	CreatedAt time.Time `json:"created_at" mapstructure:"-"`
	UpdatedAt time.Time `json:"updated_at" mapstructure:"-"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return
}
