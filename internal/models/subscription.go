package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription is the account's billing plan.
type Subscription struct {
	ID           string     `gorm:"primaryKey" json:"id" mapstructure:"-"`
	Plan         string     `json:"plan" mapstructure:"plan" validate:"required,max=50"`
	Status       string     `json:"status" gorm:"default:'active'" mapstructure:"status" validate:"omitempty,max=50"`
	BillingEmail string     `json:"billing_email" mapstructure:"billing_email" validate:"required,email"`
	Amount       float64    `json:"amount" mapstructure:"amount" validate:"gte=0,lte=1000000000"`
	RenewsOn     *time.Time `json:"renews_on,omitempty" mapstructure:"renews_on"`
	// Website is stored HTML-escaped, so it is not checked as a URL here.
	Website string `json:"website" mapstructure:"website" validate:"max=2048"`

	CreatedAt time.Time `json:"created_at" mapstructure:"-"`
	UpdatedAt time.Time `json:"updated_at" mapstructure:"-"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = "active"
	}
	return
}
