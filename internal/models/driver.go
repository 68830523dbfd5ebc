package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Driver is a person allowed to operate fleet vehicles.
type Driver struct {
	ID            string `gorm:"primaryKey" json:"id" mapstructure:"-"`
	Name          string `json:"name" gorm:"not null" mapstructure:"name" validate:"required,max=100"`
	Email         string `json:"email" mapstructure:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" mapstructure:"phone" validate:"max=20"`
	LicenseNumber string `json:"license_number" mapstructure:"license_number" validate:"max=64"`
	VehicleID     string `json:"vehicle_id" gorm:"index" mapstructure:"vehicle_id" validate:"max=64"`
	Notes         string `json:"notes" gorm:"type:text" mapstructure:"notes" validate:"max=2000"`

	CreatedAt time.Time `json:"created_at" mapstructure:"-"`
	UpdatedAt time.Time `json:"updated_at" mapstructure:"-"`
}

func (d *Driver) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return
}
