package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vehicle is one car, van or truck of the fleet.
type Vehicle struct {
	ID      string `gorm:"primaryKey" json:"id" mapstructure:"-"`
	Plate   string `json:"plate" gorm:"index;not null" mapstructure:"plate" validate:"required,max=15"`
	Brand   string `json:"brand" mapstructure:"brand" validate:"required,max=100"`
	Model   string `json:"model" mapstructure:"model" validate:"required,max=100"`
	Year    int    `json:"year" mapstructure:"year" validate:"omitempty,gte=1900"`
	VIN     string `json:"vin" mapstructure:"vin" validate:"omitempty,len=17"`
	Mileage int64  `json:"mileage" mapstructure:"mileage" validate:"gte=0,lte=10000000"`
	Status  string `json:"status" gorm:"default:'active'" mapstructure:"status" validate:"omitempty,max=50"`
	Notes   string `json:"notes" gorm:"type:text" mapstructure:"notes" validate:"max=2000"`

	CreatedAt time.Time `json:"created_at" mapstructure:"-"`
	UpdatedAt time.Time `json:"updated_at" mapstructure:"-"`
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Status == "" {
		v.Status = "active"
	}
	return
}
