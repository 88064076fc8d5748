package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Prices go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// BaseModel handles the string ID and the audit timestamps shared by stored records
type BaseModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Audit subject (token "sub" or "system")
	CreatedBy string `gorm:"type:varchar(255)" json:"createdBy,omitempty"`
	UpdatedBy string `gorm:"type:varchar(255)" json:"updatedBy,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not supply an ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == "" {
		base.ID = NewID()
	}
	return
}

// NewID returns a fresh opaque identifier for items and sales.
func NewID() string {
	return uuid.NewString()
}

// Timestamp normalizes t to the representation every store persists: UTC, millisecond precision.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
