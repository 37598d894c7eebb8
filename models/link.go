package models

import (
	"time"

	"github.com/google/uuid"
)

// Link represents a short-code-to-destination mapping
// Code is the short unique token that maps to the target URL
// Clicks is the raw visit counter incremented on every redirect; it is
// independent of the analytics aggregates which are maintained separately
type Link struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_links_uuid" json:"uuid"`
	Code      string    `gorm:"size:64;not null;uniqueIndex:uk_links_code" json:"code"`
	TargetURL string    `gorm:"type:text;not null" json:"target_url"`
	Clicks    uint64    `gorm:"not null;default:0" json:"clicks"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedBy *string   `gorm:"size:128;index:idx_links_created_by" json:"created_by,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_links_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for Link
func (Link) TableName() string { return "links" }

// LinkFilter provides filter fields for repository queries
type LinkFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Code          *string
	IsActive      *bool
	CreatedBy     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
