package models

import (
	"encoding/json"
	"time"
)

// ReferrerCount is one entry of the per-link top referrer list
type ReferrerCount struct {
	Host  string `json:"host"`
	Count uint64 `json:"count"`
}

// DayCount is one entry of the per-link daily click history.
// Day is always midnight UTC.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count uint64    `json:"count"`
}

// LinkAggregate holds the running all-time totals for one link. It is
// created zeroed when the link is created and updated on every recorded
// visit. TotalClicks and UniqueVisitors are all-time values; they are not
// decremented when raw events expire out of retention.
//
// TopReferrers and DailyClicks are stored as JSONB documents; Version backs
// the conditional update used for optimistic concurrency.
type LinkAggregate struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	LinkID         uint            `gorm:"not null;uniqueIndex:uk_link_aggregates_link_id" json:"link_id"`
	TotalClicks    uint64          `gorm:"not null;default:0" json:"total_clicks"`
	UniqueVisitors uint64          `gorm:"not null;default:0" json:"unique_visitors"`
	LastClickAt    *time.Time      `json:"last_click_at,omitempty"`
	TopReferrers   json.RawMessage `gorm:"type:jsonb;not null;default:'[]'" json:"top_referrers"`
	DailyClicks    json.RawMessage `gorm:"type:jsonb;not null;default:'[]'" json:"daily_clicks"`
	Version        uint64          `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for LinkAggregate
func (LinkAggregate) TableName() string { return "link_aggregates" }

// ReferrerList decodes the stored top referrer document
func (a *LinkAggregate) ReferrerList() ([]ReferrerCount, error) {
	if len(a.TopReferrers) == 0 {
		return nil, nil
	}
	var out []ReferrerCount
	if err := json.Unmarshal(a.TopReferrers, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetReferrerList encodes and stores the top referrer document
func (a *LinkAggregate) SetReferrerList(list []ReferrerCount) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	a.TopReferrers = b
	return nil
}

// DayList decodes the stored daily click document
func (a *LinkAggregate) DayList() ([]DayCount, error) {
	if len(a.DailyClicks) == 0 {
		return nil, nil
	}
	var out []DayCount
	if err := json.Unmarshal(a.DailyClicks, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetDayList encodes and stores the daily click document
func (a *LinkAggregate) SetDayList(list []DayCount) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	a.DailyClicks = b
	return nil
}
