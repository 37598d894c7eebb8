package models

import "time"

// Browser labels derived from the raw user-agent string. Only these values
// are ever persisted; the raw string is discarded after classification.
const (
	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserEdge    = "Edge"
	BrowserOpera   = "Opera"
	BrowserUnknown = "Unknown"
)

// Operating system labels derived from the raw user-agent string
const (
	OSWindows = "Windows"
	OSMacOS   = "macOS"
	OSLinux   = "Linux"
	OSAndroid = "Android"
	OSIOS     = "iOS"
	OSUnknown = "Unknown"
)

// VisitEvent represents a single redirect through a short link, recorded
// with privacy-reduced attributes only. Events are immutable once written
// and removed by the retention sweep after the configured horizon.
type VisitEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	LinkID        uint      `gorm:"index:idx_visit_events_link_id;not null" json:"link_id"`
	MaskedAddress string    `gorm:"size:64;not null" json:"masked_address"`
	Browser       string    `gorm:"size:16;not null" json:"browser"`
	OS            string    `gorm:"size:16;not null" json:"os"`
	ReferrerHost  string    `gorm:"size:255;not null" json:"referrer_host"`
	OccurredAt    time.Time `gorm:"not null;index:idx_visit_events_occurred_at" json:"occurred_at"`
}

// TableName returns the table name for VisitEvent
func (VisitEvent) TableName() string { return "visit_events" }

// VisitEventFilter provides filter fields for repository queries.
// From and To are inclusive bounds on OccurredAt; nil means unbounded.
type VisitEventFilter struct {
	LinkID *uint
	From   *time.Time
	To     *time.Time
}

var validBrowsers = map[string]struct{}{
	BrowserChrome: {}, BrowserFirefox: {}, BrowserSafari: {},
	BrowserEdge: {}, BrowserOpera: {}, BrowserUnknown: {},
}

var validOS = map[string]struct{}{
	OSWindows: {}, OSMacOS: {}, OSLinux: {},
	OSAndroid: {}, OSIOS: {}, OSUnknown: {},
}

// NormalizeBrowser maps any value outside the closed browser set to Unknown
func NormalizeBrowser(v string) string {
	if _, ok := validBrowsers[v]; ok {
		return v
	}
	return BrowserUnknown
}

// NormalizeOS maps any value outside the closed OS set to Unknown
func NormalizeOS(v string) string {
	if _, ok := validOS[v]; ok {
		return v
	}
	return OSUnknown
}
