package dto

// LabelCountDTO is one row of a grouped count (referrer host, browser, OS)
type LabelCountDTO struct {
	Label string `json:"label"`
	Count uint64 `json:"count"`
}

// DayCountDTO is one day bucket of the click history
type DayCountDTO struct {
	Day   string `json:"day"`
	Count uint64 `json:"count"`
}

// LinkAnalyticsDTO is the per-link analytics payload. When a time range was
// requested every field is recomputed from the live event subset; otherwise
// the unfiltered live event set is used.
type LinkAnalyticsDTO struct {
	UUID           string          `json:"uuid"`
	Code           string          `json:"code"`
	TotalClicks    uint64          `json:"total_clicks"`
	UniqueVisitors uint64          `json:"unique_visitors"`
	TopReferrers   []LabelCountDTO `json:"top_referrers"`
	TopBrowsers    []LabelCountDTO `json:"top_browsers"`
	TopOS          []LabelCountDTO `json:"top_os"`
	ClickHistory   []DayCountDTO   `json:"click_history"`
	LastClickAt    *string         `json:"last_click_at,omitempty"`
}

// PopularLinkDTO is one entry of the popularity ranking
type PopularLinkDTO struct {
	UUID           string `json:"uuid"`
	Code           string `json:"code"`
	TargetURL      string `json:"target_url"`
	Clicks         uint64 `json:"clicks"`
	TotalClicks    uint64 `json:"total_clicks"`
	UniqueVisitors uint64 `json:"unique_visitors"`
	CreatedAt      string `json:"created_at"`
}

// SystemAnalyticsDTO is the dashboard-wide analytics payload
type SystemAnalyticsDTO struct {
	TotalLinks     int64            `json:"total_links"`
	TotalClicks    int64            `json:"total_clicks"`
	UniqueVisitors int64            `json:"unique_visitors"`
	PopularLinks   []PopularLinkDTO `json:"popular_links"`
}

// AnalyticsRangeRequest carries the optional inclusive date range of
// analytics queries. Dates are RFC3339 or YYYY-MM-DD.
type AnalyticsRangeRequest struct {
	StartDate *string `json:"start_date,omitempty" validate:"omitempty"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty"`
}
