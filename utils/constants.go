package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for admin access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for admin refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Short link constants
const (
	// ShortCodeLength is the number of characters in a generated short code
	ShortCodeLength = 8

	// ShortCodeAlphabet is the base62 alphabet used for short codes
	ShortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// ShortCodeMaxRetries bounds collision retries during code generation
	ShortCodeMaxRetries = 5
)

// Analytics constants
const (
	// DefaultRetentionDays is how long raw visit events are kept before the
	// retention sweep removes them, measured from the event timestamp.
	DefaultRetentionDays = 90

	// TopReferrersCap bounds the per-link top referrer list
	TopReferrersCap = 10

	// TopAgentsCap bounds the per-link top browser and top OS lists
	TopAgentsCap = 10

	// DailyClicksCap bounds the per-link daily click history (distinct days)
	DailyClicksCap = 30

	// DefaultPopularLimit is the default number of popular links returned
	DefaultPopularLimit = 10

	// MaxPopularLimit clamps caller-supplied popular link limits
	MaxPopularLimit = 100

	// MaskedAddressUnknown is the sentinel for an unparseable client address
	MaskedAddressUnknown = "unknown"

	// ReferrerDirect is the sentinel for an absent or unparseable referrer
	ReferrerDirect = "direct"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
