package businessflow

import (
	"net/url"
	"strings"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
)

// Anonymized is the privacy-reduced form of a raw visit context. It carries
// everything a VisitEvent persists about the client.
type Anonymized struct {
	MaskedAddress string
	Browser       string
	OS            string
	ReferrerHost  string
}

// addressSentinel replaces the most identifying portion of a client address
const addressSentinel = "xxx"

// Anonymize reduces a raw visit context to persistable attributes. It never
// fails: every unparseable input degrades to its sentinel value.
func Anonymize(rawAddress, rawUserAgent, rawReferrer string) Anonymized {
	return Anonymized{
		MaskedAddress: MaskAddress(rawAddress),
		Browser:       DetectBrowser(rawUserAgent),
		OS:            DetectOS(rawUserAgent),
		ReferrerHost:  ReferrerHost(rawReferrer),
	}
}

// MaskAddress hides the last IPv4 octet behind a fixed sentinel, or keeps
// only the first four groups of an IPv6 address. Anything else is "unknown".
func MaskAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return utils.MaskedAddressUnknown
	}

	if strings.Contains(raw, ":") {
		groups := strings.Split(raw, ":")
		if len(groups) >= 4 {
			kept := groups[:4]
			return strings.Join(kept, ":") + ":xxxx:xxxx:xxxx:xxxx"
		}
		return utils.MaskedAddressUnknown
	}

	parts := strings.Split(raw, ".")
	if len(parts) == 4 {
		parts[3] = addressSentinel
		return strings.Join(parts, ".")
	}

	return utils.MaskedAddressUnknown
}

// DetectBrowser classifies a user-agent string into the closed browser set.
// Order matters: Edge and Opera carry a Chrome token, and Chrome carries a
// Safari token, so the more specific signatures are checked first.
func DetectBrowser(rawUserAgent string) string {
	if rawUserAgent == "" {
		return models.BrowserUnknown
	}
	switch {
	case strings.Contains(rawUserAgent, "Edg"):
		return models.BrowserEdge
	case strings.Contains(rawUserAgent, "OPR") || strings.Contains(rawUserAgent, "Opera"):
		return models.BrowserOpera
	case strings.Contains(rawUserAgent, "Firefox"):
		return models.BrowserFirefox
	case strings.Contains(rawUserAgent, "Chrome"):
		return models.BrowserChrome
	case strings.Contains(rawUserAgent, "Safari"):
		return models.BrowserSafari
	default:
		return models.BrowserUnknown
	}
}

// DetectOS classifies a user-agent string into the closed OS set. Android
// user agents carry a Linux token and iOS ones carry a Mac token, so those
// are checked first.
func DetectOS(rawUserAgent string) string {
	if rawUserAgent == "" {
		return models.OSUnknown
	}
	switch {
	case strings.Contains(rawUserAgent, "Windows"):
		return models.OSWindows
	case strings.Contains(rawUserAgent, "Android"):
		return models.OSAndroid
	case strings.Contains(rawUserAgent, "iPhone"),
		strings.Contains(rawUserAgent, "iPad"),
		strings.Contains(rawUserAgent, "iPod"):
		return models.OSIOS
	case strings.Contains(rawUserAgent, "Mac OS X"), strings.Contains(rawUserAgent, "Macintosh"):
		return models.OSMacOS
	case strings.Contains(rawUserAgent, "Linux"):
		return models.OSLinux
	default:
		return models.OSUnknown
	}
}

// ReferrerHost extracts the hostname of a referrer URL, or "direct" when the
// referrer is absent or unparseable.
func ReferrerHost(rawReferrer string) string {
	rawReferrer = strings.TrimSpace(rawReferrer)
	if rawReferrer == "" {
		return utils.ReferrerDirect
	}
	u, err := url.Parse(rawReferrer)
	if err != nil || u.Hostname() == "" {
		return utils.ReferrerDirect
	}
	return u.Hostname()
}
