package businessflow

import (
	"testing"

	"github.com/amirphl/Kusanagi/models"
	"github.com/stretchr/testify/assert"
)

func TestMaskAddress(t *testing.T) {
	t.Run("IPv4LastOctetHidden", func(t *testing.T) {
		assert.Equal(t, "203.0.113.xxx", MaskAddress("203.0.113.42"))
		assert.Equal(t, "10.0.0.xxx", MaskAddress("10.0.0.1"))
	})

	t.Run("IPv4Deterministic", func(t *testing.T) {
		first := MaskAddress("198.51.100.7")
		second := MaskAddress("198.51.100.7")
		assert.Equal(t, first, second)
	})

	t.Run("SameSubnetCollapses", func(t *testing.T) {
		// Two clients in the same /24 become indistinguishable
		assert.Equal(t, MaskAddress("203.0.113.5"), MaskAddress("203.0.113.200"))
	})

	t.Run("IPv6KeepsFirstFourGroups", func(t *testing.T) {
		masked := MaskAddress("2001:db8:85a3:8d3:1319:8a2e:370:7348")
		assert.Equal(t, "2001:db8:85a3:8d3:xxxx:xxxx:xxxx:xxxx", masked)
	})

	t.Run("IPv6TooFewGroups", func(t *testing.T) {
		assert.Equal(t, "unknown", MaskAddress("::1"))
	})

	t.Run("Malformed", func(t *testing.T) {
		assert.Equal(t, "unknown", MaskAddress(""))
		assert.Equal(t, "unknown", MaskAddress("not-an-address"))
		assert.Equal(t, "unknown", MaskAddress("10.0.0"))
	})

	t.Run("TrimsWhitespace", func(t *testing.T) {
		assert.Equal(t, "203.0.113.xxx", MaskAddress("  203.0.113.42  "))
	})
}

func TestDetectBrowser(t *testing.T) {
	cases := []struct {
		name      string
		userAgent string
		expected  string
	}{
		{"Chrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", models.BrowserChrome},
		{"Firefox", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", models.BrowserFirefox},
		{"Safari", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15", models.BrowserSafari},
		{"EdgeBeforeChrome", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0", models.BrowserEdge},
		{"OperaBeforeChrome", "Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 OPR/106.0", models.BrowserOpera},
		{"Empty", "", models.BrowserUnknown},
		{"Unrecognized", "curl/8.4.0", models.BrowserUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectBrowser(tc.userAgent))
		})
	}
}

func TestDetectOS(t *testing.T) {
	cases := []struct {
		name      string
		userAgent string
		expected  string
	}{
		{"Windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", models.OSWindows},
		{"Linux", "Mozilla/5.0 (X11; Linux x86_64)", models.OSLinux},
		{"AndroidBeforeLinux", "Mozilla/5.0 (Linux; Android 14; Pixel 8)", models.OSAndroid},
		{"MacOS", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)", models.OSMacOS},
		{"IPhoneBeforeMac", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X)", models.OSIOS},
		{"IPad", "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X)", models.OSIOS},
		{"Empty", "", models.OSUnknown},
		{"Unrecognized", "curl/8.4.0", models.OSUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectOS(tc.userAgent))
		})
	}
}

func TestReferrerHost(t *testing.T) {
	t.Run("HostOnly", func(t *testing.T) {
		assert.Equal(t, "news.ycombinator.com", ReferrerHost("https://news.ycombinator.com/item?id=1"))
	})

	t.Run("StripsPort", func(t *testing.T) {
		assert.Equal(t, "example.com", ReferrerHost("http://example.com:8080/path"))
	})

	t.Run("EmptyIsDirect", func(t *testing.T) {
		assert.Equal(t, "direct", ReferrerHost(""))
		assert.Equal(t, "direct", ReferrerHost("   "))
	})

	t.Run("UnparseableIsDirect", func(t *testing.T) {
		assert.Equal(t, "direct", ReferrerHost("://bad"))
		assert.Equal(t, "direct", ReferrerHost("just-a-string"))
	})
}

func TestAnonymize(t *testing.T) {
	a := Anonymize(
		"203.0.113.42",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		"https://example.org/landing",
	)
	assert.Equal(t, "203.0.113.xxx", a.MaskedAddress)
	assert.Equal(t, models.BrowserChrome, a.Browser)
	assert.Equal(t, models.OSWindows, a.OS)
	assert.Equal(t, "example.org", a.ReferrerHost)

	t.Run("AllSentinels", func(t *testing.T) {
		a := Anonymize("", "", "")
		assert.Equal(t, "unknown", a.MaskedAddress)
		assert.Equal(t, models.BrowserUnknown, a.Browser)
		assert.Equal(t, models.OSUnknown, a.OS)
		assert.Equal(t, "direct", a.ReferrerHost)
	})
}
