package useragent

import "strings"

const (
	unknownBrowser = "Unknown Browser"
	unknownOS      = "Unknown OS"
)

// Detection order matters: Edge and Opera embed "Chrome", Chrome embeds
// "Safari", so the more specific markers come first.
var browserMarkers = []struct{ name, marker string }{
	{"Edge", "Edg/"},
	{"Opera", "OPR/"},
	{"Chrome", "Chrome/"},
	{"Firefox", "Firefox/"},
	{"Safari", "Safari/"},
}

var osMarkers = []struct{ name, marker string }{
	{"iOS", "iPhone"},
	{"iOS", "iPad"},
	{"Android", "Android"},
	{"Windows", "Windows"},
	{"macOS", "Mac OS X"},
	{"Linux", "Linux"},
}

// UserAgent holds the parsed browser and operating system names.
type UserAgent struct {
	Browser string
	OS      string
}

// Parse extracts browser and OS from a raw User-Agent string.
func Parse(raw string) UserAgent {
	ua := UserAgent{Browser: unknownBrowser, OS: unknownOS}

	for _, b := range browserMarkers {
		if strings.Contains(raw, b.marker) {
			ua.Browser = b.name
			break
		}
	}
	for _, o := range osMarkers {
		if strings.Contains(raw, o.marker) {
			ua.OS = o.name
			break
		}
	}
	return ua
}

// DeviceName returns the display label used for trusted-device rows.
func DeviceName(raw string) string {
	ua := Parse(raw)
	return ua.Browser + " on " + ua.OS
}
