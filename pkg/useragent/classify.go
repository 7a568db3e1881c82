// Package useragent derives coarse device, browser and OS labels from a raw
// User-Agent string.
//
// Classification is a fixed-priority substring table, not a real User-Agent
// parser. Order matters because the substrings overlap: most Chrome
// user-agents also contain "Safari", so Chrome has to win before Safari is
// considered.
package useragent

import "strings"

// Device classes.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceUnknown = "unknown"
)

// Info holds the coarse labels derived from one User-Agent string.
type Info struct {
	Device  string
	Browser string
	OS      string
}

// Classify derives device, browser and OS labels from ua.
func Classify(ua string) Info {
	return Info{
		Device:  DetectDevice(ua),
		Browser: DetectBrowser(ua),
		OS:      DetectOS(ua),
	}
}

// DetectDevice returns one of desktop, mobile, tablet or unknown.
// Priority: Mobile > Tablet > desktop markers.
func DetectDevice(ua string) string {
	switch {
	case strings.Contains(ua, "Mobile"):
		return DeviceMobile
	case strings.Contains(ua, "Tablet"):
		return DeviceTablet
	case strings.Contains(ua, "Windows"), strings.Contains(ua, "Mac"), strings.Contains(ua, "Linux"):
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}

// DetectBrowser returns a browser name or "unknown".
// Chrome must be checked before Safari: Chrome UAs contain "Safari" too.
func DetectBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "Chrome"):
		return "Chrome"
	case strings.Contains(ua, "Firefox"):
		return "Firefox"
	case strings.Contains(ua, "Safari"):
		return "Safari"
	case strings.Contains(ua, "Edge"):
		return "Edge"
	default:
		return "unknown"
	}
}

// DetectOS returns an operating system name or "unknown".
func DetectOS(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Mac"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "iOS"):
		return "iOS"
	default:
		return "unknown"
	}
}
