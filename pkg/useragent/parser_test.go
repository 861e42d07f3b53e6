package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	parser := New()

	tests := []struct {
		name       string
		userAgent  string
		platform   string
		deviceType string
		os         string
	}{
		{
			name:       "android phone",
			userAgent:  "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Mobile Safari/537.36",
			platform:   PlatformAndroid,
			deviceType: DeviceMobile,
			os:         "Android",
		},
		{
			name:       "android takes precedence over embedded linux token",
			userAgent:  "Mozilla/5.0 (Linux; Android 11; SM-G991B)",
			platform:   PlatformAndroid,
			deviceType: DeviceMobile,
			os:         "Android",
		},
		{
			name:       "iphone",
			userAgent:  "Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1",
			platform:   PlatformIOS,
			deviceType: DeviceMobile,
			os:         "iOS",
		},
		{
			name:       "ipad is a tablet",
			userAgent:  "Mozilla/5.0 (iPad; CPU OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1",
			platform:   PlatformIOS,
			deviceType: DeviceTablet,
			os:         "iOS",
		},
		{
			name:       "windows desktop",
			userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
			platform:   PlatformWindows,
			deviceType: DeviceDesktop,
			os:         "Windows",
		},
		{
			name:       "mac desktop",
			userAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
			platform:   PlatformMacOS,
			deviceType: DeviceDesktop,
			os:         "macOS",
		},
		{
			name:       "linux desktop",
			userAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
			platform:   PlatformLinux,
			deviceType: DeviceDesktop,
			os:         "Linux",
		},
		{
			name:       "explicit mobile marker overrides desktop default",
			userAgent:  "Mozilla/5.0 (Windows NT 10.0) Mobile Browser",
			platform:   PlatformWindows,
			deviceType: DeviceMobile,
			os:         "Windows",
		},
		{
			name:       "explicit tablet marker",
			userAgent:  "Mozilla/5.0 (Linux; Android 12; Tablet) AppleWebKit/537.36",
			platform:   PlatformAndroid,
			deviceType: DeviceTablet,
			os:         "Android",
		},
		{
			name:       "empty input yields populated defaults",
			userAgent:  "",
			platform:   PlatformWeb,
			deviceType: DeviceDesktop,
			os:         "unknown",
		},
		{
			name:       "garbage input never errors",
			userAgent:  "\x00\x01 definitely-not-a-browser",
			platform:   PlatformWeb,
			deviceType: DeviceDesktop,
			os:         "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := parser.Classify(tt.userAgent)

			assert.Equal(t, tt.platform, info.Platform)
			assert.Equal(t, tt.deviceType, info.DeviceType)
			assert.Equal(t, tt.os, info.OS)
			assert.NotEmpty(t, info.Browser)
			assert.Equal(t, tt.userAgent, info.Raw)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	parser := New()
	userAgent := "Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X)"

	first := parser.Classify(userAgent)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, parser.Classify(userAgent))
	}
}

func TestIsMobile(t *testing.T) {
	assert.True(t, (&PlatformInfo{DeviceType: DeviceMobile}).IsMobile())
	assert.True(t, (&PlatformInfo{DeviceType: DeviceTablet}).IsMobile())
	assert.False(t, (&PlatformInfo{DeviceType: DeviceDesktop}).IsMobile())
}
