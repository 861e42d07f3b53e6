package useragent

import (
	"strings"
	"sync"

	"github.com/ua-parser/uap-go/uaparser"
)

// Platform values produced by Classify.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
	PlatformWindows = "windows"
	PlatformMacOS   = "macos"
	PlatformLinux   = "linux"
	PlatformWeb     = "web"
)

// Device types produced by Classify.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// PlatformInfo represents classified request signals
type PlatformInfo struct {
	Platform   string // android, ios, windows, macos, linux, web
	DeviceType string // mobile, tablet, desktop
	Browser    string // Chrome, Firefox, Safari, etc.
	OS         string // Android, iOS, Windows, macOS, Linux, unknown
	Raw        string // Original User-Agent string
}

// IsMobile сообщает, относится ли устройство к мобильному классу
func (p *PlatformInfo) IsMobile() bool {
	return p.DeviceType == DeviceMobile || p.DeviceType == DeviceTablet
}

// Parser classifies User-Agent strings. Classification is deterministic and
// never fails: malformed input yields a fully populated default result.
type Parser struct {
	uap *uaparser.Parser
}

var (
	defaultParser *Parser
	once          sync.Once
)

// New creates a parser backed by the compiled-in uap-core definitions.
func New() *Parser {
	return &Parser{uap: uaparser.NewFromSaved()}
}

// Default returns the process-wide parser instance.
func Default() *Parser {
	once.Do(func() {
		defaultParser = New()
	})
	return defaultParser
}

// Classify determines platform, device class, browser and OS from a
// User-Agent string. Mobile OS tokens take precedence over desktop tokens so
// a desktop-grade browser string inside a mobile web-view still classifies as
// mobile; explicit mobile/tablet markers override the OS-derived device type.
func (p *Parser) Classify(userAgent string) *PlatformInfo {
	info := &PlatformInfo{
		Platform:   PlatformWeb,
		DeviceType: DeviceDesktop,
		Browser:    "unknown",
		OS:         "unknown",
		Raw:        userAgent,
	}

	if userAgent == "" {
		return info
	}

	ua := strings.ToLower(userAgent)

	// Порядок проверок важен: Android UA содержит "linux",
	// поэтому мобильные токены идут первыми
	switch {
	case strings.Contains(ua, "android"):
		info.Platform = PlatformAndroid
		info.OS = "Android"
		info.DeviceType = DeviceMobile
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		info.Platform = PlatformIOS
		info.OS = "iOS"
		if strings.Contains(ua, "iphone") {
			info.DeviceType = DeviceMobile
		} else {
			info.DeviceType = DeviceTablet
		}
	case strings.Contains(ua, "windows nt"):
		info.Platform = PlatformWindows
		info.OS = "Windows"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os x"):
		info.Platform = PlatformMacOS
		info.OS = "macOS"
	case strings.Contains(ua, "linux"):
		info.Platform = PlatformLinux
		info.OS = "Linux"
	}

	info.Browser = p.detectBrowser(ua, userAgent)

	// Явные маркеры устройства перекрывают выведенный из ОС класс
	if (strings.Contains(ua, "mobile") || strings.Contains(ua, "phone")) && info.DeviceType == DeviceDesktop {
		info.DeviceType = DeviceMobile
	} else if strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad") {
		info.DeviceType = DeviceTablet
	}

	if info.OS == "unknown" {
		if family := p.osFamily(userAgent); family != "" {
			info.OS = family
		}
	}

	return info
}

// detectBrowser определяет браузер: сначала uap-core, затем грубые подстроки
func (p *Parser) detectBrowser(ua, raw string) string {
	if p.uap != nil {
		if family := p.uap.ParseUserAgent(raw).Family; family != "" && family != "Other" {
			return family
		}
	}

	switch {
	case strings.Contains(ua, "edg"):
		return "Edge"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "safari"):
		return "Safari"
	}
	return "unknown"
}

func (p *Parser) osFamily(raw string) string {
	if p.uap == nil {
		return ""
	}
	family := p.uap.ParseOs(raw).Family
	if family == "Other" {
		return ""
	}
	return family
}
