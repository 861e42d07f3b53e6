package service

import (
	"Synctra-Backend/internal/domain"
	"Synctra-Backend/pkg/useragent"
	"net/url"
	"sort"
	"strings"
)

// utmOrder фиксирует порядок добавления UTM-параметров
var utmOrder = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"}

// AppendParams добавляет непустые query-параметры к URL:
// "&" если query string уже есть, "?" иначе. UTM-поля идут первыми
// в каноническом порядке, остальные ключи — отсортированными.
func AppendParams(rawURL string, params map[string]string) string {
	if len(params) == 0 {
		return rawURL
	}

	keys := make([]string, 0, len(params))
	seen := make(map[string]bool, len(params))
	for _, key := range utmOrder {
		if value, ok := params[key]; ok && value != "" {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	var rest []string
	for key, value := range params {
		if !seen[key] && value != "" {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	if len(keys) == 0 {
		return rawURL
	}

	var sb strings.Builder
	sb.WriteString(rawURL)
	separator := "?"
	if strings.Contains(rawURL, "?") {
		separator = "&"
	}
	for _, key := range keys {
		sb.WriteString(separator)
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(url.QueryEscape(params[key]))
		separator = "&"
	}
	return sb.String()
}

// platformFallbackURL выбирает базовый URL назначения: платформенный fallback
// ссылки, затем проекта, затем исходный URL
func platformFallbackURL(link *domain.Link, project *domain.Project, platform string) string {
	pick := func(values ...*string) string {
		for _, value := range values {
			if value != nil && *value != "" {
				return *value
			}
		}
		return link.OriginalURL
	}

	switch platform {
	case useragent.PlatformAndroid:
		if project != nil {
			return pick(link.AndroidFallbackURL, project.AndroidFallbackURL)
		}
		return pick(link.AndroidFallbackURL)
	case useragent.PlatformIOS:
		if project != nil {
			return pick(link.IOSFallbackURL, project.IOSFallbackURL)
		}
		return pick(link.IOSFallbackURL)
	case useragent.PlatformWindows, useragent.PlatformMacOS, useragent.PlatformLinux:
		if project != nil {
			return pick(link.DesktopFallbackURL, project.DesktopFallbackURL)
		}
		return pick(link.DesktopFallbackURL)
	}
	return link.OriginalURL
}

// buildIntentURL строит Android intent-URI с встроенным браузерным fallback
func buildIntentURL(destination, packageName, fallbackURL string) string {
	scheme := "https"
	stripped := destination
	if parsed, err := url.Parse(destination); err == nil && parsed.Scheme != "" {
		scheme = parsed.Scheme
		stripped = strings.TrimPrefix(destination, parsed.Scheme+"://")
	}

	var sb strings.Builder
	sb.WriteString("intent://")
	sb.WriteString(stripped)
	sb.WriteString("#Intent;scheme=")
	sb.WriteString(scheme)
	sb.WriteString(";package=")
	sb.WriteString(packageName)
	if fallbackURL != "" {
		sb.WriteString(";S.browser_fallback_url=")
		sb.WriteString(url.QueryEscape(fallbackURL))
	}
	sb.WriteString(";end")
	return sb.String()
}

// buildSchemeURL строит попытку открытия iOS-приложения через custom scheme
func buildSchemeURL(customScheme, bundleID, destination string) string {
	scheme := ""
	if customScheme != "" {
		scheme = customScheme
	} else if bundleID != "" {
		scheme = bundleID + "://"
	}
	if scheme == "" {
		return ""
	}
	if !strings.HasSuffix(scheme, "://") {
		scheme += "://"
	}
	return scheme + "open?url=" + url.QueryEscape(destination)
}
