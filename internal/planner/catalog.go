package planner

import (
	"strings"

	"github.com/radiusdt/mediaplan/internal/models"
)

// Source is a selectable traffic source.
type Source struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	// Platform, when set, replaces the Android/iOS split for every row.
	Platform models.Platform `json:"platform,omitempty"`
	// AndroidOnly sources never get iOS rows, whatever app links are set.
	AndroidOnly bool `json:"android_only,omitempty"`
}

// Catalog is the ordered list of traffic sources.
type Catalog []Source

// DefaultCatalog returns the built-in sources.
func DefaultCatalog() Catalog {
	return Catalog{
		{Key: "xiaomi", Label: "Xiaomi", AndroidOnly: true},
		{Key: "xiaomi_codev", Label: "Xiaomi CoDev", AndroidOnly: true},
		{Key: "huawei", Label: "Huawei", Platform: models.PlatformAppGallery, AndroidOnly: true},
		{Key: "samsung", Label: "Samsung"},
		{Key: "oppo", Label: "OPPO"},
		{Key: "vivo", Label: "vivo"},
		{Key: "realme", Label: "realme"},
		{Key: "transsion", Label: "Transsion"},
		{Key: "facebook", Label: "Meta (Facebook)"},
		{Key: "google", Label: "Google Ads", AndroidOnly: true},
		{Key: "tiktok", Label: "TikTok"},
		{Key: "unity", Label: "Unity Ads"},
		{Key: "applovin", Label: "AppLovin"},
		{Key: "ironsource", Label: "ironSource"},
		{Key: "mintegral", Label: "Mintegral"},
		{Key: "appnext", Label: "Appnext", AndroidOnly: true},
		{Key: "xapads", Label: "Xapads", AndroidOnly: true},
		{Key: "yandex", Label: "Yandex Direct"},
		{Key: "vk", Label: "VK Ads"},
		{Key: "snapchat", Label: "Snapchat"},
		{Key: "moloco", Label: "Moloco"},
		{Key: "liftoff", Label: "Liftoff"},
		{Key: "digital_turbine", Label: "Digital Turbine"},
	}
}

// Lookup returns the source with key.
func (c Catalog) Lookup(key string) (Source, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range c {
		if s.Key == key {
			return s, true
		}
	}
	return Source{}, false
}

// Platforms returns the platforms rows of s are created for. Without an iOS
// link only Android rows are created; with only an iOS link only iOS rows.
func (s Source) Platforms(links models.AppLinks) []models.Platform {
	if s.Platform != "" {
		return []models.Platform{s.Platform}
	}
	if s.AndroidOnly {
		return []models.Platform{models.PlatformAndroid}
	}
	hasAndroid := strings.TrimSpace(links.Android) != ""
	hasIOS := strings.TrimSpace(links.IOS) != ""
	switch {
	case hasAndroid && hasIOS:
		return []models.Platform{models.PlatformAndroid, models.PlatformIOS}
	case hasIOS:
		return []models.Platform{models.PlatformIOS}
	default:
		return []models.Platform{models.PlatformAndroid}
	}
}
