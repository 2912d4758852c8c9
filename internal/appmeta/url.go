// Package appmeta looks up promoted apps in the App Store and Google Play to
// suggest a plan vertical and a client name.
package appmeta

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrUnsupportedURL is returned for links that are neither App Store nor Google Play.
var ErrUnsupportedURL = errors.New("unsupported app store url")

// ErrNotFound is returned when the store has no record of the app.
var ErrNotFound = errors.New("app not found")

// Store identifies an app marketplace.
type Store string

const (
	StoreApple  Store = "app_store"
	StoreGoogle Store = "google_play"
)

// Target is a parsed store link.
type Target struct {
	Store Store
	ID    string
	// Country is the App Store storefront from the link path, if any.
	Country string
}

// CacheKey identifies the app regardless of storefront.
func (t Target) CacheKey() string {
	return "appmeta:" + string(t.Store) + ":" + t.ID
}

var (
	appleIDPattern      = regexp.MustCompile(`(?i)(?:apps|itunes)\.apple\.com/.*?id(\d+)`)
	appleCountryPattern = regexp.MustCompile(`(?i)(?:apps|itunes)\.apple\.com/([a-z]{2})/`)
	packagePattern      = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)
)

// ParseURL extracts the store and app id from a store link.
func ParseURL(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, ErrUnsupportedURL
	}

	if m := appleIDPattern.FindStringSubmatch(raw); m != nil {
		t := Target{Store: StoreApple, ID: m[1]}
		if c := appleCountryPattern.FindStringSubmatch(raw); c != nil {
			t.Country = strings.ToLower(c[1])
		}
		return t, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, ErrUnsupportedURL
	}
	if strings.EqualFold(u.Host, "play.google.com") && strings.HasPrefix(u.Path, "/store/apps/details") {
		id := u.Query().Get("id")
		if id != "" && packagePattern.MatchString(id) {
			return Target{Store: StoreGoogle, ID: id}, nil
		}
	}
	return Target{}, ErrUnsupportedURL
}
