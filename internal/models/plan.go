package models

import (
	"errors"
	"fmt"
	"strings"
)

// Mode is the campaign goal of a whole plan.
type Mode string

const (
	ModeInstalls  Mode = "installs"
	ModePurchases Mode = "purchases"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeInstalls || m == ModePurchases
}

// ParseMode maps free text to a Mode. The CPA event label "Installs" selects the
// installs goal; every other event label is a purchases/events goal.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "installs", "install":
		return ModeInstalls, nil
	case "purchases", "purchase", "events", "event":
		return ModePurchases, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Vertical is the app category used to scale benchmarks.
type Vertical string

const (
	VerticalGaming        Vertical = "gaming"
	VerticalEntertainment Vertical = "entertainment"
	VerticalSocial        Vertical = "social"
	VerticalHealth        Vertical = "health"
	VerticalUtilities     Vertical = "utilities"
	VerticalEducation     Vertical = "education"
	VerticalEcommerce     Vertical = "ecommerce"
	VerticalTravel        Vertical = "travel"
	VerticalDelivery      Vertical = "delivery"
	VerticalFinance       Vertical = "finance"
	VerticalPharma        Vertical = "pharma"
	VerticalOther         Vertical = "other"
)

// Verticals lists every vertical in display order.
var Verticals = []Vertical{
	VerticalGaming, VerticalEntertainment, VerticalSocial, VerticalHealth,
	VerticalUtilities, VerticalEducation, VerticalEcommerce, VerticalTravel,
	VerticalDelivery, VerticalFinance, VerticalPharma, VerticalOther,
}

// Known reports whether v is one of Verticals.
func (v Vertical) Known() bool {
	for _, k := range Verticals {
		if k == v {
			return true
		}
	}
	return false
}

// Platform is the store platform of a row. Sources may use a custom label such
// as AppGallery.
type Platform string

const (
	PlatformAndroid    Platform = "Android"
	PlatformIOS        Platform = "iOS"
	PlatformAppGallery Platform = "AppGallery"
)

// AppLinks are the store URLs entered for the promoted app.
type AppLinks struct {
	Android string `json:"android,omitempty"`
	IOS     string `json:"ios,omitempty"`
}

// Plan is an ordered set of rows plus the plan-wide settings.
// Totals are never stored; they are derived from Rows.
type Plan struct {
	Client   string   `json:"client,omitempty"`
	Campaign string   `json:"campaign,omitempty"`
	Period   string   `json:"period,omitempty"`
	Event    string   `json:"event,omitempty"`
	Mode     Mode     `json:"mode"`
	Vertical Vertical `json:"vertical"`
	Currency string   `json:"currency"`
	AppLinks AppLinks `json:"app_links"`

	// Geos are the selected GEO codes used when activating sources.
	Geos []string `json:"geos,omitempty"`
	// Sources are the activated source keys.
	Sources []string `json:"sources,omitempty"`

	Rows []*Row `json:"rows"`
}

// Validate checks plan-level settings.
func (p *Plan) Validate() error {
	if !p.Mode.Valid() {
		return fmt.Errorf("invalid mode %q", p.Mode)
	}
	if p.Vertical != "" && !p.Vertical.Known() {
		return fmt.Errorf("invalid vertical %q", p.Vertical)
	}
	if p.Currency == "" {
		return errors.New("currency is required")
	}
	for _, r := range p.Rows {
		if r == nil {
			return errors.New("row must not be null")
		}
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FindRow returns the row with the given id.
func (p *Plan) FindRow(id string) *Row {
	for _, r := range p.Rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// HasSource reports whether key is an active source.
func (p *Plan) HasSource(key string) bool {
	for _, s := range p.Sources {
		if s == key {
			return true
		}
	}
	return false
}

// HasGeo reports whether code is a selected GEO.
func (p *Plan) HasGeo(code string) bool {
	for _, g := range p.Geos {
		if g == code {
			return true
		}
	}
	return false
}
