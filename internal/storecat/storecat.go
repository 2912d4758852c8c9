// Package storecat maps App Store and Google Play category labels to plan
// verticals.
package storecat

import (
	"strings"

	"github.com/radiusdt/mediaplan/internal/models"
)

// categories holds App Store display names and Google Play category ids,
// lower-cased.
var categories = map[string]models.Vertical{
	"games":               models.VerticalGaming,
	"entertainment":       models.VerticalEntertainment,
	"social networking":   models.VerticalSocial,
	"health & fitness":    models.VerticalHealth,
	"medical":             models.VerticalPharma,
	"utilities":           models.VerticalUtilities,
	"education":           models.VerticalEducation,
	"shopping":            models.VerticalEcommerce,
	"travel":              models.VerticalTravel,
	"food & drink":        models.VerticalDelivery,
	"finance":             models.VerticalFinance,
	"lifestyle":           models.VerticalOther,
	"productivity":        models.VerticalUtilities,
	"business":            models.VerticalFinance,
	"news":                models.VerticalEntertainment,
	"sports":              models.VerticalEntertainment,
	"music":               models.VerticalEntertainment,
	"photo & video":       models.VerticalEntertainment,
	"photography":         models.VerticalEntertainment,
	"navigation":          models.VerticalUtilities,
	"weather":             models.VerticalUtilities,
	"reference":           models.VerticalEducation,
	"books":               models.VerticalEducation,
	"developer tools":     models.VerticalUtilities,
	"graphics & design":   models.VerticalUtilities,
	"game":                models.VerticalGaming,
	"game_action":         models.VerticalGaming,
	"game_adventure":      models.VerticalGaming,
	"game_arcade":         models.VerticalGaming,
	"game_board":          models.VerticalGaming,
	"game_card":           models.VerticalGaming,
	"game_casino":         models.VerticalGaming,
	"game_casual":         models.VerticalGaming,
	"game_educational":    models.VerticalGaming,
	"game_music":          models.VerticalGaming,
	"game_puzzle":         models.VerticalGaming,
	"game_racing":         models.VerticalGaming,
	"game_role_playing":   models.VerticalGaming,
	"game_simulation":     models.VerticalGaming,
	"game_sports":         models.VerticalGaming,
	"game_strategy":       models.VerticalGaming,
	"game_trivia":         models.VerticalGaming,
	"game_word":           models.VerticalGaming,
	"social":              models.VerticalSocial,
	"communication":       models.VerticalSocial,
	"dating":              models.VerticalSocial,
	"health_and_fitness":  models.VerticalHealth,
	"tools":               models.VerticalUtilities,
	"travel_and_local":    models.VerticalTravel,
	"maps_and_navigation": models.VerticalTravel,
	"food_and_drink":      models.VerticalDelivery,
	"music_and_audio":     models.VerticalEntertainment,
	"video_players":       models.VerticalEntertainment,
	"news_and_magazines":  models.VerticalEntertainment,
	"books_and_reference": models.VerticalEducation,
	"house_and_home":      models.VerticalOther,
	"beauty":              models.VerticalHealth,
	"parenting":           models.VerticalEducation,
	"auto_and_vehicles":   models.VerticalOther,
	"events":              models.VerticalEntertainment,
	"art_and_design":      models.VerticalUtilities,
	"comics":              models.VerticalEntertainment,
	"libraries_and_demo":  models.VerticalUtilities,
	"personalization":     models.VerticalUtilities,
}

// MapCategory returns the vertical for a store category. Matching is exact
// after trimming and lower-casing; unknown or empty input maps to
// models.VerticalOther.
func MapCategory(category string) models.Vertical {
	if v, ok := categories[strings.ToLower(strings.TrimSpace(category))]; ok {
		return v
	}
	return models.VerticalOther
}

// Known reports whether category has an explicit mapping.
func Known(category string) bool {
	_, ok := categories[strings.ToLower(strings.TrimSpace(category))]
	return ok
}
