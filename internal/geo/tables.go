package geo

import "github.com/radiusdt/mediaplan/internal/models"

// RegionRest is the catch-all region for countries without a region mapping.
const RegionRest = "rest"

// Tables holds the GEO multiplier data. Values are factors relative to the US
// reference market.
type Tables struct {
	// Countries has direct multipliers for a curated set of markets.
	Countries map[string]models.Multiplier `yaml:"countries" json:"countries"`
	// Regions has fallback multipliers; it must contain RegionRest.
	Regions map[string]models.Multiplier `yaml:"regions" json:"regions"`
	// CountryRegion maps an ISO code to a key of Regions.
	CountryRegion map[string]string `yaml:"country_region" json:"country_region"`
}

// DefaultTables returns the built-in GEO tables.
func DefaultTables() Tables {
	return Tables{
		Countries: map[string]models.Multiplier{
			// North America / Oceania
			"US": {CTR: 1.00, CRInstall: 1.00, CPI: 1.00},
			"CA": {CTR: 1.00, CRInstall: 1.00, CPI: 0.90},
			"AU": {CTR: 1.00, CRInstall: 1.00, CPI: 0.95},
			"NZ": {CTR: 1.00, CRInstall: 0.95, CPI: 0.80},
			// Europe
			"GB": {CTR: 0.95, CRInstall: 0.95, CPI: 0.90},
			"DE": {CTR: 0.90, CRInstall: 0.95, CPI: 0.85},
			"FR": {CTR: 0.95, CRInstall: 0.95, CPI: 0.80},
			"NL": {CTR: 0.95, CRInstall: 1.00, CPI: 0.85},
			"CH": {CTR: 0.90, CRInstall: 1.00, CPI: 1.05},
			"SE": {CTR: 0.95, CRInstall: 1.00, CPI: 0.90},
			"NO": {CTR: 0.95, CRInstall: 1.00, CPI: 0.95},
			"IT": {CTR: 1.00, CRInstall: 0.90, CPI: 0.65},
			"ES": {CTR: 1.05, CRInstall: 0.90, CPI: 0.60},
			"PL": {CTR: 1.10, CRInstall: 0.85, CPI: 0.45},
			"TR": {CTR: 1.15, CRInstall: 0.80, CPI: 0.30},
			// CIS
			"RU": {CTR: 1.10, CRInstall: 0.85, CPI: 0.40},
			"UA": {CTR: 1.10, CRInstall: 0.80, CPI: 0.25},
			// Asia
			"JP": {CTR: 0.85, CRInstall: 1.05, CPI: 1.10},
			"KR": {CTR: 0.90, CRInstall: 1.00, CPI: 1.00},
			"CN": {CTR: 1.05, CRInstall: 0.85, CPI: 0.60},
			"SG": {CTR: 0.95, CRInstall: 1.00, CPI: 0.90},
			"IN": {CTR: 1.20, CRInstall: 0.70, CPI: 0.15},
			"ID": {CTR: 1.20, CRInstall: 0.65, CPI: 0.20},
			"TH": {CTR: 1.15, CRInstall: 0.70, CPI: 0.25},
			"VN": {CTR: 1.20, CRInstall: 0.65, CPI: 0.20},
			"PH": {CTR: 1.20, CRInstall: 0.65, CPI: 0.20},
			// Latin America
			"BR": {CTR: 1.15, CRInstall: 0.80, CPI: 0.35},
			"MX": {CTR: 1.10, CRInstall: 0.80, CPI: 0.40},
			// Middle East / Africa
			"AE": {CTR: 1.00, CRInstall: 0.95, CPI: 0.85},
			"SA": {CTR: 1.00, CRInstall: 0.90, CPI: 0.80},
			"IL": {CTR: 0.95, CRInstall: 0.95, CPI: 0.85},
			"EG": {CTR: 1.15, CRInstall: 0.60, CPI: 0.20},
			"ZA": {CTR: 1.10, CRInstall: 0.70, CPI: 0.35},
			"NG": {CTR: 1.20, CRInstall: 0.55, CPI: 0.15},
		},
		Regions: map[string]models.Multiplier{
			"north_america":      {CTR: 1.00, CRInstall: 1.00, CPI: 1.00},
			"western_europe":     {CTR: 0.95, CRInstall: 0.95, CPI: 0.85},
			"southern_europe":    {CTR: 1.05, CRInstall: 0.90, CPI: 0.60},
			"eastern_europe":     {CTR: 1.10, CRInstall: 0.80, CPI: 0.45},
			"cis":                {CTR: 1.10, CRInstall: 0.80, CPI: 0.40},
			"latam":              {CTR: 1.15, CRInstall: 0.75, CPI: 0.35},
			"gulf":               {CTR: 1.00, CRInstall: 0.90, CPI: 0.85},
			"mena":               {CTR: 1.10, CRInstall: 0.75, CPI: 0.45},
			"east_asia":          {CTR: 0.95, CRInstall: 0.90, CPI: 0.90},
			"southeast_asia":     {CTR: 1.15, CRInstall: 0.65, CPI: 0.25},
			"south_asia":         {CTR: 1.20, CRInstall: 0.60, CPI: 0.15},
			"sub_saharan_africa": {CTR: 1.15, CRInstall: 0.55, CPI: 0.20},
			"oceania":            {CTR: 1.00, CRInstall: 1.00, CPI: 0.90},
			RegionRest:           {CTR: 1.15, CRInstall: 0.60, CPI: 0.20},
		},
		CountryRegion: defaultCountryRegion(),
	}
}

func defaultCountryRegion() map[string]string {
	groups := map[string][]string{
		"north_america":      {"US", "CA"},
		"western_europe":     {"GB", "IE", "DE", "FR", "NL", "BE", "LU", "AT", "CH", "LI", "MC", "SE", "NO", "DK", "FI", "IS"},
		"southern_europe":    {"IT", "ES", "PT", "GR", "MT", "CY", "AD"},
		"eastern_europe":     {"PL", "CZ", "SK", "HU", "RO", "BG", "HR", "SI", "RS", "BA", "ME", "MK", "AL", "LT", "LV", "EE", "MD", "TR"},
		"cis":                {"RU", "UA", "BY", "KZ", "UZ", "KG", "TJ", "TM", "AZ", "AM", "GE"},
		"latam":              {"MX", "BR", "AR", "CL", "CO", "PE", "EC", "BO", "PY", "UY", "VE", "CR", "PA", "GT", "HN", "SV", "NI", "DO", "CU", "JM", "HT", "TT", "BS", "BB", "BZ", "GY", "SR", "DM", "GD", "AG"},
		"gulf":               {"AE", "SA", "QA", "KW", "BH", "OM"},
		"mena":               {"EG", "MA", "DZ", "TN", "LY", "JO", "LB", "IQ", "IR", "SY", "YE", "IL"},
		"east_asia":          {"JP", "KR", "CN", "TW", "HK", "MO", "MN"},
		"southeast_asia":     {"SG", "MY", "TH", "VN", "PH", "ID", "KH", "LA", "MM", "BN", "TL"},
		"south_asia":         {"IN", "PK", "BD", "LK", "NP", "BT", "MV", "AF"},
		"sub_saharan_africa": {"NG", "ZA", "KE", "GH", "ET", "TZ", "UG", "RW", "SN", "CI", "CM", "AO", "MZ", "ZM", "ZW", "BW", "NA"},
		"oceania":            {"AU", "NZ"},
	}
	out := make(map[string]string)
	for region, codes := range groups {
		for _, c := range codes {
			out[c] = region
		}
	}
	return out
}
