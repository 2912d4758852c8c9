package geo

// Country is an ISO 3166-1 alpha-2 code with its English display name.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// countries is sorted by name.
var countries = []Country{
	{Code: "AF", Name: "Afghanistan"},
	{Code: "AL", Name: "Albania"},
	{Code: "DZ", Name: "Algeria"},
	{Code: "AD", Name: "Andorra"},
	{Code: "AO", Name: "Angola"},
	{Code: "AG", Name: "Antigua and Barbuda"},
	{Code: "AR", Name: "Argentina"},
	{Code: "AM", Name: "Armenia"},
	{Code: "AU", Name: "Australia"},
	{Code: "AT", Name: "Austria"},
	{Code: "AZ", Name: "Azerbaijan"},
	{Code: "BS", Name: "Bahamas"},
	{Code: "BH", Name: "Bahrain"},
	{Code: "BD", Name: "Bangladesh"},
	{Code: "BB", Name: "Barbados"},
	{Code: "BY", Name: "Belarus"},
	{Code: "BE", Name: "Belgium"},
	{Code: "BZ", Name: "Belize"},
	{Code: "BJ", Name: "Benin"},
	{Code: "BT", Name: "Bhutan"},
	{Code: "BO", Name: "Bolivia"},
	{Code: "BA", Name: "Bosnia and Herzegovina"},
	{Code: "BW", Name: "Botswana"},
	{Code: "BR", Name: "Brazil"},
	{Code: "BN", Name: "Brunei"},
	{Code: "BG", Name: "Bulgaria"},
	{Code: "BF", Name: "Burkina Faso"},
	{Code: "BI", Name: "Burundi"},
	{Code: "CV", Name: "Cabo Verde"},
	{Code: "KH", Name: "Cambodia"},
	{Code: "CM", Name: "Cameroon"},
	{Code: "CA", Name: "Canada"},
	{Code: "CF", Name: "Central African Republic"},
	{Code: "TD", Name: "Chad"},
	{Code: "CL", Name: "Chile"},
	{Code: "CN", Name: "China"},
	{Code: "CO", Name: "Colombia"},
	{Code: "KM", Name: "Comoros"},
	{Code: "CG", Name: "Congo"},
	{Code: "CD", Name: "Congo (DRC)"},
	{Code: "CR", Name: "Costa Rica"},
	{Code: "CI", Name: "Cote d'Ivoire"},
	{Code: "HR", Name: "Croatia"},
	{Code: "CU", Name: "Cuba"},
	{Code: "CY", Name: "Cyprus"},
	{Code: "CZ", Name: "Czech Republic"},
	{Code: "DK", Name: "Denmark"},
	{Code: "DJ", Name: "Djibouti"},
	{Code: "DM", Name: "Dominica"},
	{Code: "DO", Name: "Dominican Republic"},
	{Code: "EC", Name: "Ecuador"},
	{Code: "EG", Name: "Egypt"},
	{Code: "SV", Name: "El Salvador"},
	{Code: "GQ", Name: "Equatorial Guinea"},
	{Code: "ER", Name: "Eritrea"},
	{Code: "EE", Name: "Estonia"},
	{Code: "SZ", Name: "Eswatini"},
	{Code: "ET", Name: "Ethiopia"},
	{Code: "FJ", Name: "Fiji"},
	{Code: "FI", Name: "Finland"},
	{Code: "FR", Name: "France"},
	{Code: "GA", Name: "Gabon"},
	{Code: "GM", Name: "Gambia"},
	{Code: "GE", Name: "Georgia"},
	{Code: "DE", Name: "Germany"},
	{Code: "GH", Name: "Ghana"},
	{Code: "GR", Name: "Greece"},
	{Code: "GD", Name: "Grenada"},
	{Code: "GT", Name: "Guatemala"},
	{Code: "GN", Name: "Guinea"},
	{Code: "GW", Name: "Guinea-Bissau"},
	{Code: "GY", Name: "Guyana"},
	{Code: "HT", Name: "Haiti"},
	{Code: "HN", Name: "Honduras"},
	{Code: "HK", Name: "Hong Kong"},
	{Code: "HU", Name: "Hungary"},
	{Code: "IS", Name: "Iceland"},
	{Code: "IN", Name: "India"},
	{Code: "ID", Name: "Indonesia"},
	{Code: "IR", Name: "Iran"},
	{Code: "IQ", Name: "Iraq"},
	{Code: "IE", Name: "Ireland"},
	{Code: "IL", Name: "Israel"},
	{Code: "IT", Name: "Italy"},
	{Code: "JM", Name: "Jamaica"},
	{Code: "JP", Name: "Japan"},
	{Code: "JO", Name: "Jordan"},
	{Code: "KZ", Name: "Kazakhstan"},
	{Code: "KE", Name: "Kenya"},
	{Code: "KI", Name: "Kiribati"},
	{Code: "KP", Name: "Korea (North)"},
	{Code: "KR", Name: "Korea (South)"},
	{Code: "KW", Name: "Kuwait"},
	{Code: "KG", Name: "Kyrgyzstan"},
	{Code: "LA", Name: "Laos"},
	{Code: "LV", Name: "Latvia"},
	{Code: "LB", Name: "Lebanon"},
	{Code: "LS", Name: "Lesotho"},
	{Code: "LR", Name: "Liberia"},
	{Code: "LY", Name: "Libya"},
	{Code: "LI", Name: "Liechtenstein"},
	{Code: "LT", Name: "Lithuania"},
	{Code: "LU", Name: "Luxembourg"},
	{Code: "MO", Name: "Macao"},
	{Code: "MG", Name: "Madagascar"},
	{Code: "MW", Name: "Malawi"},
	{Code: "MY", Name: "Malaysia"},
	{Code: "MV", Name: "Maldives"},
	{Code: "ML", Name: "Mali"},
	{Code: "MT", Name: "Malta"},
	{Code: "MR", Name: "Mauritania"},
	{Code: "MU", Name: "Mauritius"},
	{Code: "MX", Name: "Mexico"},
	{Code: "MD", Name: "Moldova"},
	{Code: "MC", Name: "Monaco"},
	{Code: "MN", Name: "Mongolia"},
	{Code: "ME", Name: "Montenegro"},
	{Code: "MA", Name: "Morocco"},
	{Code: "MZ", Name: "Mozambique"},
	{Code: "MM", Name: "Myanmar"},
	{Code: "NA", Name: "Namibia"},
	{Code: "NP", Name: "Nepal"},
	{Code: "NL", Name: "Netherlands"},
	{Code: "NZ", Name: "New Zealand"},
	{Code: "NI", Name: "Nicaragua"},
	{Code: "NE", Name: "Niger"},
	{Code: "NG", Name: "Nigeria"},
	{Code: "MK", Name: "North Macedonia"},
	{Code: "NO", Name: "Norway"},
	{Code: "OM", Name: "Oman"},
	{Code: "PK", Name: "Pakistan"},
	{Code: "PA", Name: "Panama"},
	{Code: "PG", Name: "Papua New Guinea"},
	{Code: "PY", Name: "Paraguay"},
	{Code: "PE", Name: "Peru"},
	{Code: "PH", Name: "Philippines"},
	{Code: "PL", Name: "Poland"},
	{Code: "PT", Name: "Portugal"},
	{Code: "QA", Name: "Qatar"},
	{Code: "RO", Name: "Romania"},
	{Code: "RU", Name: "Russia"},
	{Code: "RW", Name: "Rwanda"},
	{Code: "SA", Name: "Saudi Arabia"},
	{Code: "SN", Name: "Senegal"},
	{Code: "RS", Name: "Serbia"},
	{Code: "SG", Name: "Singapore"},
	{Code: "SK", Name: "Slovakia"},
	{Code: "SI", Name: "Slovenia"},
	{Code: "SO", Name: "Somalia"},
	{Code: "ZA", Name: "South Africa"},
	{Code: "SS", Name: "South Sudan"},
	{Code: "ES", Name: "Spain"},
	{Code: "LK", Name: "Sri Lanka"},
	{Code: "SD", Name: "Sudan"},
	{Code: "SR", Name: "Suriname"},
	{Code: "SE", Name: "Sweden"},
	{Code: "CH", Name: "Switzerland"},
	{Code: "SY", Name: "Syria"},
	{Code: "TW", Name: "Taiwan"},
	{Code: "TJ", Name: "Tajikistan"},
	{Code: "TZ", Name: "Tanzania"},
	{Code: "TH", Name: "Thailand"},
	{Code: "TL", Name: "Timor-Leste"},
	{Code: "TG", Name: "Togo"},
	{Code: "TT", Name: "Trinidad and Tobago"},
	{Code: "TN", Name: "Tunisia"},
	{Code: "TR", Name: "Turkey"},
	{Code: "TM", Name: "Turkmenistan"},
	{Code: "UG", Name: "Uganda"},
	{Code: "UA", Name: "Ukraine"},
	{Code: "AE", Name: "United Arab Emirates"},
	{Code: "GB", Name: "United Kingdom"},
	{Code: "US", Name: "United States"},
	{Code: "UY", Name: "Uruguay"},
	{Code: "UZ", Name: "Uzbekistan"},
	{Code: "VE", Name: "Venezuela"},
	{Code: "VN", Name: "Vietnam"},
	{Code: "YE", Name: "Yemen"},
	{Code: "ZM", Name: "Zambia"},
	{Code: "ZW", Name: "Zimbabwe"},
}

// aliases maps lower-cased country names and synonyms to ISO codes.
var aliases = map[string]string{
	"russia":         "RU",
	"rossiya":        "RU",
	"russian":        "RU",
	"usa":            "US",
	"united states":  "US",
	"america":        "US",
	"united kingdom": "GB",
	"england":        "GB",
	"britain":        "GB",
	"germany":        "DE",
	"deutschland":    "DE",
	"france":         "FR",
	"japan":          "JP",
	"korea":          "KR",
	"south korea":    "KR",
	"brazil":         "BR",
	"brasil":         "BR",
	"india":          "IN",
	"indonesia":      "ID",
	"turkey":         "TR",
	"turkiye":        "TR",
	"mexico":         "MX",
	"thailand":       "TH",
	"kazakhstan":     "KZ",
	"ukraine":        "UA",
	"china":          "CN",
	"prc":            "CN",
	"philippines":    "PH",
	"vietnam":        "VN",
	"malaysia":       "MY",
	"singapore":      "SG",
	"egypt":          "EG",
	"south africa":   "ZA",
	"poland":         "PL",
	"czech":          "CZ",
	"czechia":        "CZ",
	"argentina":      "AR",
	"colombia":       "CO",
	"peru":           "PE",
	"chile":          "CL",
	"uae":            "AE",
	"emirates":       "AE",
	"saudi":          "SA",
	"saudi arabia":   "SA",
	"nigeria":        "NG",
	"pakistan":       "PK",
	"bangladesh":     "BD",
	"uzbekistan":     "UZ",
	"kenya":          "KE",
	"italy":          "IT",
	"spain":          "ES",
	"portugal":       "PT",
	"netherlands":    "NL",
	"holland":        "NL",
	"switzerland":    "CH",
	"sweden":         "SE",
	"norway":         "NO",
	"denmark":        "DK",
	"finland":        "FI",
	"austria":        "AT",
	"belgium":        "BE",
	"ireland":        "IE",
	"australia":      "AU",
	"new zealand":    "NZ",
	"canada":         "CA",
	"israel":         "IL",
	"taiwan":         "TW",
	"hong kong":      "HK",
	"romania":        "RO",
	"hungary":        "HU",
	"greece":         "GR",
	"serbia":         "RS",
	"croatia":        "HR",
	"bulgaria":       "BG",
	"belarus":        "BY",
	"georgia":        "GE",
	"azerbaijan":     "AZ",
	"morocco":        "MA",
	"qatar":          "QA",
	"kuwait":         "KW",
}
