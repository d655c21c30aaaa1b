package domain

import "sort"

// countries is the allow-list of ISO-3166 alpha-2 codes users may carry.
var countries = map[string]bool{
	"US": true, "GB": true, "CA": true, "AU": true, "DE": true, "FR": true,
	"IN": true, "BR": true, "JP": true, "KR": true, "NG": true, "RU": true,
	"CN": true, "MX": true, "ZA": true, "IT": true, "ES": true, "NL": true,
	"SE": true, "PL": true, "UA": true, "RO": true, "VN": true, "PH": true,
	"ID": true, "TR": true, "EG": true, "PK": true, "BD": true, "TH": true,
}

// languages is the allow-list of ISO-639-1 language codes.
var languages = map[string]bool{
	"en": true, "es": true, "fr": true, "de": true, "pt": true, "ja": true,
	"ko": true, "zh": true, "hi": true, "ar": true, "ru": true, "it": true,
	"nl": true, "sv": true, "pl": true, "uk": true, "ro": true, "vi": true,
	"tl": true, "id": true, "tr": true, "th": true, "bn": true, "ca": true,
	"af": true,
}

// ValidCountry reports whether code is an allowed country.
func ValidCountry(code string) bool { return countries[code] }

// ValidLanguage reports whether code is an allowed language.
func ValidLanguage(code string) bool { return languages[code] }

// Countries returns the allowed country codes sorted alphabetically.
func Countries() []string { return sortedKeys(countries) }

// Languages returns the allowed language codes sorted alphabetically.
func Languages() []string { return sortedKeys(languages) }

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
