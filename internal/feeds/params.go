package feeds

import (
	"golang.org/x/text/language"
)

// categoryMap translates the dashboard's category vocabulary into the news
// provider's. Unknown categories fall back to defaultCategory rather than
// erroring.
var categoryMap = map[string]string{
	"world":      "general",
	"local":      "general",
	"technology": "technology",
	"finance":    "business",
	"business":   "business",
	"economy":    "business",
	"sports":     "sports",
	"events":     "entertainment",
	"other":      "general",
}

const defaultCategory = "general"

// MapCategory returns the provider category for a caller-facing one
func MapCategory(category string) string {
	if mapped, ok := categoryMap[category]; ok {
		return mapped
	}
	return defaultCategory
}

// NormalizeLanguage canonicalizes a BCP-47 language tag to its base language
// ("en-US" -> "en"). Unparseable input falls back to English.
func NormalizeLanguage(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}
