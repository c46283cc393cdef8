package scenes

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CategoryOther is returned for anything the vision model cannot place.
const CategoryOther = "other"

// Categories is the closed set of product categories, in prompt order.
var Categories = []string{"footwear", "clothing", "electronics", "accessories", "home", "beauty", CategoryOther}

var categoryDescriptions = map[string]string{
	"footwear": "athletic shoe",
}

// NormalizeCategory maps a raw model answer onto Categories.
func NormalizeCategory(raw string) string {
	answer := strings.ToLower(strings.TrimSpace(raw))
	answer = strings.Trim(answer, " .!\"'`\n")
	for _, c := range Categories {
		if answer == c {
			return c
		}
	}
	return CategoryOther
}

// DisplayCategory renders a category for user-facing messages.
func DisplayCategory(category string) string {
	return cases.Title(language.English).String(NormalizeCategory(category))
}

// DescriptionFor picks a default product description for a category.
func DescriptionFor(category string) string {
	if d, ok := categoryDescriptions[NormalizeCategory(category)]; ok {
		return d
	}
	return "product"
}
