// Package normalize turns raw extracted text into candidate item names.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinItemLength is the shortest item name, in runes, that survives cleaning.
const MinItemLength = 2

var (
	financialKeywords = []string{"total", "price", "amount", "subtotal", "tax"}

	pureAmount    = regexp.MustCompile(`^\$?\d+(\.\d+)?$`)
	unitQuantity  = regexp.MustCompile(`(?i)\b\d+\s*(lbs?|kg|g|dozen|box|pack|bag|cups?|loaves?|gallon|pk)\b`)
	embeddedPrice = regexp.MustCompile(`\$?\d+(\.\d+)?(/\w+)?`)
)

// Items returns the ordered, duplicate-free candidate item names found in raw.
// The result never contains an empty string and is stable for identical input.
func Items(raw string) []string {
	seen := make(map[string]struct{})
	var items []string

	for _, line := range strings.Split(raw, "\n") {
		item, ok := Line(line)
		if !ok {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		items = append(items, item)
	}

	return items
}

// Line cleans a single line. It reports false when the line holds no item.
func Line(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if hasFinancialKeyword(line) {
		return "", false
	}
	if pureAmount.MatchString(line) {
		return "", false
	}

	// Quantities go first so the unit word disappears along with its number.
	line = unitQuantity.ReplaceAllString(line, "")
	line = embeddedPrice.ReplaceAllString(line, "")
	line = lettersOnly(line)
	line = strings.Join(strings.Fields(line), " ")

	if utf8.RuneCountInString(line) < MinItemLength {
		return "", false
	}
	return line, true
}

func hasFinancialKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range financialKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
}
