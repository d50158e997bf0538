package command

import (
	"regexp"
	"strings"

	"hospitality-commands/internal/models"
)

var (
	blockRoomPattern = regexp.MustCompile(`(?i)block room (\d+) from (.+?) to (.+)`)
	setPricePattern  = regexp.MustCompile(`(?i)set price to ₹?(\d+) on (.+)`)
)

// Matcher recognizes the two fixed command shapes without any I/O.
// "block room" is tried first and wins when both would match.
type Matcher struct{}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match returns a candidate for the grammar, or false when the text is not
// one of the known shapes.
func (m *Matcher) Match(text string) (map[string]interface{}, bool) {
	if groups := blockRoomPattern.FindStringSubmatch(text); groups != nil {
		return map[string]interface{}{
			DiscriminatorField: string(models.IntentBlockRoom),
			"room":             groups[1],
			"from":             trimEndpoint(groups[2]),
			"to":               trimEndpoint(groups[3]),
		}, true
	}

	if groups := setPricePattern.FindStringSubmatch(text); groups != nil {
		return map[string]interface{}{
			DiscriminatorField: string(models.IntentSetPrice),
			"room":             models.AllRooms,
			"price":            groups[1],
			"date":             trimEndpoint(groups[2]),
		}, true
	}

	return nil, false
}

// trimEndpoint keeps the greedy capture but drops surrounding whitespace and
// sentence punctuation, so "March 9." becomes "March 9".
func trimEndpoint(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ".,!?;"))
}
