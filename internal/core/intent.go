package core

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

type Intent string

const (
	IntentSearch         Intent = "search"
	IntentRecommendation Intent = "recommendation"
	IntentPriceInquiry   Intent = "price_inquiry"
	IntentAvailability   Intent = "availability"
	IntentGeneral        Intent = "general"
)

// NoUpperBound is the max price used when a message only gives a lower bound.
const NoUpperBound = 999999

type keywordSet struct {
	name     string
	keywords []string
}

var intentKeywords = []keywordSet{
	{string(IntentSearch), []string{"search", "find", "looking for", "show me"}},
	{string(IntentRecommendation), []string{"recommend", "suggest", "best", "popular"}},
	{string(IntentPriceInquiry), []string{"price", "cost", "cheap", "expensive", "budget"}},
	{string(IntentAvailability), []string{"available", "stock", "in stock"}},
}

// Checked in order; the first category with a matching keyword wins.
var categoryKeywords = []keywordSet{
	{"electronics", []string{"phone", "smartphone", "laptop", "computer", "headphone", "tablet", "electronics"}},
	{"clothing", []string{"clothes", "jeans", "shoes", "shirt", "hoodie", "dress", "clothing", "fashion"}},
	{"books", []string{"book", "novel", "guide", "manual", "reading"}},
	{"home & garden", []string{"furniture", "table", "chair", "bulb", "light", "home", "garden"}},
	{"sports", []string{"sports", "tennis", "basketball", "racket", "ball", "athletic", "fitness"}},
}

var (
	pricePattern = regexp.MustCompile(`\$?(\d+(?:\.\d{2})?)`)
	upperCues    = []string{"under", "below", "less than"}
	lowerCues    = []string{"over", "above", "more than"}
)

// PriceRange is encoded as a two element array, [min, max].
type PriceRange struct {
	Min float64
	Max float64
}

func (r PriceRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Min, r.Max})
}

func (r *PriceRange) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// MessageContext is what the assistant understood from one message.
type MessageContext struct {
	SearchQuery string      `json:"search_query"`
	Intent      Intent      `json:"intent"`
	Category    string      `json:"category"` // empty when none was detected
	PriceRange  *PriceRange `json:"price_range"`
}

// ExtractContext classifies a raw chat message. It never fails.
func ExtractContext(message string) MessageContext {
	lower := strings.ToLower(message)
	return MessageContext{
		SearchQuery: message,
		Intent:      Intent(firstMatch(intentKeywords, lower, string(IntentGeneral))),
		Category:    firstMatch(categoryKeywords, lower, ""),
		PriceRange:  extractPriceRange(lower),
	}
}

func firstMatch(sets []keywordSet, text, def string) string {
	for _, set := range sets {
		for _, kw := range set.keywords {
			if strings.Contains(text, kw) {
				return set.name
			}
		}
	}
	return def
}

func extractPriceRange(lower string) *PriceRange {
	matches := pricePattern.FindAllStringSubmatchIndex(lower, -1)
	var prices []float64
	var firstAt int
	for i, m := range matches {
		v, err := strconv.ParseFloat(lower[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		if i == 0 {
			firstAt = m[0]
		}
		prices = append(prices, v)
	}

	switch {
	case len(prices) >= 2:
		return &PriceRange{Min: prices[0], Max: prices[1]}
	case len(prices) == 1:
		before := lower[:firstAt]
		if containsAny(before, upperCues) {
			return &PriceRange{Min: 0, Max: prices[0]}
		}
		if containsAny(before, lowerCues) {
			return &PriceRange{Min: prices[0], Max: NoUpperBound}
		}
	}
	return nil
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
