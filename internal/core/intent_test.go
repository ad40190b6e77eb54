package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractContext(t *testing.T) {
	tests := []struct {
		message  string
		intent   Intent
		category string
		price    *PriceRange
	}{
		{"show me jeans under $50", IntentSearch, "clothing", &PriceRange{0, 50}},
		{"something over 100", IntentGeneral, "", &PriceRange{100, NoUpperBound}},
		{"between 20 and 80", IntentGeneral, "", &PriceRange{20, 80}},
		{"between 80 and 20", IntentGeneral, "", &PriceRange{80, 20}},
		{"Recommend a LAPTOP", IntentRecommendation, "electronics", nil},
		{"is the iPhone 15 in stock", IntentAvailability, "electronics", nil},
		{"cheap books under 20.50", IntentPriceInquiry, "books", &PriceRange{0, 20.5}},
		{"shirts less than $30", IntentGeneral, "clothing", &PriceRange{0, 30}},
		{"tennis racket above 100", IntentGeneral, "sports", &PriceRange{100, NoUpperBound}},
		{"100 or under", IntentGeneral, "", nil},
		{"find a garden chair", IntentSearch, "home & garden", nil},
		{"hello", IntentGeneral, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := ExtractContext(tt.message)
			if got.Intent != tt.intent {
				t.Errorf("intent = %q, want %q", got.Intent, tt.intent)
			}
			if got.Category != tt.category {
				t.Errorf("category = %q, want %q", got.Category, tt.category)
			}
			switch {
			case tt.price == nil && got.PriceRange != nil:
				t.Errorf("price range = %+v, want none", *got.PriceRange)
			case tt.price != nil && got.PriceRange == nil:
				t.Errorf("price range = none, want %+v", *tt.price)
			case tt.price != nil && *got.PriceRange != *tt.price:
				t.Errorf("price range = %+v, want %+v", *got.PriceRange, *tt.price)
			}
			if got.SearchQuery != tt.message {
				t.Errorf("search query = %q, want the raw message", got.SearchQuery)
			}
		})
	}
}

func TestMessageContextJSON(t *testing.T) {
	raw, err := json.Marshal(ExtractContext("jeans under 50"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(raw), `"price_range":[0,50]`) {
		t.Errorf("encoded context = %s", raw)
	}

	raw, err = json.Marshal(ExtractContext("hello"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(raw), `"price_range":null`) {
		t.Errorf("encoded context = %s", raw)
	}

	var back MessageContext
	if err := json.Unmarshal([]byte(`{"price_range":[5,9.5]}`), &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.PriceRange == nil || *back.PriceRange != (PriceRange{5, 9.5}) {
		t.Errorf("decoded price range = %+v", back.PriceRange)
	}
}
