package search

import (
	"stayhub/internal/domains/listing/model"
	"strings"
)

const (
	CategoryAll   = "all"
	CategoryOther = "other"

	CategoryApartment = "apartment"
	CategoryVilla     = "villa"
	CategoryCondo     = "condo"
	CategoryStudio    = "studio"
	CategoryHouse     = "house"

	CategoryTours     = "tours"
	CategoryWorkshops = "workshops"
	CategoryAdventure = "adventure"
	CategoryCultural  = "cultural"
)

type categoryRule struct {
	category string
	keywords []string
}

// Rules are checked in order and the first match wins, so a listing that
// mentions both "apartment" and "villa" is an apartment.
var (
	homeRules = []categoryRule{
		{category: CategoryApartment, keywords: []string{"apartment"}},
		{category: CategoryVilla, keywords: []string{"villa"}},
		{category: CategoryCondo, keywords: []string{"condo"}},
		{category: CategoryStudio, keywords: []string{"studio"}},
		{category: CategoryHouse, keywords: []string{"house"}},
	}

	experienceRules = []categoryRule{
		{category: CategoryTours, keywords: []string{"tour"}},
		{category: CategoryWorkshops, keywords: []string{"workshop"}},
		{category: CategoryAdventure, keywords: []string{"adventure", "outdoor"}},
		{category: CategoryCultural, keywords: []string{"culture", "cultural"}},
	}
)

// Categories lists the categories a kind can derive, "other" last.
func Categories(kind string) []string {
	var rules []categoryRule

	switch kind {
	case model.KindHome:
		rules = homeRules
	case model.KindExperience:
		rules = experienceRules
	}

	categories := make([]string, 0, len(rules)+1)
	for _, rule := range rules {
		categories = append(categories, rule.category)
	}

	return append(categories, CategoryOther)
}

// DeriveCategory infers a category from keywords in the title and description.
func DeriveCategory(listing model.Listing) string {
	var rules []categoryRule

	switch listing.Kind {
	case model.KindHome:
		rules = homeRules
	case model.KindExperience:
		rules = experienceRules
	default:
		return CategoryOther
	}

	text := strings.ToLower(listing.Title + " " + listing.Description)

	for _, rule := range rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.category
			}
		}
	}

	return CategoryOther
}
