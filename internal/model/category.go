package model

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategorySpices     Category = "Spices"
	CategoryVegetables Category = "Vegetables"
	CategoryMeat       Category = "Meat"
	CategoryWines      Category = "Wines"
	CategoryDryGoods   Category = "Dry Goods"
	CategoryDairy      Category = "Dairy"
	CategoryOther      Category = "Other"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategorySpices,
	CategoryVegetables,
	CategoryMeat,
	CategoryWines,
	CategoryDryGoods,
	CategoryDairy,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, known := range Categories {
		if strings.EqualFold(strings.TrimSpace(s), string(known)) {
			return known, nil
		}
	}
	return "", &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", s)}
}
