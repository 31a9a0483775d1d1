package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Location is a store.
type Location struct {
	ID     int
	Name   string
	Region string
}

// Product is a catalog item.
type Product struct {
	ID       int
	Name     string
	Category string // product category, e.g. "Dairy"
}

// Catalog is the set of locations and products the generator samples from.
// Locations and products are addressed by 1-based id.
type Catalog struct {
	Locations  []Location
	Products   []Product
	HighReturn map[int]bool // product ids with elevated return probability
}

var defaultLocations = []Location{
	{1, "Lulu Hypermarket Al Barsha", "Dubai"},
	{2, "Lulu Hypermarket Deira City Centre", "Dubai"},
	{3, "Lulu Hypermarket Karama", "Dubai"},
	{4, "Lulu Hypermarket Mushrif Mall", "Abu Dhabi"},
	{5, "Lulu Hypermarket Al Wahda", "Abu Dhabi"},
	{6, "Lulu Hypermarket Khalidiyah", "Abu Dhabi"},
	{7, "Lulu Hypermarket Sharjah City Centre", "Sharjah"},
	{8, "Lulu Hypermarket Al Nahda", "Sharjah"},
	{9, "Lulu Hypermarket Ajman", "Ajman"},
	{10, "Lulu Hypermarket Ras Al Khaimah", "Ras Al Khaimah"},
}

var defaultProducts = []Product{
	{1, "Basmati Rice 5kg", "Rice & Grains"},
	{2, "Arabic Bread", "Bakery"},
	{3, "Fresh Chicken Whole", "Poultry"},
	{4, "Full Cream Milk 1L", "Dairy"},
	{5, "Mineral Water 1.5L", "Beverages"},
	{6, "Sunflower Oil 1.8L", "Cooking Oils"},
	{7, "Tomatoes 1kg", "Vegetables"},
	{8, "Bananas 1kg", "Fruits"},
	{9, "Instant Noodles Pack", "Instant Food"},
	{10, "Tomato Ketchup", "Condiments"},
	{11, "Chocolate Spread", "Spreads"},
	{12, "Corn Flakes 500g", "Breakfast"},
	{13, "Free Range Eggs 30pc", "Eggs"},
	{14, "Frozen Mixed Vegetables", "Frozen Foods"},
	{15, "Laundry Detergent 3kg", "Household"},
	{16, "Shampoo 400ml", "Personal Care"},
	{17, "Baby Diapers Size 4", "Baby Care"},
	{18, "Lamb Chops 1kg", "Meat"},
	{19, "Hammour Fillet 1kg", "Seafood"},
	{20, "Saffron 1g", "Spices"},
	{21, "Hummus Tub", "Deli"},
	{22, "Medjool Dates 1kg", "Sweets"},
	{23, "Brown Rice 2kg", "Rice & Grains"},
	{24, "Croissant 6pc", "Bakery"},
	{25, "Chicken Breast 1kg", "Poultry"},
	{26, "Laban 1L", "Dairy"},
	{27, "Orange Juice 1L", "Beverages"},
	{28, "Olive Oil 1L", "Cooking Oils"},
	{29, "Cucumbers 1kg", "Vegetables"},
	{30, "Apples 1kg", "Fruits"},
	{31, "Cup Noodles", "Instant Food"},
	{32, "Mayonnaise", "Condiments"},
	{33, "Peanut Butter", "Spreads"},
	{34, "Oats 1kg", "Breakfast"},
	{35, "Brown Eggs 12pc", "Eggs"},
	{36, "Frozen Paratha", "Frozen Foods"},
	{37, "Dishwashing Liquid", "Household"},
	{38, "Toothpaste", "Personal Care"},
	{39, "Baby Formula 900g", "Baby Care"},
	{40, "Beef Mince 500g", "Meat"},
	{41, "Shrimp 500g", "Seafood"},
	{42, "Cardamom 100g", "Spices"},
	{43, "Labneh", "Deli"},
	{44, "Baklava Box", "Sweets"},
	{45, "Cheddar Cheese 200g", "Dairy"},
	{46, "Greek Yoghurt", "Dairy"},
	{47, "Potatoes 2kg", "Vegetables"},
	{48, "Onions 2kg", "Vegetables"},
	{49, "Tissue Box Pack", "Household"},
	{50, "Green Tea 100 bags", "Beverages"},
}

// Fresh items returned more often than the rest of the range.
var defaultHighReturn = map[int]bool{
	3:  true,
	13: true,
	19: true,
	21: true,
	41: true,
}

// DefaultCatalog returns a catalog with the first n locations and first m products.
// Beyond the named range, synthetic names are generated.
func DefaultCatalog(locations, products int) Catalog {
	c := Catalog{HighReturn: make(map[int]bool)}
	for i := 1; i <= locations; i++ {
		if i <= len(defaultLocations) {
			c.Locations = append(c.Locations, defaultLocations[i-1])
			continue
		}
		c.Locations = append(c.Locations, Location{ID: i, Name: fmt.Sprintf("Store %d", i), Region: "Unassigned"})
	}
	for i := 1; i <= products; i++ {
		if i <= len(defaultProducts) {
			c.Products = append(c.Products, defaultProducts[i-1])
		} else {
			cat := defaultProducts[(i-1)%len(defaultProducts)].Category
			c.Products = append(c.Products, Product{ID: i, Name: fmt.Sprintf("Item %d", i), Category: cat})
		}
		if defaultHighReturn[i] {
			c.HighReturn[i] = true
		}
	}
	return c
}

// LocationName returns the display name for a location id.
func (c Catalog) LocationName(id int) string {
	if id >= 1 && id <= len(c.Locations) {
		return c.Locations[id-1].Name
	}
	return fmt.Sprintf("Store %d", id)
}

// Product returns the product for an id.
func (c Catalog) Product(id int) Product {
	if id >= 1 && id <= len(c.Products) {
		return c.Products[id-1]
	}
	return Product{ID: id, Name: fmt.Sprintf("Item %d", id), Category: "Uncategorized"}
}

// IsHighReturn reports whether a product is flagged for elevated returns.
func (c Catalog) IsHighReturn(productID int) bool {
	return c.HighReturn[productID]
}

// categoryUnitCosts are average unit costs in AED per product category.
var categoryUnitCosts = map[string]int64{
	"Rice & Grains": 25,
	"Bakery":        8,
	"Poultry":       35,
	"Dairy":         15,
	"Beverages":     12,
	"Cooking Oils":  45,
	"Vegetables":    10,
	"Fruits":        18,
	"Instant Food":  8,
	"Condiments":    12,
	"Spreads":       28,
	"Breakfast":     22,
	"Eggs":          20,
	"Frozen Foods":  25,
	"Household":     35,
	"Personal Care": 20,
	"Baby Care":     45,
	"Meat":          55,
	"Seafood":       65,
	"Spices":        40,
	"Deli":          18,
	"Sweets":        35,
}

const defaultUnitCost = 20

// UnitCost returns the unit cost for a product category.
func UnitCost(category string) decimal.Decimal {
	if c, ok := categoryUnitCosts[category]; ok {
		return decimal.NewFromInt(c)
	}
	return decimal.NewFromInt(defaultUnitCost)
}
