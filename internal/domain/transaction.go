package domain

// TransactionCategory classifies a generated sales event.
type TransactionCategory string

// Transaction categories, in classifier table order.
const (
	CategoryRegular     TransactionCategory = "regular_sale"
	CategoryPromotional TransactionCategory = "promotional_sale"
	CategoryReturn      TransactionCategory = "return"
	CategoryBulk        TransactionCategory = "bulk_purchase"
	CategorySlow        TransactionCategory = "slow_period"
)

// AllCategories lists every transaction category in canonical order.
var AllCategories = []TransactionCategory{
	CategoryRegular,
	CategoryPromotional,
	CategoryReturn,
	CategoryBulk,
	CategorySlow,
}

var categoryLabels = map[TransactionCategory]string{
	CategoryRegular:     "Regular Sale",
	CategoryPromotional: "Promotional Sale",
	CategoryReturn:      "Return",
	CategoryBulk:        "Bulk Purchase",
	CategorySlow:        "Slow Period",
}

// Label returns the human-readable label used in stream payloads.
func (c TransactionCategory) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

var categoryTags = map[TransactionCategory]string{
	CategoryRegular:     "Everyday",
	CategoryPromotional: "On Promotion",
	CategoryReturn:      "Returned",
	CategoryBulk:        "Bulk Order",
	CategorySlow:        "Off-Peak",
}

// Tag returns the short human-readable tag shown next to an event.
func (c TransactionCategory) Tag() string {
	return categoryTags[c]
}

// Valid reports whether c is one of the known categories.
func (c TransactionCategory) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ReturnReasons are attached to return events.
var ReturnReasons = []string{
	"Damaged packaging",
	"Expired product",
	"Wrong item",
	"Quality issue",
	"Customer changed mind",
	"Duplicate purchase",
}
