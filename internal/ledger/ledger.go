package ledger

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// UntitledStore is shown for receipts without a store name
const UntitledStore = "untitled"

// DateLayout is the layout of Receipt.Date
const DateLayout = "2006-01-02"

// Vault is the root document kept encrypted on disk
type Vault struct {
	Receipts   []Receipt  `json:"receipts"`
	Categories []Category `json:"categories"`
	Settings   Settings   `json:"settings"`
}

// Receipt is one purchase event. Total is entered by the user and is never
// derived from Items; the two may disagree.
type Receipt struct {
	ID        string     `json:"id"`
	Store     string     `json:"store,omitempty"`
	Date      string     `json:"date"`
	Total     int64      `json:"total"`
	Category  string     `json:"category,omitempty"`
	Note      string     `json:"note,omitempty"`
	ImageData string     `json:"imageData,omitempty"`
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// LineItem is one line within a receipt
type LineItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Category is a user-defined spending category
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Settings holds per-vault preferences that must stay encrypted
type Settings struct {
	VisionAPIKey string `json:"visionApiKey,omitempty"`
}

// Subtotal returns price times quantity
func (li LineItem) Subtotal() int64 {
	return li.Price * int64(li.Quantity)
}

// DisplayStore returns the store name, or UntitledStore when empty
func (r Receipt) DisplayStore() string {
	if r.Store == "" {
		return UntitledStore
	}
	return r.Store
}

// ItemsTotal sums the line item subtotals. It is informational only.
func (r Receipt) ItemsTotal() int64 {
	var sum int64
	for _, item := range r.Items {
		sum += item.Subtotal()
	}
	return sum
}

// HasImage reports whether an image is embedded in the receipt
func (r Receipt) HasImage() bool {
	return r.ImageData != ""
}

// ValidDate reports whether d is a calendar date in YYYY-MM-DD form
func ValidDate(d string) bool {
	_, err := time.Parse(DateLayout, d)
	return err == nil
}

// DefaultCategories returns the categories a new vault starts with
func DefaultCategories() []Category {
	return []Category{
		{ID: "groceries", Name: "Groceries", Color: "#4caf50"},
		{ID: "dining", Name: "Dining", Color: "#ff9800"},
		{ID: "household", Name: "Household", Color: "#2196f3"},
		{ID: "transport", Name: "Transport", Color: "#9c27b0"},
		{ID: "medical", Name: "Medical", Color: "#f44336"},
		{ID: "entertainment", Name: "Entertainment", Color: "#e91e63"},
		{ID: "other", Name: "Other", Color: "#9e9e9e"},
	}
}

// New returns an empty vault with the default categories
func New() *Vault {
	return &Vault{
		Receipts:   []Receipt{},
		Categories: DefaultCategories(),
	}
}

// ParseAmount coerces s to a whole number, rounding fractions.
// Non-numeric input and values outside the int64 range yield 0.
func ParseAmount(s string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	f = math.Round(f)
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}
