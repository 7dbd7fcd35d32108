// Package ocr models what the receipt OCR or AI vision collaborator hands
// to the vault: a set of optional field hints.
//
// Every field is untrusted and may be missing. ApplyTo is the one place
// where hints are merged into a draft receipt and defaults are applied.
// Nothing in this package talks to the network.
package ocr

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/illarion/receiptvault/internal/ledger"
)

// Amount is a number the collaborator may send as a JSON number or a
// numeric string. Anything unparsable decodes to 0.
type Amount int64

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount(ledger.ParseAmount(strings.Trim(string(data), `"`)))
	return nil
}

// Extraction is the collaborator's result
type Extraction struct {
	StoreName *string         `json:"storeName,omitempty"`
	Date      *string         `json:"date,omitempty"`
	Total     *Amount         `json:"total,omitempty"`
	Category  *string         `json:"category,omitempty"`
	Items     []ExtractedItem `json:"items,omitempty"`
	RawText   string          `json:"rawText"`
}

// ExtractedItem is one proposed line item
type ExtractedItem struct {
	Name     string  `json:"name"`
	Price    Amount  `json:"price"`
	Quantity *Amount `json:"quantity,omitempty"`
	Category *string `json:"category,omitempty"`
}

// Decode reads an Extraction from JSON
func Decode(r io.Reader) (*Extraction, error) {
	var e Extraction
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return nil, fmt.Errorf("failed to decode extraction: %w", err)
	}
	return &e, nil
}

// ApplyTo merges the hints into r. Present fields overwrite, missing fields
// leave r as it was. Items, when present, replace the draft's items.
func (e *Extraction) ApplyTo(r *ledger.Receipt, newID func() string) {
	if e.StoreName != nil {
		r.Store = strings.TrimSpace(*e.StoreName)
	}
	if e.Date != nil && ledger.ValidDate(strings.TrimSpace(*e.Date)) {
		r.Date = strings.TrimSpace(*e.Date)
	}
	if e.Total != nil {
		r.Total = max(int64(*e.Total), 0)
	}
	if e.Category != nil {
		r.Category = strings.TrimSpace(*e.Category)
	}
	if len(e.Items) == 0 {
		return
	}

	items := make([]ledger.LineItem, 0, len(e.Items))
	for _, it := range e.Items {
		item := ledger.LineItem{
			ID:       newID(),
			Name:     strings.TrimSpace(it.Name),
			Price:    int64(it.Price),
			Quantity: 1,
		}
		if it.Quantity != nil && *it.Quantity > 0 {
			item.Quantity = int(*it.Quantity)
		}
		if it.Category != nil {
			item.Category = strings.TrimSpace(*it.Category)
		}
		items = append(items, item)
	}
	r.Items = items
}

// NewDraft builds a receipt draft dated today and applies the hints
func NewDraft(e *Extraction, now time.Time, newID func() string) ledger.Receipt {
	r := ledger.Receipt{
		ID:    newID(),
		Date:  now.Format(ledger.DateLayout),
		Items: []ledger.LineItem{},
	}
	if e != nil {
		e.ApplyTo(&r, newID)
	}
	return r
}

// Config is what the AI vision collaborator needs to run. It is handed
// over explicitly by the caller that owns it.
type Config struct {
	APIKey string
	Model  string
}

// DefaultModel is used when Config.Model is empty
const DefaultModel = "gemini-1.5-flash"

// Enabled reports whether remote extraction can be used
func (c Config) Enabled() bool {
	return c.APIKey != ""
}

// ModelName returns the configured model or DefaultModel
func (c Config) ModelName() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}

// MaskedKey returns the API key with all but the last four characters hidden
func (c Config) MaskedKey() string {
	if len(c.APIKey) <= 4 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return strings.Repeat("*", len(c.APIKey)-4) + c.APIKey[len(c.APIKey)-4:]
}

// DataURI encodes an image payload as a data URI
func DataURI(mime string, data []byte) string {
	var b bytes.Buffer
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}
