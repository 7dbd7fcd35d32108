package ledger

import (
	"time"
)

// Clone returns a deep copy of the vault
func (v *Vault) Clone() *Vault {
	c := &Vault{
		Settings: v.Settings,
	}
	if v.Receipts != nil {
		c.Receipts = make([]Receipt, len(v.Receipts))
		for i, r := range v.Receipts {
			c.Receipts[i] = r.Clone()
		}
	}
	if v.Categories != nil {
		c.Categories = append([]Category{}, v.Categories...)
	}
	return c
}

// Clone returns a deep copy of the receipt
func (r Receipt) Clone() Receipt {
	if r.Items != nil {
		r.Items = append([]LineItem{}, r.Items...)
	}
	return r
}

// PrependReceipts puts receipts in front of the existing list, keeping
// their order. Nothing is merged against existing entries.
func (v *Vault) PrependReceipts(receipts ...Receipt) {
	merged := make([]Receipt, 0, len(receipts)+len(v.Receipts))
	merged = append(merged, receipts...)
	merged = append(merged, v.Receipts...)
	v.Receipts = merged
}

// FindReceipt finds a receipt by id
func (v *Vault) FindReceipt(id string) *Receipt {
	for i := range v.Receipts {
		if v.Receipts[i].ID == id {
			return &v.Receipts[i]
		}
	}
	return nil
}

// ReplaceReceipt replaces the receipt with the same id, keeping its
// position and creation time
func (v *Vault) ReplaceReceipt(r Receipt, now time.Time) bool {
	for i := range v.Receipts {
		if v.Receipts[i].ID == r.ID {
			r.CreatedAt = v.Receipts[i].CreatedAt
			r.UpdatedAt = now
			v.Receipts[i] = r
			return true
		}
	}
	return false
}

// RemoveReceipts removes receipts by id and returns how many were removed
func (v *Vault) RemoveReceipts(ids ...string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := v.Receipts[:0]
	removed := 0
	for _, r := range v.Receipts {
		if drop[r.ID] {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	v.Receipts = kept
	return removed
}

// UpsertCategory adds a category or updates the one with the same id
func (v *Vault) UpsertCategory(c Category) {
	for i := range v.Categories {
		if v.Categories[i].ID == c.ID {
			v.Categories[i] = c
			return
		}
	}
	v.Categories = append(v.Categories, c)
}

// RemoveCategory removes a category definition. Receipts keep their
// category label since labels are free strings.
func (v *Vault) RemoveCategory(id string) bool {
	for i, c := range v.Categories {
		if c.ID == id {
			v.Categories = append(v.Categories[:i], v.Categories[i+1:]...)
			return true
		}
	}
	return false
}

// FindCategory finds a category by id
func (v *Vault) FindCategory(id string) *Category {
	for i := range v.Categories {
		if v.Categories[i].ID == id {
			return &v.Categories[i]
		}
	}
	return nil
}

// StripImages drops embedded images. With no ids every receipt is
// stripped. Returns the number of receipts that lost an image.
func (v *Vault) StripImages(now time.Time, ids ...string) int {
	only := make(map[string]bool, len(ids))
	for _, id := range ids {
		only[id] = true
	}

	stripped := 0
	for i := range v.Receipts {
		r := &v.Receipts[i]
		if len(only) > 0 && !only[r.ID] {
			continue
		}
		if r.ImageData == "" {
			continue
		}
		r.ImageData = ""
		r.UpdatedAt = now
		stripped++
	}
	return stripped
}

// ImageBytes returns the total length of embedded image data
func (v *Vault) ImageBytes() int {
	n := 0
	for _, r := range v.Receipts {
		n += len(r.ImageData)
	}
	return n
}
