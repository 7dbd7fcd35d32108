package core

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/illarion/receiptvault/internal/interchange"
	"github.com/illarion/receiptvault/internal/ledger"
	"github.com/illarion/receiptvault/internal/ocr"
)

// DefaultCategoryColor is used for categories saved without a color
const DefaultCategoryColor = "#9e9e9e"

// Receipts returns a copy of all receipts, newest first
func (m *Manager) Receipts() ([]ledger.Receipt, error) {
	v, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return v.Receipts, nil
}

// Receipt returns a copy of the receipt with the given id
func (m *Manager) Receipt(id string) (ledger.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vault == nil {
		return ledger.Receipt{}, ErrLocked
	}
	r := m.vault.FindReceipt(id)
	if r == nil {
		return ledger.Receipt{}, fmt.Errorf("%w: %s", ErrReceiptNotFound, id)
	}
	return r.Clone(), nil
}

// normalizeReceipt fills ids, defaults the date to today and clamps values
// the vault does not accept. Item prices may be negative for discount lines.
func (m *Manager) normalizeReceipt(r *ledger.Receipt) error {
	r.Store = strings.TrimSpace(r.Store)
	if r.Date == "" {
		r.Date = m.now().Format(ledger.DateLayout)
	}
	if !ledger.ValidDate(r.Date) {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidReceipt, r.Date)
	}
	if r.Total < 0 {
		return fmt.Errorf("%w: negative total", ErrInvalidReceipt)
	}
	if r.Items == nil {
		r.Items = []ledger.LineItem{}
	}
	for i := range r.Items {
		item := &r.Items[i]
		if item.ID == "" {
			item.ID = m.newID()
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
	}
	return nil
}

// AddReceipt stores r as the newest receipt and returns it as saved
func (m *Manager) AddReceipt(ctx context.Context, r ledger.Receipt) (ledger.Receipt, error) {
	r = r.Clone()
	if r.ID == "" {
		r.ID = m.newID()
	}
	if err := m.normalizeReceipt(&r); err != nil {
		return ledger.Receipt{}, err
	}
	now := m.now()
	r.CreatedAt, r.UpdatedAt = now, now

	err := m.Mutate(ctx, func(v *ledger.Vault) error {
		if v.FindReceipt(r.ID) != nil {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidReceipt, r.ID)
		}
		v.PrependReceipts(r)
		return nil
	})
	if err != nil {
		return ledger.Receipt{}, err
	}
	return r, nil
}

// AddExtraction turns an OCR result into a receipt draft and stores it.
// edit, when not nil, may adjust the draft before it is saved.
func (m *Manager) AddExtraction(ctx context.Context, e *ocr.Extraction, edit func(*ledger.Receipt)) (ledger.Receipt, error) {
	draft := ocr.NewDraft(e, m.now(), m.newID)
	if edit != nil {
		edit(&draft)
	}
	return m.AddReceipt(ctx, draft)
}

// UpdateReceipt replaces the stored receipt with the same id, keeping its
// creation time
func (m *Manager) UpdateReceipt(ctx context.Context, r ledger.Receipt) (ledger.Receipt, error) {
	r = r.Clone()
	if err := m.normalizeReceipt(&r); err != nil {
		return ledger.Receipt{}, err
	}

	var saved ledger.Receipt
	err := m.Mutate(ctx, func(v *ledger.Vault) error {
		if !v.ReplaceReceipt(r, m.now()) {
			return fmt.Errorf("%w: %s", ErrReceiptNotFound, r.ID)
		}
		saved = v.FindReceipt(r.ID).Clone()
		return nil
	})
	return saved, err
}

// DeleteReceipts removes the receipts with the given ids. It fails without
// writing when none of them exist.
func (m *Manager) DeleteReceipts(ctx context.Context, ids ...string) (int, error) {
	var n int
	err := m.Mutate(ctx, func(v *ledger.Vault) error {
		n = v.RemoveReceipts(ids...)
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrReceiptNotFound, strings.Join(ids, ", "))
		}
		return nil
	})
	return n, err
}

// SaveCategory adds c or replaces the category with the same id
func (m *Manager) SaveCategory(ctx context.Context, c ledger.Category) (ledger.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ledger.Category{}, fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	if c.ID == "" {
		c.ID = m.newID()
	}
	if c.Color == "" {
		c.Color = DefaultCategoryColor
	}

	err := m.Mutate(ctx, func(v *ledger.Vault) error {
		v.UpsertCategory(c)
		return nil
	})
	if err != nil {
		return ledger.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes a category definition. Receipts keep their
// category label.
func (m *Manager) DeleteCategory(ctx context.Context, id string) error {
	return m.Mutate(ctx, func(v *ledger.Vault) error {
		if !v.RemoveCategory(id) {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
		}
		return nil
	})
}

// StripImages drops embedded images from the given receipts, or from all
// receipts when no ids are given. Nothing is written when no receipt had an
// image.
func (m *Manager) StripImages(ctx context.Context, ids ...string) (int, error) {
	var n int
	err := m.Mutate(ctx, func(v *ledger.Vault) error {
		n = v.StripImages(m.now(), ids...)
		if n == 0 {
			return errNothingChanged
		}
		return nil
	})
	if err == errNothingChanged {
		return 0, nil
	}
	return n, err
}

// ImportCSV parses data and prepends the result to the vault. Receipts are
// not matched against those already stored, so importing the same file
// twice stores its receipts twice.
func (m *Manager) ImportCSV(ctx context.Context, data []byte) (*interchange.ImportResult, error) {
	res := interchange.Import(data, interchange.ImportOptions{Now: m.now, NewID: m.newID})
	if len(res.Receipts) == 0 {
		m.mu.Lock()
		locked := m.vault == nil
		m.mu.Unlock()
		if locked {
			return nil, ErrLocked
		}
		return res, nil
	}

	err := m.Mutate(ctx, func(v *ledger.Vault) error {
		v.PrependReceipts(res.Receipts...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Debugf("imported %d receipts from %d rows", len(res.Receipts), res.Rows)
	return res, nil
}

// ExportCSV writes all receipts as CSV
func (m *Manager) ExportCSV(w io.Writer) error {
	receipts, err := m.Receipts()
	if err != nil {
		return err
	}
	return interchange.WriteCSV(w, receipts)
}

// SetVisionAPIKey stores the AI vision API key inside the encrypted vault.
// An empty key clears it.
func (m *Manager) SetVisionAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	return m.Mutate(ctx, func(v *ledger.Vault) error {
		v.Settings.VisionAPIKey = key
		return nil
	})
}

// VisionConfig returns the configuration handed to the OCR collaborator
func (m *Manager) VisionConfig() (ocr.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vault == nil {
		return ocr.Config{}, ErrLocked
	}
	return ocr.Config{APIKey: m.vault.Settings.VisionAPIKey}, nil
}
