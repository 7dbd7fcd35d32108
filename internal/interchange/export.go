package interchange

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/illarion/receiptvault/internal/ledger"
)

// Column names, in file order
const (
	ColDate          = "date"
	ColStore         = "store"
	ColStoreCategory = "store_category"
	ColItemName      = "item_name"
	ColItemCategory  = "item_category"
	ColQuantity      = "quantity"
	ColUnitPrice     = "unit_price"
	ColSubtotal      = "subtotal"
	ColReceiptTotal  = "receipt_total"
	ColNote          = "note"
)

// Columns is the fixed header row
var Columns = []string{
	ColDate, ColStore, ColStoreCategory, ColItemName, ColItemCategory,
	ColQuantity, ColUnitPrice, ColSubtotal, ColReceiptTotal, ColNote,
}

// column positions within a row
const (
	idxDate = iota
	idxStore
	idxStoreCategory
	idxItemName
	idxItemCategory
	idxQuantity
	idxUnitPrice
	idxSubtotal
	idxReceiptTotal
	idxNote
)

// BOM is written before the header so spreadsheet apps detect UTF-8
var BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes receipts as CSV: one row per line item with the receipt
// fields repeated, and a single row with blank item fields for receipts
// without items.
func WriteCSV(w io.Writer, receipts []ledger.Receipt) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range receipts {
		for _, row := range receiptRows(r) {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write receipt %s: %w", r.ID, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// ToCSV renders receipts as CSV text, BOM included
func ToCSV(receipts []ledger.Receipt) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, receipts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func receiptRows(r ledger.Receipt) [][]string {
	total := strconv.FormatInt(r.Total, 10)

	if len(r.Items) == 0 {
		row := make([]string, len(Columns))
		row[idxDate] = r.Date
		row[idxStore] = r.Store
		row[idxStoreCategory] = r.Category
		row[idxReceiptTotal] = total
		row[idxNote] = r.Note
		return [][]string{row}
	}

	rows := make([][]string, 0, len(r.Items))
	for _, item := range r.Items {
		row := make([]string, len(Columns))
		row[idxDate] = r.Date
		row[idxStore] = r.Store
		row[idxStoreCategory] = r.Category
		row[idxItemName] = item.Name
		row[idxItemCategory] = item.Category
		row[idxQuantity] = strconv.Itoa(item.Quantity)
		row[idxUnitPrice] = strconv.FormatInt(item.Price, 10)
		row[idxSubtotal] = strconv.FormatInt(item.Subtotal(), 10)
		row[idxReceiptTotal] = total
		row[idxNote] = r.Note
		rows = append(rows, row)
	}
	return rows
}
