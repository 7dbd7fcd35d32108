package interchange

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/illarion/receiptvault/internal/ledger"
)

// headerNames are cell values that mark a row as a header. The Japanese
// names come from spreadsheets exported by hand.
var headerNames = map[string]bool{
	"日付": true,
	"店名": true,
	"店舗": true,
	"合計": true,
}

func init() {
	for _, c := range Columns {
		headerNames[c] = true
	}
}

// ImportOptions controls id and timestamp generation for imported receipts
type ImportOptions struct {
	Now   func() time.Time
	NewID func() string
}

func (o ImportOptions) withDefaults() ImportOptions {
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// Row is one parsed data row with numeric columns already coerced
type Row struct {
	Line          int
	Date          string
	Store         string
	StoreCategory string
	ItemName      string
	ItemCategory  string
	Quantity      int64
	UnitPrice     int64
	Total         int64
	Note          string
}

type dedupKey struct {
	date  string
	store string
	total int64
	note  string
}

func (r Row) key() dedupKey {
	return dedupKey{date: r.Date, store: r.Store, total: r.Total, note: r.Note}
}

// ImportResult is what a tolerant import produced
type ImportResult struct {
	Receipts  []ledger.Receipt
	Rows      int
	Collapsed int
	Warnings  []string
}

// Import parses CSV data into receipts. Rows are grouped by
// (date, store, total, note) and only the first row of each group becomes a
// receipt, without line items. Bad rows are skipped and reported in
// Warnings; Import never fails.
func Import(data []byte, opts ImportOptions) *ImportResult {
	opts = opts.withDefaults()
	res := &ImportResult{Receipts: []ledger.Receipt{}}

	rows := parseRows(bytes.TrimPrefix(data, BOM), res)
	res.Rows = len(rows)

	seen := make(map[dedupKey]bool, len(rows))
	for _, row := range rows {
		k := row.key()
		if seen[k] {
			res.Collapsed++
			continue
		}
		seen[k] = true

		now := opts.Now()
		res.Receipts = append(res.Receipts, ledger.Receipt{
			ID:        opts.NewID(),
			Store:     row.Store,
			Date:      row.Date,
			Total:     row.Total,
			Category:  row.StoreCategory,
			Note:      row.Note,
			Items:     []ledger.LineItem{},
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return res
}

// ImportReceipts is Import with default options, discarding diagnostics
func ImportReceipts(data []byte) []ledger.Receipt {
	return Import(data, ImportOptions{}).Receipts
}

func parseRows(data []byte, res *ImportResult) []Row {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows []Row
	first := true
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: %v", perr.StartLine, perr.Err))
				continue
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("stopped reading: %v", err))
			break
		}
		if blank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}

		row, ok := toRow(record, line)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: invalid date %q", line, strings.TrimSpace(field(record, idxDate))))
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func toRow(record []string, line int) (Row, bool) {
	date, ok := normalizeDate(strings.TrimSpace(field(record, idxDate)))
	if !ok {
		return Row{}, false
	}
	return Row{
		Line:          line,
		Date:          date,
		Store:         normalizeName(field(record, idxStore)),
		StoreCategory: field(record, idxStoreCategory),
		ItemName:      normalizeName(field(record, idxItemName)),
		ItemCategory:  field(record, idxItemCategory),
		Quantity:      ledger.ParseAmount(field(record, idxQuantity)),
		UnitPrice:     ledger.ParseAmount(field(record, idxUnitPrice)),
		Total:         max(ledger.ParseAmount(field(record, idxReceiptTotal)), 0),
		Note:          field(record, idxNote),
	}, true
}

// field returns the cell at i as written, or "" for a missing trailing
// column
func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return record[i]
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// normalizeDate accepts YYYY-MM-DD, and the YYYY/M/D form spreadsheets tend
// to rewrite dates into.
func normalizeDate(s string) (string, bool) {
	if ledger.ValidDate(s) {
		return s, true
	}
	for _, layout := range []string{"2006/1/2", "2006-1-2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ledger.DateLayout), true
		}
	}
	return "", false
}

func isHeader(record []string) bool {
	for _, cell := range record {
		cell = strings.ToLower(strings.TrimSpace(string(bytes.TrimPrefix([]byte(cell), BOM))))
		if headerNames[cell] {
			return true
		}
	}
	return false
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
