// Package interchange converts receipts to and from CSV.
//
// Export writes one row per line item with the receipt fields repeated, so
// a spreadsheet can filter by item. Import is tolerant and lossy: it keeps
// only the first row of each (date, store, total, note) group and produces
// receipts without line items. Export followed by Import is therefore not
// an inverse.
//
// Column order:
//
//	date,store,store_category,item_name,item_category,quantity,unit_price,subtotal,receipt_total,note
package interchange
