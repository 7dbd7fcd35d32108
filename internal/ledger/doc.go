// Package ledger defines the receipt ledger kept inside the vault.
//
// A Vault holds receipts (newest first) and category definitions with
// unique ids. Receipt totals are whole yen and are entered independently of
// line items; Subtotal and ItemsTotal are computed on demand and never
// stored.
//
// Vault methods mutate in place. The session manager applies them to a
// Clone so a failed save never leaves a half-applied change behind.
package ledger
