// Package storage provides the BBolt database behind the receipt vault.
//
// Database structure uses two buckets:
//   - config: format version, timestamps, base64 KDF salt, vault id (unencrypted)
//   - vault: exactly one key, "data", holding the encrypted vault record
//
// The salt lives outside the record because it must be readable before a
// key can be derived. The record API takes no key: there is one slot, and
// SaveVault always overwrites it (last write wins, no history).
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
