// Package core holds the vault session.
//
// A Manager moves between three states:
//   - Locked: no key and no decrypted data in memory
//   - Unlocking: the key is being derived and the stored vault decrypted
//   - Unlocked: the key and the decrypted vault are held in memory
//
// The first Unlock against an empty store creates a vault with the default
// categories and persists it under the given passphrase. Every change goes
// through Mutate, which works on a copy, persists it under a fresh nonce and
// only then swaps it in. Operations are serialized, so two changes can
// never race each other to disk.
//
// Keys are never written anywhere. Lock zeroes the key and drops the vault.
package core
