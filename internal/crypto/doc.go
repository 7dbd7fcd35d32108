// Package crypto provides cryptographic operations for receiptvault.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from the passphrase via PBKDF2
//   - 12-byte random nonce per encryption operation, stored next to the ciphertext
//   - Authenticated encryption prevents tampering
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 16-byte random salt, created once per vault file and stored unencrypted
//   - 210,000 iterations (OWASP minimum recommendation)
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
