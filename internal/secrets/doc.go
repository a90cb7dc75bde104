// Package secrets implements authenticated encryption for refresh tokens at rest.
//
// The [Cipher] wraps AES-256-GCM with a 12-byte random nonce and 16-byte
// authentication tag. Blobs are laid out nonce ‖ tag ‖ ciphertext and encoded
// base64 for storage in the credentials table. Decryption fails closed: a
// tampered blob or wrong key surfaces [shared.ErrAuthenticationFailure], never
// corrupted plaintext.
package secrets
