package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/desertthunder/spx/internal/shared"
)

const (
	keySize   = 32
	nonceSize = 12
	tagSize   = 16
)

// devKey is the fixed all-zero key used only when insecure_dev is set.
var devKey = make([]byte, keySize)

// Cipher performs AES-256-GCM encryption of refresh tokens for at-rest storage.
type Cipher struct {
	aead     cipher.AEAD
	insecure bool
}

// NewCipher creates a Cipher from a 64-hex-character key.
//
// A missing or malformed key is a configuration error unless insecureDev is
// set, in which case a fixed development key is substituted. Callers should
// log a warning when [Cipher.InsecureDev] reports true.
func NewCipher(hexKey string, insecureDev bool) (*Cipher, error) {
	insecure := false
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != keySize {
		if !insecureDev {
			return nil, fmt.Errorf("%w: token_key must be %d hex characters", shared.ErrInvalidKey, keySize*2)
		}
		key = devKey
		insecure = true
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &Cipher{aead: aead, insecure: insecure}, nil
}

// InsecureDev reports whether the cipher is running on the development key.
func (c *Cipher) InsecureDev() bool {
	return c.insecure
}

// Encrypt seals plaintext and returns a base64 blob laid out nonce ‖ tag ‖ ciphertext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext ‖ tag; the stored layout puts the tag first.
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, nonceSize+tagSize+len(ct))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a base64 blob produced by Encrypt.
//
// Returns [shared.ErrAuthenticationFailure] when the blob is malformed, the
// tag does not verify, or the key is wrong.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: blob is not valid base64", shared.ErrAuthenticationFailure)
	}

	if len(blob) < nonceSize+tagSize {
		return "", fmt.Errorf("%w: blob too short", shared.ErrAuthenticationFailure)
	}

	nonce := blob[:nonceSize]
	tag := blob[nonceSize : nonceSize+tagSize]
	ct := blob[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAuthenticationFailure, err)
	}

	return string(plaintext), nil
}
