package secrets

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/spx/internal/shared"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewCipher(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		c, err := NewCipher(testKey, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.InsecureDev() {
			t.Error("cipher with valid key should not report insecure dev mode")
		}
	})

	t.Run("missing key in production", func(t *testing.T) {
		_, err := NewCipher("", false)
		if err == nil {
			t.Fatal("expected error for missing key")
		}
		if !errors.Is(err, shared.ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("short key in production", func(t *testing.T) {
		if _, err := NewCipher("deadbeef", false); err == nil {
			t.Fatal("expected error for short key")
		}
	})

	t.Run("non-hex key in production", func(t *testing.T) {
		bad := strings.Repeat("zz", 32)
		if _, err := NewCipher(bad, false); err == nil {
			t.Fatal("expected error for non-hex key")
		}
	})

	t.Run("missing key with insecure_dev", func(t *testing.T) {
		c, err := NewCipher("", true)
		if err != nil {
			t.Fatalf("expected dev fallback, got %v", err)
		}
		if !c.InsecureDev() {
			t.Error("expected insecure dev mode to be reported")
		}
	})

	t.Run("valid key with insecure_dev stays secure", func(t *testing.T) {
		c, err := NewCipher(testKey, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.InsecureDev() {
			t.Error("valid key should win over dev fallback")
		}
	})
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(testKey, false)
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}

	plaintexts := []string{
		"",
		"a",
		"AQD-refresh-token-opaque-value",
		"token with spaces and symbols !@#$%^&*()",
		strings.Repeat("long", 512),
		"unicode: 日本語 ключ",
	}

	for _, pt := range plaintexts {
		blob, err := c.Encrypt(pt)
		if err != nil {
			t.Fatalf("Encrypt(%q) failed: %v", pt, err)
		}

		got, err := c.Decrypt(blob)
		if err != nil {
			t.Fatalf("Decrypt failed for %q: %v", pt, err)
		}
		if got != pt {
			t.Errorf("round trip mismatch: got %q, want %q", got, pt)
		}
	}
}

func TestCipherNonceUniqueness(t *testing.T) {
	c, _ := NewCipher(testKey, false)

	first, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	second, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if first == second {
		t.Error("two encryptions of the same plaintext produced identical blobs")
	}
}

func TestCipherAuthenticationFailure(t *testing.T) {
	c, _ := NewCipher(testKey, false)

	t.Run("wrong key", func(t *testing.T) {
		blob, err := c.Encrypt("secret")
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}

		otherKey := strings.Repeat("ff", 32)
		other, err := NewCipher(otherKey, false)
		if err != nil {
			t.Fatalf("failed to create cipher: %v", err)
		}

		if _, err := other.Decrypt(blob); !errors.Is(err, shared.ErrAuthenticationFailure) {
			t.Errorf("expected ErrAuthenticationFailure, got %v", err)
		}
	})

	t.Run("every bit flip fails", func(t *testing.T) {
		blob, err := c.Encrypt("secret")
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}

		raw, err := base64.StdEncoding.DecodeString(blob)
		if err != nil {
			t.Fatalf("blob is not base64: %v", err)
		}

		for i := range raw {
			for bit := 0; bit < 8; bit++ {
				flipped := make([]byte, len(raw))
				copy(flipped, raw)
				flipped[i] ^= 1 << bit

				_, err := c.Decrypt(base64.StdEncoding.EncodeToString(flipped))
				if !errors.Is(err, shared.ErrAuthenticationFailure) {
					t.Fatalf("flip byte %d bit %d: expected ErrAuthenticationFailure, got %v", i, bit, err)
				}
			}
		}
	})

	t.Run("malformed blobs", func(t *testing.T) {
		for _, blob := range []string{"", "not base64 at all!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
			if _, err := c.Decrypt(blob); !errors.Is(err, shared.ErrAuthenticationFailure) {
				t.Errorf("Decrypt(%q): expected ErrAuthenticationFailure, got %v", blob, err)
			}
		}
	})
}

func TestCipherBlobLayout(t *testing.T) {
	c, _ := NewCipher(testKey, false)

	blob, err := c.Encrypt("layout")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatalf("blob is not base64: %v", err)
	}

	want := nonceSize + tagSize + len("layout")
	if len(raw) != want {
		t.Errorf("blob length = %d, want %d (nonce + tag + ciphertext)", len(raw), want)
	}
}
