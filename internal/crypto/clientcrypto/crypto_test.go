package clientcrypto

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"testing"
)

func TestRand_LengthUniq(t *testing.T) {
	t.Parallel()
	const n = 48
	a, err := Rand(n)
	if err != nil {
		t.Fatalf("Rand: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, _ := Rand(n)
	if bytes.Equal(a, b) {
		t.Fatalf("Rand produced equal slices")
	}
}

func TestDeriveKey_DeterministicAndBound(t *testing.T) {
	t.Parallel()
	pw := []byte("secret-pass")
	s1 := []byte("salt-1")
	k1, err := DeriveKey(pw, s1, "session")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	k2, _ := DeriveKey(pw, s1, "session")
	if subtle.ConstantTimeCompare(k1, k2) != 1 {
		t.Fatalf("DeriveKey not deterministic")
	}
	other := [][]byte{}
	k, _ := DeriveKey(pw, []byte("salt-2"), "session")
	other = append(other, k)
	k, _ = DeriveKey([]byte("other"), s1, "session")
	other = append(other, k)
	k, _ = DeriveKey(pw, s1, "other-purpose")
	other = append(other, k)
	for i, o := range other {
		if subtle.ConstantTimeCompare(k1, o) != 0 {
			t.Fatalf("case %d: key must change with salt, passphrase and purpose", i)
		}
	}
}

func TestSealOpen(t *testing.T) {
	t.Parallel()
	key, _ := DeriveKey([]byte("pw"), []byte("salt"), "session")
	aad := []byte("https://example.com")
	msg := []byte(`{"token":"abc"}`)

	blob, err := Seal(key, aad, msg)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(blob, msg) {
		t.Fatalf("plaintext visible in blob")
	}
	out, err := Open(key, aad, blob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(out, msg) {
		t.Fatalf("roundtrip mismatch")
	}

	bad, _ := DeriveKey([]byte("pw2"), []byte("salt"), "session")
	if _, err := Open(bad, aad, blob); !errors.Is(err, ErrOpen) {
		t.Fatalf("wrong key: err=%v", err)
	}
	if _, err := Open(key, []byte("https://other.example"), blob); !errors.Is(err, ErrOpen) {
		t.Fatalf("wrong aad: err=%v", err)
	}
	blob[len(blob)-1] ^= 0xFF
	if _, err := Open(key, aad, blob); !errors.Is(err, ErrOpen) {
		t.Fatalf("tampered: err=%v", err)
	}
	if _, err := Open(key, aad, []byte("short")); err == nil {
		t.Fatalf("short blob must fail")
	}
}
