package crypto

import (
	"bytes"
	"testing"
)

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, _ := RandBytes(n)
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal", n)
	}
}

func TestHashPassword_VerifyAndSalting(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("p@ssw0rd")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !h1.Verify("p@ssw0rd") {
		t.Fatalf("Verify must accept the original password")
	}
	if h1.Verify("p@ssw0rd ") || h1.Verify("") {
		t.Fatalf("Verify must reject other passwords")
	}

	h2, _ := HashPassword("p@ssw0rd")
	if bytes.Equal(h1.Salt, h2.Salt) || bytes.Equal(h1.Sum, h2.Sum) {
		t.Fatalf("each hash must use a fresh salt")
	}
}

func TestVerify_ZeroHash(t *testing.T) {
	t.Parallel()

	if (PasswordHash{}).Verify("anything") {
		t.Fatalf("zero hash must never verify")
	}
}
