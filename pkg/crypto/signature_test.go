package crypto

import (
	"bytes"
	"testing"
)

func testKey(t *testing.T) *PrivateKey {
	t.Helper()
	secret := bytes.Repeat([]byte{0x11}, 32)
	key, err := PrivateKeyFromBytes(secret)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}
	return key
}

func TestPrivateKeyFromBytes(t *testing.T) {
	key := testKey(t)

	if len(key.PublicKey()) != 33 {
		t.Errorf("PublicKey() length = %d, want 33", len(key.PublicKey()))
	}
	if !bytes.Equal(key.Serialize(), bytes.Repeat([]byte{0x11}, 32)) {
		t.Error("Serialize() should return the original scalar")
	}
}

func TestPrivateKeyFromBytes_InvalidLength(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", make([]byte, 31)},
		{"long", make([]byte, 33)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PrivateKeyFromBytes(tt.data); err == nil {
				t.Error("expected error for invalid length")
			}
		})
	}
}

func TestSignAndVerify(t *testing.T) {
	key := testKey(t)
	msg := Hash([]byte("message"))

	sig, err := key.Sign(msg[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	if !VerifySignature(msg[:], sig, key.PublicKey()) {
		t.Error("valid signature should verify")
	}

	other := Hash([]byte("other message"))
	if VerifySignature(other[:], sig, key.PublicKey()) {
		t.Error("signature should not verify for a different hash")
	}
	if VerifySignature(msg[:], sig, []byte{0x02}) {
		t.Error("malformed public key should not verify")
	}
}

func TestSign_InvalidHashLength(t *testing.T) {
	key := testKey(t)
	if _, err := key.Sign([]byte("short")); err == nil {
		t.Error("expected error for non-32-byte hash")
	}
}

func TestZero(t *testing.T) {
	key := testKey(t)
	key.Zero()
	if !bytes.Equal(key.Serialize(), make([]byte, 32)) {
		t.Error("Zero() should wipe the scalar")
	}
}
