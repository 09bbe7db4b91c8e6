package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestEdPublicToX25519(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	xPub, err := EdPublicToX25519(keyPair.Public)
	if err != nil {
		t.Fatalf("EdPublicToX25519() error: %v", err)
	}

	var zero [32]byte
	if xPub == zero {
		t.Error("EdPublicToX25519() returned zero key")
	}

	// Conversion is deterministic.
	again, err := EdPublicToX25519(keyPair.Public)
	if err != nil {
		t.Fatalf("EdPublicToX25519() error on second call: %v", err)
	}
	if again != xPub {
		t.Error("EdPublicToX25519() not deterministic")
	}
}

func TestEdPublicToX25519InvalidPoint(t *testing.T) {
	// A y-coordinate >= p is not a canonical encoding and must be rejected.
	var invalid [32]byte
	for i := range invalid {
		invalid[i] = 0xFF
	}

	_, err := EdPublicToX25519(invalid)
	if err == nil {
		t.Fatal("EdPublicToX25519() accepted invalid point encoding")
	}
	if !errors.Is(err, ErrInvalidPoint) {
		t.Errorf("expected ErrInvalidPoint, got %v", err)
	}
}

func TestEdSecretToX25519Clamping(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	xSecret := EdSecretToX25519(keyPair.Private)

	if xSecret[0]&7 != 0 {
		t.Error("low 3 bits of byte 0 not cleared")
	}
	if xSecret[31]&128 != 0 {
		t.Error("top bit of byte 31 not cleared")
	}
	if xSecret[31]&64 == 0 {
		t.Error("second-highest bit of byte 31 not set")
	}

	// Total and deterministic.
	if again := EdSecretToX25519(keyPair.Private); !bytes.Equal(again[:], xSecret[:]) {
		t.Error("EdSecretToX25519() not deterministic")
	}
}
