package crypto

import (
	"crypto/sha512"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

// ErrInvalidPoint indicates a public key encoding that is not a valid point
// on the Edwards curve.
var ErrInvalidPoint = errors.New("invalid curve point")

// EdPublicToX25519 converts an Ed25519 public key to its birationally
// equivalent X25519 public key by decompressing the Edwards point and
// taking its Montgomery u-coordinate.
func EdPublicToX25519(edPublic [32]byte) ([32]byte, error) {
	var xPublic [32]byte

	point, err := new(edwards25519.Point).SetBytes(edPublic[:])
	if err != nil {
		return xPublic, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}

	copy(xPublic[:], point.BytesMontgomery())
	return xPublic, nil
}

// EdSecretToX25519 derives an X25519 private key from an Ed25519 seed by
// hashing it with SHA-512 and clamping the first 32 bytes per RFC 7748.
// The conversion is deterministic and never fails.
func EdSecretToX25519(edSecret [32]byte) [32]byte {
	digest := sha512.Sum512(edSecret[:])

	var xSecret [32]byte
	copy(xSecret[:], digest[:32])
	xSecret[0] &= 248
	xSecret[31] &= 127
	xSecret[31] |= 64

	ZeroBytes(digest[:])
	return xSecret
}
