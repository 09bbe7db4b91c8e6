// Package crypto implements the cryptographic primitives for the pkmsg
// messaging protocol.
//
// This package provides the foundation the rest of the module builds on:
// Ed25519 identity keypairs, Edwards-to-Montgomery curve conversion,
// Diffie-Hellman shared-secret derivation, authenticated symmetric
// encryption, message digests, and memory-safe handling of key material.
//
// # Identity Keys
//
// Every account is an Ed25519 keypair. The 32-byte public key doubles as
// the account's network address and is rendered as a lower-case hex string
// wherever a string form is needed:
//
//	keyPair, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("address:", crypto.PublicKeyString(keyPair.Public))
//
// # Shared Secrets
//
// Two parties derive the same 32-byte symmetric key from their identity
// keys. The Ed25519 keys are converted to their X25519 equivalents and run
// through ECDH; the result is commutative, so both ends of a conversation
// derive an identical key regardless of direction:
//
//	secret, err := crypto.DeriveSharedSecret(keyPair, peerPublic[:])
//
// # Symmetric Encryption
//
// EncryptSymmetric and DecryptSymmetric wrap ChaCha20-Poly1305 with a fresh
// random nonce prepended to every ciphertext, so a stored ciphertext is
// self-contained:
//
//	sealed, err := crypto.EncryptSymmetric(plaintext, secret)
//	opened, err := crypto.DecryptSymmetric(sealed, secret)
//
// # Secure Memory Handling
//
// Sensitive material should be wiped once it is no longer needed:
//
//	defer crypto.WipeKeyPair(keyPair)
//	defer crypto.ZeroBytes(secret[:])
package crypto
