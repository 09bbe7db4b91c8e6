// Package vault wraps the identity keypair for at-rest persistence on the
// local machine.
//
// The wrapping key is derived from a random salt and a device-entropy
// string (host name, user name, and a fixed application identifier), so a
// wrapped session is only guaranteed to unwrap on the machine and account
// that created it. This is a deliberate local-only protection for restarts,
// not a cross-device secret-sharing mechanism: the entropy string is
// best-effort, not a secret.
package vault
