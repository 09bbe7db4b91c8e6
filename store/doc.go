// Package store defines the contract for the public-key-addressed object
// store the messaging core runs against.
//
// Every account on the network is identified by its public key and exposes a
// hierarchy of objects under pubky://<public-key>/<path>. The core only ever
// needs four verbs plus a sign-in handshake, captured by the Client
// interface; how a public key is resolved to a reachable service is the
// store implementation's concern.
//
// Two implementations ship with the package: HTTPClient, which speaks to a
// homeserver over plain authenticated HTTP, and MemoryClient, an in-process
// store used by tests and example programs.
package store
