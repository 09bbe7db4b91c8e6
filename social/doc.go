// Package social resolves the account's social graph: the list of followed
// accounts and their public profiles.
//
// Profile resolution is best-effort and concurrent. Every follow target
// appears in the result exactly once, in input order; targets whose profile
// is missing or unparseable come back without a name rather than being
// dropped.
package social
