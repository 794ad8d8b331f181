// Package auth holds the authorization material for contract writes. A
// Credentials value is in exactly one of three modes: read-only, local
// signing key, or delegated bearer token. The TokenManager obtains and
// lazily refreshes the bearer token from the protocol's authorization
// endpoint; refresh is single-flight so concurrent callers never race
// duplicate grant requests.
package auth
