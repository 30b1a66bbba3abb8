// Package hash hashes and verifies secrets: bcrypt for passwords and keyed
// HMAC-SHA256 for high entropy tokens that must be looked up by hash.
package hash
