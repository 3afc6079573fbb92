// Package hashing provides the content-hashing and time primitives shared
// by the block, election, and mempool packages: SHA-256 over UTF-8 bytes
// with a hex string identifier form, and the nanosecond time units used
// throughout the header and mempool timestamps.
//
// Grounded on original_source/block/src/block.rs, which defines the same
// NANO/MICRO/MILLI/SECOND ladder and hashes with digest_bytes (SHA-256,
// hex-encoded).
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
)

// Nanosecond time unit ladder (spec.md §6).
const (
	Nano   uint64 = 1
	Micro  uint64 = Nano * 1000
	Milli  uint64 = Micro * 1000
	Second uint64 = Milli * 1000
)

// Digest returns the hex-encoded SHA-256 digest of data.
//
// The standard library is used here rather than a third-party dependency
// because spec.md §6 mandates SHA-256 specifically as the wire hash
// function; no third-party hash package offers anything beyond what
// crypto/sha256 already provides for this single, fixed algorithm.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestString is a convenience wrapper around Digest for string inputs.
func DigestString(s string) string {
	return Digest([]byte(s))
}

// Concat hashes the concatenation of the given byte slices in order,
// matching the producer-side txn_hash/neighbors_hash construction in
// block.rs (concatenate then digest, not digest-then-concatenate).
func Concat(parts ...[]byte) string {
	total := 0
	for _, p := range parts {
		total += len(p)
	}

	buf := make([]byte, 0, total)
	for _, p := range parts {
		buf = append(buf, p...)
	}

	return Digest(buf)
}
