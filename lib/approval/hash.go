// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// IDLength is the hex length of a confirmation id. Ids are locators,
// not capabilities: the one-shot property comes from the store's usage
// bookkeeping and expiry, not from unguessability, so brevity wins.
const IDLength = 16

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation guarantees a command fingerprint can never collide with a
// confirmation id derived from the same bytes. The byte values are the
// ASCII encoding of the domain name, zero-padded to 32 bytes, so the
// keys stay inspectable in hex dumps without losing any cryptographic
// property.
type domainKey [32]byte

var (
	commandDomainKey = domainKey{
		'g', 'r', 'o', 'u', 'n', 'd', 'e', 'd', '.', 'g', 'i', 't', '.',
		'c', 'o', 'm', 'm', 'a', 'n', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	idDomainKey = domainKey{
		'g', 'r', 'o', 'u', 'n', 'd', 'e', 'd', '.', 'g', 'i', 't', '.',
		'i', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// stableText joins arguments with newlines. Arguments containing
// spaces, quotes, or shell metacharacters can never be confused with
// argument boundaries, so two semantically different argument vectors
// never share a stable representation.
func stableText(args []string) string {
	return strings.Join(args, "\n")
}

// Fingerprint returns the hex content hash binding a confirmation to
// an exact argument vector.
func Fingerprint(args []string) string {
	return keyedHex(commandDomainKey, []byte(stableText(args)))
}

// NewID derives a short confirmation id from the repository root, the
// proposal time, and the command. Distinct proposals for the same root
// and argv within the same second collide; that is a documented
// low-probability correctness risk, not a security property.
func NewID(root string, now time.Time, args []string) string {
	seed := fmt.Sprintf("%s\n%d\n%s", root, now.Unix(), stableText(args))
	return keyedHex(idDomainKey, []byte(seed))[:IDLength]
}

func keyedHex(key domainKey, data []byte) string {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		// NewKeyed fails only on a wrong key size; the keys are fixed
		// 32-byte constants.
		panic(fmt.Sprintf("approval: keyed hasher: %v", err))
	}
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}
