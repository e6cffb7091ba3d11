package blobcache

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrDigestMismatch indicates a body does not hash to the digest in its key.
var ErrDigestMismatch = errors.New("sha256 mismatch")

// sha256DigestRe extracts a sha256 hex digest from a key in either format:
//   - OCI standard:  "sha256:HEX64"
//   - Storage path:  "/HEX64/"
var sha256DigestRe = regexp.MustCompile(`sha256:([a-fA-F0-9]{64})|/([a-fA-F0-9]{64})/`)

// VerifyDigest checks that body's sha256 hash matches the digest embedded in
// key. Keys without a digest always pass.
func VerifyDigest(key string, body []byte) error {
	matches := sha256DigestRe.FindStringSubmatch(key)
	if len(matches) < 2 {
		return nil
	}

	// matches[1] = OCI colon format, matches[2] = path-component format
	expected := strings.ToLower(matches[1])
	if expected == "" && len(matches) > 2 {
		expected = strings.ToLower(matches[2])
	}
	if expected == "" {
		return nil
	}

	actual := fmt.Sprintf("%x", sha256.Sum256(body))
	if expected != actual {
		return fmt.Errorf("%w: key claims %s, body hashes to %s", ErrDigestMismatch, expected, actual)
	}
	return nil
}
