package patch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Identify matches image against the compiled-in catalog.
func Identify(image []byte) (*Variant, error) {
	return defaultCatalog.Identify(image)
}

// Identify returns the first variant whose fingerprint matches image once
// that variant's sites are reverted to their original bytes. Reverting
// first makes a patched file identify the same as a pristine one.
func (c *Catalog) Identify(image []byte) (*Variant, error) {
	for _, v := range c.variants {
		digest, ok := revertedDigest(image, v)
		if !ok {
			continue
		}
		if strings.EqualFold(FormatDigest(digest), v.Fingerprint) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w (%d bytes, %d variants tried)", ErrNoMatch, len(image), len(c.variants))
}

// Fingerprint returns the lowercase hex digest image would have with v's
// sites reverted.
func Fingerprint(image []byte, v *Variant) (string, error) {
	digest, ok := revertedDigest(image, v)
	if !ok {
		return "", fmt.Errorf("%w: variant %s needs %d bytes, image has %d", ErrTooSmall, v.Name, v.MinSize(), len(image))
	}
	return FormatDigest(digest), nil
}

// revertedDigest hashes a scratch copy of image with every site of v
// holding its original bytes. ok is false when a site does not fit.
func revertedDigest(image []byte, v *Variant) (digest [sha256.Size]byte, ok bool) {
	if len(image) < v.MinSize() {
		return digest, false
	}
	scratch := make([]byte, len(image))
	copy(scratch, image)
	for _, s := range v.Sites {
		copy(scratch[s.Offset():], s.Original())
	}
	return sha256.Sum256(scratch), true
}

// FormatDigest returns the lowercase hex form of a SHA-256 digest.
func FormatDigest(digest [sha256.Size]byte) string {
	return hex.EncodeToString(digest[:])
}

// ParseDigest parses a 64 character hex SHA-256 digest, in either case.
func ParseDigest(s string) ([sha256.Size]byte, error) {
	var digest [sha256.Size]byte
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != sha256.Size {
		return digest, fmt.Errorf("digest is %d bytes, want %d", len(decoded), sha256.Size)
	}
	copy(digest[:], decoded)
	return digest, nil
}
