package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"pyshape/internal/core/ports"
	"pyshape/internal/shared/version"
)

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Fingerprint identifies a configuration: the build version, the enabled
// options in any order and the argv bound to each external pass.
func Fingerprint(options []string, commands map[string][]string) string {
	opts := append([]string(nil), options...)
	sort.Strings(opts)

	h := sha256.New()
	h.Write([]byte(version.Version))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(opts, ",")))
	for _, opt := range opts {
		if argv, ok := commands[opt]; ok {
			h.Write([]byte{0})
			h.Write([]byte(opt + "=" + strings.Join(argv, "\x1f")))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func Key(path string, content []byte, fingerprint string) ports.CacheKey {
	return ports.CacheKey{Path: path, Hash: ContentHash(content), Fingerprint: fingerprint}
}
