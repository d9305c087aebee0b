// Package mergekey derives the content address of a cluster.
//
// The canonical form of a page-id set is its distinct ids sorted ascending
// and joined with commas ("1,15,23"). The merge key is the hex SHA-256 of
// that string, which keeps it byte-compatible with existing
// pages_hash_sha256 columns.
package mergekey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const separator = ","

// Normalize returns the distinct ids of pageIDs in ascending order. The
// input slice is not modified.
func Normalize(pageIDs []int64) []int64 {
	ids := slices.Clone(pageIDs)
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Canonical renders the canonical CSV form of a page-id set.
func Canonical(pageIDs []int64) string {
	ids := Normalize(pageIDs)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, separator)
}

// Key computes the merge key of a page-id set. Equal sets yield equal keys
// regardless of order or repeated ids.
func Key(pageIDs []int64) string {
	return hashString(Canonical(pageIDs))
}

// ParseCSV reverses Canonical. Blank entries are ignored.
func ParseCSV(csv string) ([]int64, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(csv, separator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mergekey: bad page id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return Normalize(ids), nil
}

// URLHash is the content address of an image URL.
func URLHash(url string) string {
	return hashString(url)
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
