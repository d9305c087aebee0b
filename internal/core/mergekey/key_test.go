package mergekey

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsOrderAndDuplicateIndependent(t *testing.T) {
	k1 := Key([]int64{3, 1, 2})
	k2 := Key([]int64{1, 2, 3})
	k3 := Key([]int64{1, 1, 2, 3})

	assert.Equal(t, k1, k2)
	assert.Equal(t, k2, k3)
	assert.Len(t, k1, 64, "SHA-256 hex is 64 characters")
}

func TestKeyMatchesStoredHashFormat(t *testing.T) {
	sum := sha256.Sum256([]byte("1,15,23"))
	assert.Equal(t, hex.EncodeToString(sum[:]), Key([]int64{23, 1, 15}))
}

func TestKeyDiffersForDifferentSets(t *testing.T) {
	assert.NotEqual(t, Key([]int64{1, 2}), Key([]int64{1, 2, 3}))
	// 1,23 and 12,3 must not collide through the separator.
	assert.NotEqual(t, Key([]int64{1, 23}), Key([]int64{12, 3}))
}

func TestCanonicalSortsNumerically(t *testing.T) {
	assert.Equal(t, "2,10,100", Canonical([]int64{100, 10, 2, 10}))
	assert.Equal(t, "", Canonical(nil))
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []int64{5, 3, 5}
	out := Normalize(in)

	assert.Equal(t, []int64{3, 5}, out)
	assert.Equal(t, []int64{5, 3, 5}, in)
}

func TestParseCSVRoundTrip(t *testing.T) {
	ids, err := ParseCSV(Canonical([]int64{9, 4, 7}))
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 7, 9}, ids)

	ids, err = ParseCSV(" 3, ,1 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)

	_, err = ParseCSV("1,x")
	assert.Error(t, err)
}

func TestURLHash(t *testing.T) {
	a := URLHash("https://example.com/a.jpg")
	assert.Equal(t, a, URLHash("https://example.com/a.jpg"))
	assert.NotEqual(t, a, URLHash("https://example.com/b.jpg"))
}
