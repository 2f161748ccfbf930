package fsx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashOfIsDeterministic(t *testing.T) {
	h1 := HashOf([]byte("Hello World"))
	h2 := HashOf([]byte("Hello World"))
	assert.True(t, h1.Equal(h2))
	assert.Equal(t, "a591a6d40bf420404a011733cfb7b190d62c65bf0bcda32b57b277d9ad9f146e", h1.String())
}

func TestHashOfDiffersForDifferentContent(t *testing.T) {
	h1 := HashOf([]byte("a"))
	h2 := HashOf([]byte("b"))
	assert.False(t, h1.Equal(h2))
}

func TestParseHashValid(t *testing.T) {
	valid := strings.Repeat("a", 64)
	h, err := ParseHash(valid)
	require.NoError(t, err)
	assert.Equal(t, valid, h.String())
}

func TestParseHashRejectsWrongLength(t *testing.T) {
	_, err := ParseHash(strings.Repeat("a", 63))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = ParseHash(strings.Repeat("a", 65))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestParseHashRejectsUppercase(t *testing.T) {
	_, err := ParseHash(strings.Repeat("A", 64))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestParseHashRejectsNonHex(t *testing.T) {
	_, err := ParseHash(strings.Repeat("g", 64))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestHashIsZero(t *testing.T) {
	var zero ContentHash
	assert.True(t, zero.IsZero())

	h := HashOf([]byte("content"))
	assert.False(t, h.IsZero())
}

func TestShardPrefixSplitsFirstFourHexChars(t *testing.T) {
	h := HashOf([]byte("shard-test"))
	first, second := h.ShardPrefix()
	assert.Equal(t, h.String()[0:2], first)
	assert.Equal(t, h.String()[2:4], second)
}
