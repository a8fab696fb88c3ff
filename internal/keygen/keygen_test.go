package keygen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAlphabet(t *testing.T) {
	t.Parallel()

	assert.Len(t, []rune(DefaultAlphabet), 70)
	for _, ch := range "IOl0" {
		assert.NotContains(t, DefaultAlphabet, string(ch))
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	g := Default()
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		key, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, []rune(key), DefaultLength)
		for _, ch := range key {
			assert.True(t, strings.ContainsRune(DefaultAlphabet, ch), "unexpected char %q", ch)
		}
		seen[key] = struct{}{}
	}
	assert.Len(t, seen, 500)
}

func TestGenerateCoversAlphabet(t *testing.T) {
	t.Parallel()

	g, err := New("ab", 64)
	require.NoError(t, err)
	key, err := g.Generate()
	require.NoError(t, err)
	// 2^-63 chance of a single-letter key.
	assert.Contains(t, key, "a")
	assert.Contains(t, key, "b")
}

func TestNewRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		alphabet string
		length   int
		wantErr  error
	}{
		{name: "empty alphabet", alphabet: "", length: 10, wantErr: ErrAlphabetTooShort},
		{name: "single char", alphabet: "a", length: 10, wantErr: ErrAlphabetTooShort},
		{name: "duplicates", alphabet: "abca", length: 10, wantErr: ErrAlphabetDuplicates},
		{name: "zero length", alphabet: "abc", length: 0, wantErr: ErrInvalidLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.alphabet, tt.length)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
