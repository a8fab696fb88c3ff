package keygen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	// DefaultAlphabet omits characters that are easy to confuse (I, O, l, 0).
	DefaultAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz123456789_-+=!@#$%&*/"
	// DefaultLength is the number of characters in a generated key.
	DefaultLength = 10
)

var (
	ErrAlphabetTooShort   = errors.New("key alphabet needs at least two characters")
	ErrAlphabetDuplicates = errors.New("key alphabet contains duplicate characters")
	ErrInvalidLength      = errors.New("key length must be positive")
)

// Generator produces random opaque keys of a fixed length from a fixed alphabet.
type Generator struct {
	alphabet []rune
	length   int
	max      *big.Int
}

// New validates alphabet and length and returns a Generator.
func New(alphabet string, length int) (*Generator, error) {
	chars := []rune(alphabet)
	if len(chars) < 2 {
		return nil, ErrAlphabetTooShort
	}
	seen := make(map[rune]struct{}, len(chars))
	for _, ch := range chars {
		if _, ok := seen[ch]; ok {
			return nil, fmt.Errorf("%w: %q", ErrAlphabetDuplicates, ch)
		}
		seen[ch] = struct{}{}
	}
	if length < 1 {
		return nil, ErrInvalidLength
	}
	return &Generator{
		alphabet: chars,
		length:   length,
		max:      big.NewInt(int64(len(chars))),
	}, nil
}

// Default returns a Generator using DefaultAlphabet and DefaultLength.
func Default() *Generator {
	g, err := New(DefaultAlphabet, DefaultLength)
	if err != nil {
		panic(err)
	}
	return g
}

// Length returns the number of characters per key.
func (g *Generator) Length() int { return g.length }

// Generate returns a new key. Each character is drawn independently and
// uniformly from the alphabet.
func (g *Generator) Generate() (string, error) {
	out := make([]rune, g.length)
	for i := range out {
		n, err := rand.Int(rand.Reader, g.max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = g.alphabet[n.Int64()]
	}
	return string(out), nil
}
