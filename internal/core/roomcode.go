package core

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// MaxRoomCodeLength bounds client-supplied room codes.
	MaxRoomCodeLength = 64
	// maxCodeAttempts is how many generated codes are tried before giving up.
	maxCodeAttempts = 16
)

// NormalizeRoomCode returns the canonical (trimmed, uppercased) form of a room code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CodeGenerator produces short, human-typeable room codes.
type CodeGenerator struct {
	alphabet []rune
	length   int
}

// NewCodeGenerator builds a generator drawing length characters from alphabet.
// The alphabet is normalized like room codes and deduplicated.
func NewCodeGenerator(length int, alphabet string) (*CodeGenerator, error) {
	if length <= 0 {
		return nil, fmt.Errorf("room code length must be positive, got %d", length)
	}
	if length > MaxRoomCodeLength {
		return nil, fmt.Errorf("room code length %d exceeds %d", length, MaxRoomCodeLength)
	}

	seen := make(map[rune]struct{})
	var runes []rune
	for _, r := range NormalizeRoomCode(alphabet) {
		if r == ' ' {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		runes = append(runes, r)
	}
	if len(runes) == 0 {
		return nil, errors.New("room code alphabet is empty")
	}

	return &CodeGenerator{alphabet: runes, length: length}, nil
}

// Alphabet returns the normalized alphabet.
func (g *CodeGenerator) Alphabet() string {
	return string(g.alphabet)
}

// Length returns the number of characters in a generated code.
func (g *CodeGenerator) Length() int {
	return g.length
}

// Generate returns a random code. Codes are not guaranteed unique.
func (g *CodeGenerator) Generate() (string, error) {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		idx, err := randomIndex(len(g.alphabet))
		if err != nil {
			return "", err
		}
		b.WriteRune(g.alphabet[idx])
	}
	return b.String(), nil
}

// randomIndex returns a uniformly distributed index in [0, n) from crypto/rand.
func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random index: %w", err)
	}
	return int(v.Int64()), nil
}
