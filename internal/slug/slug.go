// Package slug generates the random identifiers that short links are keyed by.
package slug

import (
	"crypto/rand"
	"io"
)

// Alphabet is the URL-safe character set candidates are drawn from. 64
// characters, so a single random byte maps onto it without modulo bias.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// Length is the size of a generated slug. 64^10 possible values keeps the
// collision odds negligible at any realistic table size.
const Length = 10

// Generator draws fixed-length slugs from a random byte source.
type Generator struct {
	src    io.Reader
	length int
}

// New returns a Generator backed by crypto/rand.
func New() *Generator {
	return NewWithSource(rand.Reader, Length)
}

// NewWithSource returns a Generator reading random bytes from src. Tests pass
// a deterministic reader here.
func NewWithSource(src io.Reader, length int) *Generator {
	if length <= 0 {
		length = Length
	}
	return &Generator{src: src, length: length}
}

// Generate returns a new random slug, or an error if the random source fails.
func (g *Generator) Generate() (string, error) {
	b := make([]byte, g.length)
	if _, err := io.ReadFull(g.src, b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = Alphabet[b[i]&63]
	}
	return string(b), nil
}
