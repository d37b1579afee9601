// Package ids generates store identifiers that stay unique across every
// process touching the same database file.
//
// An id is the concatenation of four fixed-width base36 fields:
//
//	time    13 chars  Unix nanoseconds
//	pid      6 chars  creating process id
//	counter  4 chars  per-generator sequence (mod 36^4)
//	random   4 chars  nanoid over [0-9a-z]
//
// Fixed widths keep the fields from bleeding into each other, so two
// distinct (time, pid, counter) triples never encode to the same prefix.
// The random tail covers pid reuse across containers sharing one file.
package ids

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	timeWidth    = 13
	pidWidth     = 6
	counterWidth = 4
	randomWidth  = 4

	counterModulus = 36 * 36 * 36 * 36

	// MaxLength bounds ids accepted from callers.
	MaxLength = 64
)

// Length is the length of every generated id.
const Length = timeWidth + pidWidth + counterWidth + randomWidth

// Generator produces ids. The zero value is not usable; use New.
type Generator struct {
	pid     uint64
	counter atomic.Uint64
	now     func() time.Time
}

// New returns a generator bound to the current process.
func New() *Generator {
	return &Generator{
		pid: uint64(os.Getpid()),
		now: time.Now,
	}
}

// NewWithClock returns a generator with an explicit pid and clock.
func NewWithClock(pid int, now func() time.Time) *Generator {
	return &Generator{pid: uint64(pid), now: now}
}

// Next returns a fresh id.
func (g *Generator) Next() (string, error) {
	n := g.counter.Add(1) - 1

	suffix, err := gonanoid.Generate(alphabet, randomWidth)
	if err != nil {
		return "", fmt.Errorf("generate id suffix: %w", err)
	}

	var b strings.Builder
	b.Grow(Length)
	b.WriteString(pad(uint64(g.now().UnixNano()), timeWidth))
	b.WriteString(pad(g.pid, pidWidth))
	b.WriteString(pad(n%counterModulus, counterWidth))
	b.WriteString(suffix)
	return b.String(), nil
}

// pad renders v in base36, left-padded with zeros and truncated to its
// lowest width digits.
func pad(v uint64, width int) string {
	s := strconv.FormatUint(v, 36)
	if len(s) > width {
		return s[len(s)-width:]
	}
	return strings.Repeat("0", width-len(s)) + s
}

// Valid reports whether id is safe to use in a statement: 1 to MaxLength
// ASCII letters or digits.
func Valid(id string) bool {
	if id == "" || len(id) > MaxLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}
