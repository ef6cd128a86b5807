// Package isbn generates and validates the 13-digit, checksum-bearing book
// identifiers used across the catalog.
//
// A generated code always has the layout 978-R-RR-PPPPPP-C. Parsed codes keep
// whatever formatting the caller supplied; only the digits are validated.
package isbn

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Prefix is the book-land prefix used for every generated code.
const Prefix = "978"

// Length is the number of significant digits in a code.
const Length = 13

var ErrInvalid = errors.New("invalid isbn")

// ISBN is an immutable, validated identifier.
type ISBN struct {
	code string
}

// Generate returns a random, valid code.
func Generate() ISBN {
	return generate(rand.IntN)
}

// GenerateFrom is Generate with a caller supplied random source.
func GenerateFrom(r *rand.Rand) ISBN {
	return generate(r.IntN)
}

func generate(intn func(int) int) ISBN {
	var b strings.Builder
	b.Grow(Length + 4)

	b.WriteString(Prefix)
	b.WriteByte('-')

	// registration group, registrant, publication
	for i, n := range []int{1, 2, 6} {
		if i > 0 {
			b.WriteByte('-')
		}
		for range n {
			b.WriteByte(byte('0' + intn(10)))
		}
	}
	b.WriteByte('-')

	check := CheckDigit(Digits(b.String()))
	b.WriteString(strconv.Itoa(check))

	return ISBN{code: b.String()}
}

// Parse validates code and returns it unchanged as an ISBN. Any non-digit
// characters are ignored for validation.
func Parse(code string) (ISBN, error) {
	digits := Digits(code)
	if len(digits) < Length {
		return ISBN{}, fmt.Errorf("%w: %q has %d digits, want %d", ErrInvalid, code, len(digits), Length)
	}

	want := CheckDigit(digits)
	got := int(digits[Length-1] - '0')
	if want != got {
		return ISBN{}, fmt.Errorf("%w: %q check digit %d, want %d", ErrInvalid, code, got, want)
	}

	return ISBN{code: code}, nil
}

// MustParse is Parse that panics on error. Intended for constants and tests.
func MustParse(code string) ISBN {
	id, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return id
}

// CheckDigit computes the EAN-13 check digit over the first 12 digits of
// digits. Callers must pass at least 12 ASCII digits.
func CheckDigit(digits string) int {
	sum := 0
	for i := 0; i < Length-1; i++ {
		d := int(digits[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	return (10 - sum%10) % 10
}

// Digits returns only the ASCII digits of s, in order.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (id ISBN) String() string { return id.code }

func (id ISBN) IsZero() bool { return id.code == "" }

func (id ISBN) MarshalText() ([]byte, error) {
	return []byte(id.code), nil
}

func (id *ISBN) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
