package isbn

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Layout(t *testing.T) {
	id := Generate()
	code := id.String()

	assert.Len(t, code, 17)
	assert.True(t, strings.HasPrefix(code, "978-"))

	parts := strings.Split(code, "-")
	require.Len(t, parts, 5)
	assert.Len(t, parts[1], 1)
	assert.Len(t, parts[2], 2)
	assert.Len(t, parts[3], 6)
	assert.Len(t, parts[4], 1)
}

func TestGenerate_AlwaysParses(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		id := GenerateFrom(r)

		parsed, err := Parse(id.String())
		require.NoError(t, err, "generated %s", id)
		assert.Equal(t, id.String(), parsed.String())
	}
}

func TestGenerateFrom_Deterministic(t *testing.T) {
	a := GenerateFrom(rand.New(rand.NewPCG(7, 7)))
	b := GenerateFrom(rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
}

func TestGenerate_Distinct(t *testing.T) {
	assert.NotEqual(t, Generate(), Generate())
}

func TestParse_Valid(t *testing.T) {
	id, err := Parse("978-3-16-148410-0")
	require.NoError(t, err)
	assert.Equal(t, "978-3-16-148410-0", id.String())
}

func TestParse_KeepsOriginalFormatting(t *testing.T) {
	for _, code := range []string{"9783161484100", "978 3 16 148410 0", "ISBN 978-316-1484100"} {
		id, err := Parse(code)
		require.NoError(t, err, code)
		assert.Equal(t, code, id.String())
	}
}

func TestParse_WrongCheckDigit(t *testing.T) {
	_, err := Parse("123-4-56-789012-3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParse_TooShort(t *testing.T) {
	for _, code := range []string{"", "new", "978-3-16", "978-3-16-14841-0"} {
		_, err := Parse(code)
		assert.ErrorIs(t, err, ErrInvalid, code)
	}
}

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		digits string
		want   int
	}{
		{"978316148410", 0},
		{"978030640615", 7},
		{"000000000000", 0},
		{"123456789012", 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CheckDigit(tt.digits), tt.digits)
	}
}

func TestCheckDigit_RangeAndSelfValidates(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 0))
	for i := 0; i < 500; i++ {
		var b strings.Builder
		for j := 0; j < 12; j++ {
			b.WriteByte(byte('0' + r.IntN(10)))
		}
		d := b.String()

		c := CheckDigit(d)
		require.GreaterOrEqual(t, c, 0)
		require.LessOrEqual(t, c, 9)

		_, err := Parse(d + string(rune('0'+c)))
		require.NoError(t, err, d)
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "9783161484100", Digits("978-3-16-148410-0"))
	assert.Equal(t, "", Digits("abc--"))
}

func TestText(t *testing.T) {
	var id ISBN
	require.NoError(t, id.UnmarshalText([]byte("978-3-16-148410-0")))
	out, err := id.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "978-3-16-148410-0", string(out))

	assert.ErrorIs(t, id.UnmarshalText([]byte("123-4-56-789012-3")), ErrInvalid)
	assert.Equal(t, "978-3-16-148410-0", id.String(), "failed unmarshal must not modify the receiver")
}

func TestIsZero(t *testing.T) {
	assert.True(t, ISBN{}.IsZero())
	assert.False(t, Generate().IsZero())
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("123-4-56-789012-3") })
	assert.NotPanics(t, func() { MustParse("978-3-16-148410-0") })
}
