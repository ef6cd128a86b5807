package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/pkg/isbn"
)

func TestNewPlaceholder(t *testing.T) {
	b := NewPlaceholder()
	assert.Equal(t, "None", b.Title)
	assert.Equal(t, "None", b.Author)
	assert.Len(t, b.ISBN.String(), 17)
}

func TestNewBook(t *testing.T) {
	b := NewBook("Example Title", "Example Author")
	assert.Equal(t, "Example Title", b.Title)
	assert.Equal(t, "Example Author", b.Author)
	assert.Len(t, b.ISBN.String(), 17)
}

func TestNewBookWithCode(t *testing.T) {
	b, err := NewBookWithCode("Example Title", "Example Author", "978-3-16-148410-0")
	require.NoError(t, err)
	assert.Equal(t, "978-3-16-148410-0", b.ISBN.String())

	b, err = NewBookWithCode("Example Title", "Example Author", "new")
	require.NoError(t, err)
	assert.Len(t, b.ISBN.String(), 17)

	_, err = NewBookWithCode("Example Title", "Example Author", "123-4-56-789012-3")
	assert.ErrorIs(t, err, isbn.ErrInvalid)

	// the sentinel is case-sensitive
	_, err = NewBookWithCode("Example Title", "Example Author", "NEW")
	assert.ErrorIs(t, err, isbn.ErrInvalid)
}

func TestBook_String(t *testing.T) {
	b, err := NewBookWithCode("Example Title", "Example Author", "978-3-16-148410-0")
	require.NoError(t, err)
	assert.Equal(t, "Title: Example Title\nAuthor: Example Author\nISBN: 978-3-16-148410-0", b.String())
}

func TestBook_EqualByISBN(t *testing.T) {
	a, _ := NewBookWithCode("Example Title", "Example Author", "978-3-16-148410-0")
	b, _ := NewBookWithCode("Another Title", "Another Author", "978-3-16-148410-0")
	assert.True(t, a.Equal(b))

	assert.False(t, NewPlaceholder().Equal(NewPlaceholder()))
}

func TestBook_JSONShape(t *testing.T) {
	b, _ := NewBookWithCode("Example Title", "Example Author", "978-3-16-148410-0")

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Example Title","author":"Example Author","id":"978-3-16-148410-0"}`, string(data))
}

func TestBook_JSONRoundTrip(t *testing.T) {
	in := []Book{
		NewPlaceholder(),
		NewBook("Example Title", "Example Author"),
		NewBook("Another Book", "Someone Else"),
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out []Book
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].Title, out[i].Title)
		assert.Equal(t, in[i].Author, out[i].Author)
		assert.Equal(t, in[i].ISBN.String(), out[i].ISBN.String())
		assert.True(t, in[i].Equal(out[i]))
	}
}

func TestBook_UnmarshalInvalidISBN(t *testing.T) {
	var b Book
	err := json.Unmarshal([]byte(`{"title":"t","author":"a","id":"123-4-56-789012-3"}`), &b)
	assert.ErrorIs(t, err, isbn.ErrInvalid)

	err = json.Unmarshal([]byte(`{"title":"t","author":"a"}`), &b)
	assert.ErrorIs(t, err, isbn.ErrInvalid)
}

func TestBook_UnmarshalLegacyKey(t *testing.T) {
	var b Book
	require.NoError(t, json.Unmarshal([]byte(`{"title":"t","author":"a","isbn":"978-3-16-148410-0"}`), &b))
	assert.Equal(t, "978-3-16-148410-0", b.Key())
}
