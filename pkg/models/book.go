package models

import (
	"fmt"

	"github.com/goccy/go-json"

	"bookhub/pkg/isbn"
)

// GenerateCode asks NewBookWithCode to mint a fresh ISBN instead of parsing one.
const GenerateCode = "new"

// Placeholder fills title and author on NewPlaceholder books.
const Placeholder = "None"

// Book is a catalog entry. Two books are the same book when their ISBN codes
// match, whatever their title or author.
type Book struct {
	Title  string
	Author string
	ISBN   isbn.ISBN
}

func NewPlaceholder() Book {
	return Book{Title: Placeholder, Author: Placeholder, ISBN: isbn.Generate()}
}

func NewBook(title, author string) Book {
	return Book{Title: title, Author: author, ISBN: isbn.Generate()}
}

// NewBookWithCode builds a book from user input. code is either GenerateCode
// or an ISBN that must pass validation; failures wrap isbn.ErrInvalid.
func NewBookWithCode(title, author, code string) (Book, error) {
	if code == GenerateCode {
		return NewBook(title, author), nil
	}
	id, err := isbn.Parse(code)
	if err != nil {
		return Book{}, err
	}
	return Book{Title: title, Author: author, ISBN: id}, nil
}

// Key is the identity of the book.
func (b Book) Key() string { return b.ISBN.String() }

func (b Book) Equal(other Book) bool { return b.Key() == other.Key() }

func (b Book) String() string {
	return fmt.Sprintf("Title: %s\nAuthor: %s\nISBN: %s", b.Title, b.Author, b.ISBN)
}

type bookJSON struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ID     string `json:"id"`
}

// bookLegacyJSON also reads the "isbn" key written by older catalog files.
type bookLegacyJSON struct {
	bookJSON
	LegacyID string `json:"isbn,omitempty"`
}

func (b Book) MarshalJSON() ([]byte, error) {
	return json.Marshal(bookJSON{Title: b.Title, Author: b.Author, ID: b.ISBN.String()})
}

func (b *Book) UnmarshalJSON(data []byte) error {
	var raw bookLegacyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	code := raw.ID
	if code == "" {
		code = raw.LegacyID
	}

	id, err := isbn.Parse(code)
	if err != nil {
		return fmt.Errorf("book %q: %w", raw.Title, err)
	}

	*b = Book{Title: raw.Title, Author: raw.Author, ISBN: id}
	return nil
}
