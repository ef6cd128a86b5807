// Package catalog holds the in-memory book collection and its lookup indexes.
//
// Catalog is the single-threaded engine: an ordered slice of books (the source
// of truth) plus three derived maps from lowercased title, lowercased author
// and exact ISBN code to slice positions. Positions are rebuilt from scratch
// on every removal, so the maps never drift from the slice.
//
// Service wraps a Catalog for concurrent use by the HTTP layer.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"bookhub/pkg/models"
)

var (
	ErrDuplicateISBN = errors.New("isbn already in catalog")
	ErrUnknownField  = errors.New("unknown search field")
)

type Catalog struct {
	books    []models.Book
	byTitle  map[string][]int
	byAuthor map[string][]int
	byISBN   map[string]int
}

func New() *Catalog {
	return &Catalog{
		byTitle:  make(map[string][]int),
		byAuthor: make(map[string][]int),
		byISBN:   make(map[string]int),
	}
}

// FromBooks builds a catalog over a copy of books, e.g. a loaded snapshot.
func FromBooks(books []models.Book) *Catalog {
	c := New()
	c.books = append(make([]models.Book, 0, len(books)), books...)
	c.reindex()
	return c
}

// Add appends book and indexes it. A book whose ISBN is already present
// takes over the ISBN entry; the older book stays in the slice and in the
// title/author indexes.
func (c *Catalog) Add(book models.Book) {
	c.books = append(c.books, book)
	c.index(len(c.books)-1, book)
}

// Insert is Add that refuses a second book with the same ISBN.
func (c *Catalog) Insert(book models.Book) error {
	if _, ok := c.byISBN[book.Key()]; ok {
		return fmt.Errorf("insert %s: %w", book.Key(), ErrDuplicateISBN)
	}
	c.Add(book)
	return nil
}

// Remove deletes the book indexed under code. It reports false and leaves
// the catalog untouched when no such book exists.
func (c *Catalog) Remove(code string) bool {
	_, ok := c.take(code)
	return ok
}

func (c *Catalog) take(code string) (models.Book, bool) {
	pos, ok := c.byISBN[code]
	if !ok {
		return models.Book{}, false
	}
	book := c.books[pos]
	c.books = append(c.books[:pos], c.books[pos+1:]...)
	c.reindex()
	return book, true
}

// Search returns every book matching term on field. Title and author match
// when the lowercased key contains the lowercased term; ISBN matches exactly.
// The order of the result is unspecified.
func (c *Catalog) Search(term string, field Field) []models.Book {
	switch field {
	case FieldTitle:
		return c.scan(c.byTitle, strings.ToLower(term))
	case FieldAuthor:
		return c.scan(c.byAuthor, strings.ToLower(term))
	case FieldISBN:
		if book, ok := c.Lookup(term); ok {
			return []models.Book{book}
		}
	}
	return []models.Book{}
}

func (c *Catalog) scan(index map[string][]int, term string) []models.Book {
	res := []models.Book{}
	for key, positions := range index {
		if !strings.Contains(key, term) {
			continue
		}
		for _, pos := range positions {
			res = append(res, c.books[pos])
		}
	}
	return res
}

func (c *Catalog) Lookup(code string) (models.Book, bool) {
	pos, ok := c.byISBN[code]
	if !ok {
		return models.Book{}, false
	}
	return c.books[pos], true
}

func (c *Catalog) Size() int { return len(c.books) }

// Books returns a copy of the book sequence in catalog order.
func (c *Catalog) Books() []models.Book {
	return append(make([]models.Book, 0, len(c.books)), c.books...)
}

// Check verifies that the indexes describe exactly the current sequence.
func (c *Catalog) Check() error {
	fresh := FromBooks(c.books)

	if err := sameBuckets("title", c.byTitle, fresh.byTitle); err != nil {
		return err
	}
	if err := sameBuckets("author", c.byAuthor, fresh.byAuthor); err != nil {
		return err
	}
	if len(c.byISBN) != len(fresh.byISBN) {
		return fmt.Errorf("isbn index has %d keys, want %d", len(c.byISBN), len(fresh.byISBN))
	}
	for code, pos := range fresh.byISBN {
		if got, ok := c.byISBN[code]; !ok || got != pos {
			return fmt.Errorf("isbn index %q -> %d, want %d", code, got, pos)
		}
	}
	return nil
}

func sameBuckets(name string, got, want map[string][]int) error {
	if len(got) != len(want) {
		return fmt.Errorf("%s index has %d keys, want %d", name, len(got), len(want))
	}
	for key, positions := range want {
		have := got[key]
		if len(have) != len(positions) {
			return fmt.Errorf("%s index %q has %d entries, want %d", name, key, len(have), len(positions))
		}
		for i := range positions {
			if have[i] != positions[i] {
				return fmt.Errorf("%s index %q entry %d is %d, want %d", name, key, i, have[i], positions[i])
			}
		}
	}
	return nil
}

func (c *Catalog) index(pos int, book models.Book) {
	title := strings.ToLower(book.Title)
	author := strings.ToLower(book.Author)
	c.byTitle[title] = append(c.byTitle[title], pos)
	c.byAuthor[author] = append(c.byAuthor[author], pos)
	c.byISBN[book.Key()] = pos
}

func (c *Catalog) reindex() {
	clear(c.byTitle)
	clear(c.byAuthor)
	clear(c.byISBN)
	for pos, book := range c.books {
		c.index(pos, book)
	}
}
