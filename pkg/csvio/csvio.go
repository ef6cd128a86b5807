// Package csvio converts between book records and CSV rows with a
// title,author,id header.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"bookhub/pkg/models"
)

var Header = []string{"title", "author", "id"}

// Result is what ReadBooks kept and what it skipped, with one error per
// skipped row.
type Result struct {
	Books   []models.Book
	Skipped []error
}

// ReadBooks parses rows by header name, so column order is free and extra
// columns are ignored. A blank or "new" id gets a generated code. Rows with
// an invalid id, a missing title or author, or an id already seen earlier
// in the file are skipped.
func ReadBooks(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Result{Books: []models.Book{}}, nil
		}
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	for _, col := range []string{"title", "author"} {
		if _, ok := header[col]; !ok {
			return Result{}, fmt.Errorf("missing %q column", col)
		}
	}

	res := Result{Books: []models.Book{}}
	seen := make(map[string]struct{})
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 0 {
			continue
		}

		title := valueAt(header, row, "title")
		author := valueAt(header, row, "author")
		if title == "" || author == "" {
			res.Skipped = append(res.Skipped, fmt.Errorf("line %d: title and author required", line))
			continue
		}

		code := valueAt(header, row, "id")
		if code == "" {
			code = models.GenerateCode
		}
		book, err := models.NewBookWithCode(title, author, code)
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if _, dup := seen[book.Key()]; dup {
			res.Skipped = append(res.Skipped, fmt.Errorf("line %d: duplicate id %s", line, book.Key()))
			continue
		}
		seen[book.Key()] = struct{}{}
		res.Books = append(res.Books, book)
	}

	return res, nil
}

func WriteBooks(w io.Writer, books []models.Book) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, b := range books {
		if err := cw.Write([]string{b.Title, b.Author, b.Key()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		name = strings.TrimPrefix(name, "\ufeff")
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	// the legacy export called the code column isbn
	if _, ok := header["id"]; !ok {
		if idx, ok := header["isbn"]; ok {
			header["id"] = idx
		}
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
