package catalog

import (
	"fmt"
	"strings"
)

// Field selects which index Search consults.
type Field int

const (
	FieldTitle Field = iota
	FieldAuthor
	FieldISBN
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldAuthor:
		return "author"
	case FieldISBN:
		return "isbn"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseField accepts the names used by the API and the CLI.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "title", "":
		return FieldTitle, nil
	case "author":
		return FieldAuthor, nil
	case "isbn", "id", "code":
		return FieldISBN, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
}
