package models

import "time"

// Loan records a book taken out of the catalog by a user. The book fields are
// kept so the book can be put back on return.
type Loan struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	ISBN       string    `json:"isbn"`
	BorrowedAt time.Time `json:"borrowed_at"`
}
