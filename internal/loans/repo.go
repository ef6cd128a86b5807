package loans

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Create(ctx context.Context, loan models.Loan) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO loans (id, user_id, isbn, title, author, borrowed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, loan.ID, loan.UserID, loan.ISBN, loan.Title, loan.Author, loan.BorrowedAt)
	if err != nil {
		return fmt.Errorf("create loan: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, userID, isbn string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM loans
		WHERE user_id = ? AND isbn = ?
	`, userID, isbn)
	if err != nil {
		return false, fmt.Errorf("delete loan: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns a page of the user's loans, newest first, and the total count.
func (r *Repo) List(ctx context.Context, userID string, limit, offset int) ([]models.Loan, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM loans WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count loans: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, isbn, title, author, borrowed_at
		FROM loans
		WHERE user_id = ?
		ORDER BY borrowed_at DESC, id
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	out := make([]models.Loan, 0, limit)
	for rows.Next() {
		var l models.Loan
		var borrowed time.Time
		if err := rows.Scan(&l.ID, &l.UserID, &l.ISBN, &l.Title, &l.Author, &borrowed); err != nil {
			return nil, 0, fmt.Errorf("scan loan row: %w", err)
		}
		l.BorrowedAt = borrowed.UTC()
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}

	return out, total, nil
}

// Get returns nil, nil when the user has no loan for isbn.
func (r *Repo) Get(ctx context.Context, userID, isbn string) (*models.Loan, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, isbn, title, author, borrowed_at
		FROM loans
		WHERE user_id = ? AND isbn = ?
	`, userID, isbn)

	var l models.Loan
	var borrowed time.Time
	if err := row.Scan(&l.ID, &l.UserID, &l.ISBN, &l.Title, &l.Author, &borrowed); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	l.BorrowedAt = borrowed.UTC()
	return &l, nil
}

// OnLoan reports whether any user currently holds isbn.
func (r *Repo) OnLoan(ctx context.Context, isbn string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `
		SELECT 1 FROM loans WHERE isbn = ? LIMIT 1
	`, isbn).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check loan: %w", err)
	}
	return true, nil
}
