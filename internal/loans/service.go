package loans

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"bookhub/internal/catalog"
	"bookhub/pkg/models"
)

var (
	ErrNotInCatalog = errors.New("book not in catalog")
	ErrNotOnLoan    = errors.New("book not on loan to user")
)

// Service moves books between the catalog and users' loans. The loan row
// is written inside the catalog mutation, so a failed write leaves the
// catalog untouched and publishes nothing.
type Service struct {
	Repo    *Repo
	Catalog *catalog.Service
	Logger  *log.Logger
}

func NewService(repo *Repo, cat *catalog.Service, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{Repo: repo, Catalog: cat, Logger: logger}
}

// Borrow takes the book out of the catalog and records the loan.
func (s *Service) Borrow(ctx context.Context, userID, isbn string) (*models.Loan, error) {
	var loan models.Loan
	_, err := s.Catalog.Lend(ctx, isbn, userID, func(book models.Book) error {
		loan = models.Loan{
			ID:         uuid.NewString(),
			UserID:     userID,
			Title:      book.Title,
			Author:     book.Author,
			ISBN:       book.Key(),
			BorrowedAt: time.Now().UTC(),
		}
		return s.Repo.Create(ctx, loan)
	})
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return nil, fmt.Errorf("borrow %s: %w", isbn, ErrNotInCatalog)
	case err != nil:
		return nil, fmt.Errorf("borrow %s: %w", isbn, err)
	}

	s.Logger.Printf("[loans] %s borrowed %s", userID, isbn)
	return &loan, nil
}

// Return puts a borrowed book back into the catalog and closes the loan.
func (s *Service) Return(ctx context.Context, userID, isbn string) (models.Book, error) {
	loan, err := s.Repo.Get(ctx, userID, isbn)
	if err != nil {
		return models.Book{}, fmt.Errorf("return %s: %w", isbn, err)
	}
	if loan == nil {
		return models.Book{}, fmt.Errorf("return %s: %w", isbn, ErrNotOnLoan)
	}

	book, err := models.NewBookWithCode(loan.Title, loan.Author, loan.ISBN)
	if err != nil {
		return models.Book{}, fmt.Errorf("return %s: %w", isbn, err)
	}

	err = s.Catalog.Receive(ctx, book, userID, func() error {
		deleted, err := s.Repo.Delete(ctx, userID, isbn)
		if err != nil {
			return err
		}
		if !deleted {
			// returned concurrently by another request
			return ErrNotOnLoan
		}
		return nil
	})
	if err != nil {
		return models.Book{}, fmt.Errorf("return %s: %w", isbn, err)
	}

	s.Logger.Printf("[loans] %s returned %s", userID, isbn)
	return book, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]models.Loan, int, error) {
	return s.Repo.List(ctx, userID, limit, offset)
}
