package loans

import (
	"bytes"
	"database/sql"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/auth"
	"bookhub/internal/catalog"
	synchub "bookhub/internal/sync"
	"bookhub/pkg/database"
	"bookhub/pkg/isbn"
	"bookhub/pkg/models"
)

const sampleISBN = "978-3-16-148410-0"

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "bookhub.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *sql.DB, id, username string) {
	t.Helper()
	require.NoError(t, auth.NewRepo(db).CreateUser(t.Context(), auth.User{
		ID:           id,
		Username:     username,
		PasswordHash: "x",
	}))
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func newService(t *testing.T, db *sql.DB, books ...models.Book) *Service {
	t.Helper()
	repo := NewRepo(db)
	cat := catalog.NewService(
		catalog.FromBooks(books),
		catalog.WithLoans(repo),
		catalog.WithLogger(quietLogger()),
	)
	return NewService(repo, cat, quietLogger())
}

func sampleBook(t *testing.T) models.Book {
	t.Helper()
	b, err := models.NewBookWithCode("Example Title", "Jane Doe", sampleISBN)
	require.NoError(t, err)
	return b
}

func TestBorrowAndReturn(t *testing.T) {
	db := openDB(t)
	createUser(t, db, "u1", "alice")
	svc := newService(t, db, sampleBook(t), models.NewBook("Another Book", "John Smith"))
	ctx := t.Context()

	loan, err := svc.Borrow(ctx, "u1", sampleISBN)
	require.NoError(t, err)
	assert.Equal(t, "u1", loan.UserID)
	assert.Equal(t, sampleISBN, loan.ISBN)
	assert.Equal(t, "Example Title", loan.Title)
	assert.WithinDuration(t, time.Now(), loan.BorrowedAt, time.Minute)

	assert.Equal(t, 1, svc.Catalog.Size())
	_, ok := svc.Catalog.Lookup(sampleISBN)
	assert.False(t, ok, "borrowed book leaves the catalog")

	_, err = svc.Borrow(ctx, "u1", sampleISBN)
	assert.ErrorIs(t, err, ErrNotInCatalog)

	items, total, err := svc.List(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, loan.ID, items[0].ID)

	book, err := svc.Return(ctx, "u1", sampleISBN)
	require.NoError(t, err)
	assert.True(t, book.Equal(sampleBook(t)))
	assert.Equal(t, 2, svc.Catalog.Size())
	require.NoError(t, svc.Catalog.Check())

	_, err = svc.Return(ctx, "u1", sampleISBN)
	assert.ErrorIs(t, err, ErrNotOnLoan)
}

func TestReturn_OtherUsersLoan(t *testing.T) {
	db := openDB(t)
	createUser(t, db, "u1", "alice")
	createUser(t, db, "u2", "bob")
	svc := newService(t, db, sampleBook(t))
	ctx := t.Context()

	_, err := svc.Borrow(ctx, "u1", sampleISBN)
	require.NoError(t, err)

	_, err = svc.Return(ctx, "u2", sampleISBN)
	assert.ErrorIs(t, err, ErrNotOnLoan)
	assert.Equal(t, 0, svc.Catalog.Size())
}

func TestAddWhileOnLoan(t *testing.T) {
	db := openDB(t)
	createUser(t, db, "u1", "alice")
	createUser(t, db, "u2", "bob")
	svc := newService(t, db, sampleBook(t))
	ctx := t.Context()

	_, err := svc.Borrow(ctx, "u1", sampleISBN)
	require.NoError(t, err)

	err = svc.Catalog.Add(ctx, sampleBook(t))
	assert.ErrorIs(t, err, catalog.ErrOnLoan)

	_, err = svc.Borrow(ctx, "u2", sampleISBN)
	assert.ErrorIs(t, err, ErrNotInCatalog)

	_, err = svc.Return(ctx, "u1", sampleISBN)
	require.NoError(t, err)
	_, err = svc.Borrow(ctx, "u2", sampleISBN)
	assert.NoError(t, err)
}

type recorder struct {
	events []synchub.BookEvent
}

func (r *recorder) Publish(ev synchub.BookEvent) { r.events = append(r.events, ev) }

func TestReturn_DuplicateInCatalog(t *testing.T) {
	db := openDB(t)
	createUser(t, db, "u1", "alice")
	repo := NewRepo(db)
	rec := &recorder{}
	// no loan guard: a copy with the same code can reach the catalog
	cat := catalog.NewService(
		catalog.FromBooks([]models.Book{sampleBook(t)}),
		catalog.WithPublisher(rec),
		catalog.WithLogger(quietLogger()),
	)
	svc := NewService(repo, cat, quietLogger())
	ctx := t.Context()

	_, err := svc.Borrow(ctx, "u1", sampleISBN)
	require.NoError(t, err)
	require.NoError(t, svc.Catalog.Add(ctx, sampleBook(t)))

	_, err = svc.Return(ctx, "u1", sampleISBN)
	assert.ErrorIs(t, err, catalog.ErrDuplicateISBN)

	loan, err := svc.Repo.Get(ctx, "u1", sampleISBN)
	require.NoError(t, err)
	assert.NotNil(t, loan, "loan stays open when the return is rejected")

	cat.Close()
	types := make([]string, 0, len(rec.events))
	for _, ev := range rec.events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{synchub.BookBorrowed, synchub.BookAdded}, types)
}

func TestBorrow_LoanFailureKeepsBook(t *testing.T) {
	db := openDB(t)
	svc := newService(t, db, sampleBook(t))

	// unknown user violates the loans foreign key
	_, err := svc.Borrow(t.Context(), "ghost", sampleISBN)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotInCatalog)

	_, ok := svc.Catalog.Lookup(sampleISBN)
	assert.True(t, ok)
	assert.NoError(t, svc.Catalog.Check())
}

func TestRepo_ListPaging(t *testing.T) {
	db := openDB(t)
	createUser(t, db, "u1", "alice")
	repo := NewRepo(db)
	ctx := t.Context()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		code := isbn.Generate().String()
		require.NoError(t, repo.Create(ctx, models.Loan{
			ID:         code,
			UserID:     "u1",
			Title:      "Title",
			Author:     "Author",
			ISBN:       code,
			BorrowedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	items, total, err := repo.List(ctx, "u1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 2)
	assert.True(t, items[0].BorrowedAt.After(items[1].BorrowedAt))
	assert.True(t, base.Add(4*time.Hour).Equal(items[0].BorrowedAt))

	items, _, err = repo.List(ctx, "u1", 2, 4)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, total, err = repo.List(ctx, "nobody", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}
