package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	synchub "bookhub/internal/sync"
	"bookhub/pkg/models"
)

var (
	ErrNotFound = errors.New("book not in catalog")
	ErrOnLoan   = errors.New("isbn is on loan")
)

// Snapshotter persists the whole book sequence.
type Snapshotter interface {
	Save(ctx context.Context, books []models.Book) error
}

// Publisher receives change events. *synchub.Hub implements it.
type Publisher interface {
	Publish(ev synchub.BookEvent)
}

// LoanChecker reports whether a copy with this ISBN is out on loan.
type LoanChecker interface {
	OnLoan(ctx context.Context, isbn string) (bool, error)
}

const eventBuffer = 256

// Service guards a Catalog with a single lock: the slice and all three
// indexes change together under the write lock, readers share the read lock.
// Events are queued under the write lock and delivered by one goroutine, so
// followers see them in mutation order.
type Service struct {
	mu  sync.RWMutex
	cat *Catalog

	saveMu   sync.Mutex
	store    Snapshotter
	autoSave bool

	loans LoanChecker

	hub    Publisher
	events chan synchub.BookEvent
	done   chan struct{}
	closed bool

	logger *log.Logger
}

type Option func(*Service)

// WithStore enables Checkpoint. With autoSave the catalog is also written
// after every successful mutation.
func WithStore(store Snapshotter, autoSave bool) Option {
	return func(s *Service) {
		s.store = store
		s.autoSave = autoSave
	}
}

func WithPublisher(hub Publisher) Option {
	return func(s *Service) { s.hub = hub }
}

// WithLoans makes Add refuse ISBNs that are currently borrowed.
func WithLoans(loans LoanChecker) Option {
	return func(s *Service) { s.loans = loans }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(cat *Catalog, opts ...Option) *Service {
	if cat == nil {
		cat = New()
	}
	s := &Service{cat: cat, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub != nil {
		s.events = make(chan synchub.BookEvent, eventBuffer)
		s.done = make(chan struct{})
		go s.deliver()
	}
	return s
}

// Close flushes queued events and stops delivery. Mutations after Close
// are still applied but no longer published.
func (s *Service) Close() {
	if s.events == nil {
		return
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()
	<-s.done
}

// Add inserts book, rejecting ISBNs already in the catalog or on loan.
func (s *Service) Add(ctx context.Context, book models.Book) error {
	s.mu.Lock()
	err := s.checkFree(ctx, book.Key())
	if err == nil {
		err = s.cat.Insert(book)
	}
	if err == nil {
		s.publish(synchub.BookAdded, book, "")
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Printf("[catalog] added %s (%q by %q)", book.Key(), book.Title, book.Author)
	s.afterMutation(ctx)
	return nil
}

func (s *Service) Remove(ctx context.Context, code string) bool {
	s.mu.Lock()
	book, ok := s.cat.take(code)
	if ok {
		s.publish(synchub.BookRemoved, book, "")
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	s.logger.Printf("[catalog] removed %s", book.Key())
	s.afterMutation(ctx)
	return true
}

// Lend removes the book under code on behalf of userID. record runs under
// the write lock with the book still in place; the book is removed and
// book.borrow published only when record succeeds.
func (s *Service) Lend(ctx context.Context, code, userID string, record func(models.Book) error) (models.Book, error) {
	s.mu.Lock()
	book, ok := s.cat.Lookup(code)
	if !ok {
		s.mu.Unlock()
		return models.Book{}, fmt.Errorf("lend %s: %w", code, ErrNotFound)
	}
	if err := record(book); err != nil {
		s.mu.Unlock()
		return models.Book{}, err
	}
	s.cat.take(code)
	s.publish(synchub.BookBorrowed, book, userID)
	s.mu.Unlock()

	s.afterMutation(ctx)
	return book, nil
}

// Receive puts a borrowed book back. record runs under the write lock once
// the ISBN is known to be free; the book is inserted and book.return
// published only when record succeeds.
func (s *Service) Receive(ctx context.Context, book models.Book, userID string, record func() error) error {
	s.mu.Lock()
	if _, ok := s.cat.Lookup(book.Key()); ok {
		s.mu.Unlock()
		return fmt.Errorf("receive %s: %w", book.Key(), ErrDuplicateISBN)
	}
	if err := record(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cat.Add(book)
	s.publish(synchub.BookReturned, book, userID)
	s.mu.Unlock()

	s.afterMutation(ctx)
	return nil
}

func (s *Service) Search(term string, field Field) []models.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Search(term, field)
}

func (s *Service) Lookup(code string) (models.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Lookup(code)
}

func (s *Service) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Size()
}

func (s *Service) Books() []models.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Books()
}

func (s *Service) Check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat.Check()
}

// Checkpoint writes the current sequence to the store. Concurrent calls are
// serialised so an older snapshot never overwrites a newer one.
func (s *Service) Checkpoint(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	books := s.Books()
	if err := s.store.Save(ctx, books); err != nil {
		return fmt.Errorf("checkpoint catalog: %w", err)
	}
	return nil
}

func (s *Service) afterMutation(ctx context.Context) {
	if !s.autoSave {
		return
	}
	if err := s.Checkpoint(ctx); err != nil {
		s.logger.Printf("[catalog] autosave failed: %v", err)
	}
}

// checkFree must be called with mu held.
func (s *Service) checkFree(ctx context.Context, code string) error {
	if s.loans == nil {
		return nil
	}
	out, err := s.loans.OnLoan(ctx, code)
	if err != nil {
		return fmt.Errorf("check loans for %s: %w", code, err)
	}
	if out {
		return fmt.Errorf("insert %s: %w", code, ErrOnLoan)
	}
	return nil
}

// publish must be called with mu held for writing.
func (s *Service) publish(typ string, book models.Book, userID string) {
	if s.events == nil || s.closed {
		return
	}
	s.events <- synchub.BookEvent{
		Type:   typ,
		ISBN:   book.Key(),
		Title:  book.Title,
		Author: book.Author,
		UserID: userID,
		At:     time.Now().UTC(),
	}
}

func (s *Service) deliver() {
	defer close(s.done)
	for ev := range s.events {
		s.hub.Publish(ev)
	}
}
