package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"bookhub/internal/catalog"
	"bookhub/pkg/csvio"
	"bookhub/pkg/storage"
)

func main() {
	store := storage.DefaultFileStore()
	var (
		in      = flag.String("in", "data/books.csv", "input CSV path (title,author,id)")
		out     = flag.String("catalog", store.Path, "catalog JSON path to merge into")
		replace = flag.Bool("replace", false, "replace the catalog instead of merging")
	)
	flag.Parse()
	store.Path = *out

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	added, skipped, err := importBooks(ctx, store, *in, *replace)
	if err != nil {
		log.Fatalf("import books failed: %v", err)
	}

	log.Printf("✅ imported %d books from %s into %s (%d skipped)", added, *in, store.Path, skipped)
}

// importBooks merges CSV rows into the stored catalog. Rows whose id is
// already in the catalog are skipped, never overwritten.
func importBooks(ctx context.Context, store *storage.FileStore, path string, replace bool) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	res, err := csvio.ReadBooks(f)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range res.Skipped {
		log.Printf("[import] skipped %v", e)
	}

	cat := catalog.New()
	if !replace {
		existing, err := store.Load(ctx)
		if err != nil {
			return 0, 0, err
		}
		cat = catalog.FromBooks(existing)
	}

	added, skipped := 0, len(res.Skipped)
	for _, b := range res.Books {
		if err := cat.Insert(b); err != nil {
			if errors.Is(err, catalog.ErrDuplicateISBN) {
				log.Printf("[import] skipped %s: already in catalog", b.Key())
				skipped++
				continue
			}
			return 0, 0, err
		}
		added++
	}

	if err := store.Save(ctx, cat.Books()); err != nil {
		return 0, 0, err
	}
	return added, skipped, nil
}
