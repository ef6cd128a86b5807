package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"bookhub/pkg/csvio"
	"bookhub/pkg/storage"
)

func main() {
	store := storage.DefaultFileStore()
	var (
		out = flag.String("out", "data/books.csv", "output CSV path")
		src = flag.String("catalog", store.Path, "catalog JSON path")
	)
	flag.Parse()
	store.Path = *src

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := exportBooks(ctx, store, *out)
	if err != nil {
		log.Fatalf("export books failed: %v", err)
	}

	log.Printf("✅ exported %d books from %s to %s", n, store.Path, *out)
}

func exportBooks(ctx context.Context, store *storage.FileStore, outPath string) (int, error) {
	books, err := store.Load(ctx)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := csvio.WriteBooks(f, books); err != nil {
		return 0, err
	}
	return len(books), f.Close()
}
