package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/luminareader/lumina-server/internal/domain"
)

// dbinspect dumps a summary of a Lumina database: books with their reading
// progress, collections with member counts, stored preferences, and how
// many archives live inline in the store.
func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/lumina/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	err = db.View(func(txn *badger.Txn) error {
		books := 0
		forEachPrefix(txn, "book:", func(val []byte) {
			var book domain.Book
			if err := json.Unmarshal(val, &book); err != nil {
				fmt.Printf("  (unreadable book record: %v)\n", err)
				return
			}
			books++
			fmt.Printf("  %-30q by %-20s %3d%%  fav=%v  collections=%d\n",
				truncate(book.Title, 28), truncate(book.Author, 18),
				book.Progress, book.IsFavorite, len(book.CollectionIDs))
		})
		fmt.Printf("Books: %d\n\n", books)

		collections := 0
		forEachPrefix(txn, "collection:", func(val []byte) {
			var c domain.Collection
			if err := json.Unmarshal(val, &c); err != nil {
				return
			}
			collections++
			kind := "custom"
			if c.IsSmart() {
				kind = "smart (" + string(c.Rule) + ")"
			}
			fmt.Printf("  %-24s %s\n", c.Name, kind)
		})
		fmt.Printf("Collections: %d\n\n", collections)

		blobs := 0
		forEachPrefix(txn, "blob:", func([]byte) { blobs++ })
		fmt.Printf("Inline archives: %d\n\n", blobs)

		item, err := txn.Get([]byte("prefs"))
		if err == nil {
			return item.Value(func(val []byte) error {
				var prefs domain.Preferences
				if err := json.Unmarshal(val, &prefs); err != nil {
					return err
				}
				fmt.Printf("Preferences: theme=%s font=%s size=%d two-page=%v\n",
					prefs.CurrentTheme, prefs.ReadingFont, prefs.FontSize, prefs.IsTwoPageView)
				return nil
			})
		}
		fmt.Println("Preferences: (defaults, never saved)")
		return nil
	})
	if err != nil {
		log.Fatalf("Inspection failed: %v", err)
	}
}

func forEachPrefix(txn *badger.Txn, prefix string, fn func(val []byte)) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
		_ = it.Item().Value(func(val []byte) error {
			fn(val)
			return nil
		})
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
