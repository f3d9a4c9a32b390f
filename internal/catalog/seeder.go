package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bookcourier/bookcourier/internal/db"
	"github.com/bookcourier/bookcourier/internal/models"
)

type bookStore interface {
	Create(ctx context.Context, book *db.Book) error
	ExistsBySellerAndName(ctx context.Context, email, name string) (bool, error)
}

// SeedFromFile loads a YAML catalog and inserts any books not yet
// present for their seller. Existing rows are left alone, so reruns
// are harmless.
func SeedFromFile(ctx context.Context, path string, store bookStore, logger *slog.Logger) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	parser := NewParser()
	seed, err := parser.Parse(content)
	if err != nil {
		return err
	}
	if err := parser.Validate(seed); err != nil {
		return fmt.Errorf("invalid seed file: %w", err)
	}

	seeded := 0
	for _, entry := range seed.Books {
		exists, err := store.ExistsBySellerAndName(ctx, entry.Seller.Email, entry.Name)
		if err != nil {
			return fmt.Errorf("failed to check existing book %q: %w", entry.Name, err)
		}
		if exists {
			continue
		}

		status := models.BookStatus(entry.Status)
		if entry.Status == "" {
			status = models.BookUnpublished
		}
		book := &db.Book{
			Name:        entry.Name,
			Description: entry.Description,
			Category:    entry.Category,
			ImageURL:    entry.ImageURL,
			PriceCents:  entry.PriceCents,
			Status:      status,
			Seller: models.Party{
				Name:  entry.Seller.Name,
				Email: strings.ToLower(entry.Seller.Email),
			},
		}
		if err := store.Create(ctx, book); err != nil {
			return fmt.Errorf("failed to seed book %q: %w", entry.Name, err)
		}
		seeded++
	}

	logger.Info("catalog seed applied", "path", path, "books", len(seed.Books), "inserted", seeded)
	return nil
}
