package catalog

// Package catalog provides seed-file parsing for the book catalog.

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Seed struct {
	Books []BookSeed `yaml:"books"`
}

type BookSeed struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Category    string     `yaml:"category"`
	ImageURL    string     `yaml:"image_url"`
	PriceCents  int        `yaml:"price_cents"`
	Status      string     `yaml:"status"`
	Seller      SellerSeed `yaml:"seller"`
}

type SellerSeed struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(content, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &seed, nil
}

// Validate checks every entry before any of them is inserted, so a
// bad seed file never half-applies.
func (p *Parser) Validate(seed *Seed) error {
	if seed == nil {
		return fmt.Errorf("seed is required")
	}
	for i, book := range seed.Books {
		if strings.TrimSpace(book.Name) == "" {
			return fmt.Errorf("book %d: name is required", i)
		}
		if book.PriceCents <= 0 {
			return fmt.Errorf("book %q: price_cents must be positive", book.Name)
		}
		if strings.TrimSpace(book.Seller.Email) == "" {
			return fmt.Errorf("book %q: seller email is required", book.Name)
		}
		switch book.Status {
		case "", "published", "unpublished":
		default:
			return fmt.Errorf("book %q: status must be published or unpublished", book.Name)
		}
	}
	return nil
}
