package models

import (
	"time"

	"github.com/google/uuid"
)

type BookStatus string

const (
	BookPublished   BookStatus = "published"
	BookUnpublished BookStatus = "unpublished"
)

type Book struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	PriceCents  int        `json:"price_cents"`
	Status      BookStatus `json:"status"`
	Seller      Party      `json:"seller"`
	CreatedAt   time.Time  `json:"created_at"`
}
