package book

import (
	"context"
	"log/slog"
	"time"

	"github.com/booklore/booklore/internal/platform/validate"
	"github.com/booklore/booklore/pkg/slug"
	"github.com/booklore/booklore/pkg/uuidv7"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (service *Service) ListBooks(context context.Context, filter Filter, limit, offset int) ([]*Book, int, error) {
	return service.repo.ListBooks(context, filter, limit, offset)
}

func (service *Service) GetBook(context context.Context, id string) (*Book, error) {
	return service.repo.GetBook(context, id)
}

func (service *Service) GetBookBySlug(context context.Context, bookSlug string) (*Book, error) {
	return service.repo.GetBookBySlug(context, bookSlug)
}

// CreateInput holds the caller-supplied fields for a new catalogue entry.
// Omitted optional fields get catalogue defaults.
type CreateInput struct {
	Title       string
	Author      string
	Publication string
	PublishedAt *time.Time
	Price       float64
	ISBN        string
	Rating      *float64
}

func (service *Service) CreateBook(context context.Context, input CreateInput) (*Book, error) {
	validator := &validate.Validator{}
	validator.
		Required(FieldTitle, input.Title).MaxLen(FieldTitle, input.Title, 200).
		Required(FieldPublication, input.Publication).
		Required(FieldISBN, input.ISBN).
		Positive(FieldPrice, input.Price)

	if input.Rating != nil {
		validator.Range(FieldRating, *input.Rating, 0, 5)
	}

	if err := validator.Err(); err != nil {
		return nil, err
	}

	b := &Book{
		ID:          uuidv7.New(),
		Title:       input.Title,
		Slug:        slug.From(input.Title),
		Author:      input.Author,
		Publication: input.Publication,
		PublishedAt: time.Now(),
		Price:       input.Price,
		ISBN:        input.ISBN,
		Rating:      DefaultRating,
	}

	if b.Author == "" {
		b.Author = DefaultAuthor
	}
	if input.PublishedAt != nil {
		b.PublishedAt = *input.PublishedAt
	}
	if input.Rating != nil {
		b.Rating = *input.Rating
	}

	if err := service.repo.CreateBook(context, b); err != nil {
		return nil, err
	}

	service.logger.Info("book_created",
		slog.String("book_id", b.ID),
		slog.String("slug", b.Slug),
	)
	return b, nil
}

// UpdateInput holds the patchable fields. Nil pointers leave the current
// value untouched.
type UpdateInput struct {
	Title       *string
	Author      *string
	Publication *string
	PublishedAt *time.Time
	Price       *float64
	ISBN        *string
	Rating      *float64
}

func (service *Service) UpdateBook(context context.Context, id string, input UpdateInput) (*Book, error) {
	b, err := service.repo.GetBook(context, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		b.Title = *input.Title
		// The slug follows the title; stale slugs would 404 forever.
		b.Slug = slug.From(b.Title)
	}
	if input.Author != nil {
		b.Author = *input.Author
	}
	if input.Publication != nil {
		b.Publication = *input.Publication
	}
	if input.PublishedAt != nil {
		b.PublishedAt = *input.PublishedAt
	}
	if input.Price != nil {
		b.Price = *input.Price
	}
	if input.ISBN != nil {
		b.ISBN = *input.ISBN
	}
	if input.Rating != nil {
		b.Rating = *input.Rating
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldTitle, b.Title).MaxLen(FieldTitle, b.Title, 200).
		Required(FieldPublication, b.Publication).
		Required(FieldISBN, b.ISBN).
		Positive(FieldPrice, b.Price).
		Range(FieldRating, b.Rating, 0, 5)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.repo.UpdateBook(context, b); err != nil {
		return nil, err
	}

	service.logger.Info("book_updated", slog.String("book_id", b.ID))
	return b, nil
}

func (service *Service) DeleteBook(context context.Context, id string) error {
	if err := service.repo.DeleteBook(context, id); err != nil {
		return err
	}

	service.logger.Warn("book_deleted", slog.String("book_id", id))
	return nil
}

// PublicationStats aggregates the catalogue per publication over books
// priced at or above minPrice. Pass a negative minPrice to get the default
// floor.
func (service *Service) PublicationStats(context context.Context, minPrice float64) ([]PublicationStat, error) {
	if minPrice < 0 {
		minPrice = DefaultStatsMinPrice
	}
	return service.repo.PublicationStats(context, minPrice)
}
