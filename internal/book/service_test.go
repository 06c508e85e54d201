package book

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booklore/booklore/internal/platform/apperr"
	"github.com/booklore/booklore/pkg/pointer"
)

// memoryRepo is an in-memory Repository for service tests.
type memoryRepo struct {
	books map[string]*Book

	// lastStatsMinPrice records what floor the service asked for.
	lastStatsMinPrice float64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{books: make(map[string]*Book)}
}

func (repo *memoryRepo) ListBooks(_ context.Context, _ Filter, limit, offset int) ([]*Book, int, error) {
	all := make([]*Book, 0, len(repo.books))
	for _, b := range repo.books {
		all = append(all, b)
	}
	return all, len(all), nil
}

func (repo *memoryRepo) GetBook(_ context.Context, id string) (*Book, error) {
	b, found := repo.books[id]
	if !found {
		return nil, apperr.NotFound("Book")
	}
	clone := *b
	clone.Derive()
	return &clone, nil
}

func (repo *memoryRepo) GetBookBySlug(_ context.Context, slug string) (*Book, error) {
	for _, b := range repo.books {
		if b.Slug == slug {
			clone := *b
			clone.Derive()
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Book")
}

func (repo *memoryRepo) CreateBook(_ context.Context, b *Book) error {
	for _, existing := range repo.books {
		if existing.ISBN == b.ISBN || existing.Slug == b.Slug {
			return apperr.Conflict("Duplicate value for a unique field")
		}
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Derive()
	repo.books[b.ID] = b
	return nil
}

func (repo *memoryRepo) UpdateBook(_ context.Context, b *Book) error {
	if _, found := repo.books[b.ID]; !found {
		return apperr.NotFound("Book")
	}
	b.UpdatedAt = time.Now()
	b.Derive()
	repo.books[b.ID] = b
	return nil
}

func (repo *memoryRepo) DeleteBook(_ context.Context, id string) error {
	if _, found := repo.books[id]; !found {
		return apperr.NotFound("Book")
	}
	delete(repo.books, id)
	return nil
}

func (repo *memoryRepo) PublicationStats(_ context.Context, minPrice float64) ([]PublicationStat, error) {
	repo.lastStatsMinPrice = minPrice
	return []PublicationStat{}, nil
}

func newBookFixture(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	return NewService(repo, slog.Default()), repo
}

func validCreate() CreateInput {
	return CreateInput{
		Title:       "The Name of the Wind",
		Author:      "Patrick Rothfuss",
		Publication: "DAW Books",
		Price:       650,
		ISBN:        "978-0756404741",
	}
}

func TestCreateBook_AppliesDefaults(t *testing.T) {
	service, _ := newBookFixture(t)

	input := validCreate()
	input.Author = ""

	b, err := service.CreateBook(context.Background(), input)
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "the-name-of-the-wind", b.Slug)
	assert.Equal(t, DefaultAuthor, b.Author)
	assert.Equal(t, DefaultRating, b.Rating)
	assert.False(t, b.PublishedAt.IsZero())
	assert.InDelta(t, 65.0, b.Discount, 0.0001, "discount is always 10%% of price")
}

func TestCreateBook_ExplicitValuesWin(t *testing.T) {
	service, _ := newBookFixture(t)

	publishedAt := time.Date(2007, 3, 27, 0, 0, 0, 0, time.UTC)
	input := validCreate()
	input.PublishedAt = &publishedAt
	input.Rating = pointer.To(4.9)

	b, err := service.CreateBook(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, publishedAt, b.PublishedAt)
	assert.Equal(t, 4.9, b.Rating)
	assert.Equal(t, "Patrick Rothfuss", b.Author)
}

func TestCreateBook_ValidationFailures(t *testing.T) {
	service, _ := newBookFixture(t)

	testCases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing title", func(in *CreateInput) { in.Title = "" }},
		{"missing publication", func(in *CreateInput) { in.Publication = "" }},
		{"missing isbn", func(in *CreateInput) { in.ISBN = "" }},
		{"zero price", func(in *CreateInput) { in.Price = 0 }},
		{"negative price", func(in *CreateInput) { in.Price = -5 }},
		{"rating above scale", func(in *CreateInput) { in.Rating = pointer.To(5.5) }},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			input := validCreate()
			testCase.mutate(&input)

			_, err := service.CreateBook(context.Background(), input)
			require.Error(t, err)
			assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
		})
	}
}

func TestCreateBook_DuplicateISBN(t *testing.T) {
	service, _ := newBookFixture(t)

	_, err := service.CreateBook(context.Background(), validCreate())
	require.NoError(t, err)

	input := validCreate()
	input.Title = "A Different Title"
	_, err = service.CreateBook(context.Background(), input)

	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

func TestGetBookBySlug(t *testing.T) {
	service, _ := newBookFixture(t)

	created, err := service.CreateBook(context.Background(), validCreate())
	require.NoError(t, err)

	found, err := service.GetBookBySlug(context.Background(), "the-name-of-the-wind")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = service.GetBookBySlug(context.Background(), "no-such-slug")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

func TestUpdateBook_TitleChangeReslugs(t *testing.T) {
	service, _ := newBookFixture(t)

	created, err := service.CreateBook(context.Background(), validCreate())
	require.NoError(t, err)

	updated, err := service.UpdateBook(context.Background(), created.ID, UpdateInput{
		Title: pointer.To("The Wise Man's Fear"),
	})
	require.NoError(t, err)

	assert.Equal(t, "the-wise-man-s-fear", updated.Slug)
	assert.Equal(t, created.ISBN, updated.ISBN, "absent fields must stay untouched")
}

func TestUpdateBook_PriceChangeRecomputesDiscount(t *testing.T) {
	service, _ := newBookFixture(t)

	created, err := service.CreateBook(context.Background(), validCreate())
	require.NoError(t, err)

	updated, err := service.UpdateBook(context.Background(), created.ID, UpdateInput{
		Price: pointer.To(1000.0),
	})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, updated.Discount, 0.0001)
}

func TestUpdateBook_InvalidPatch(t *testing.T) {
	service, _ := newBookFixture(t)

	created, err := service.CreateBook(context.Background(), validCreate())
	require.NoError(t, err)

	_, err = service.UpdateBook(context.Background(), created.ID, UpdateInput{
		Price: pointer.To(-10.0),
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

func TestUpdateBook_NotFound(t *testing.T) {
	service, _ := newBookFixture(t)

	_, err := service.UpdateBook(context.Background(), "missing-id", UpdateInput{})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

func TestDeleteBook(t *testing.T) {
	service, repo := newBookFixture(t)

	created, err := service.CreateBook(context.Background(), validCreate())
	require.NoError(t, err)

	require.NoError(t, service.DeleteBook(context.Background(), created.ID))
	assert.Empty(t, repo.books, "delete is hard; the row is gone")

	err = service.DeleteBook(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

func TestPublicationStats_DefaultFloor(t *testing.T) {
	service, repo := newBookFixture(t)

	_, err := service.PublicationStats(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, DefaultStatsMinPrice, repo.lastStatsMinPrice)

	_, err = service.PublicationStats(context.Background(), 250)
	require.NoError(t, err)
	assert.Equal(t, 250.0, repo.lastStatsMinPrice)
}
