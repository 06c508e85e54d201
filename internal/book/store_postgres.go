package book

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/booklore/booklore/internal/platform/dberr"
)

const bookColumns = `id, title, slug, author, publication, publishedat, price, isbn, rating, createdat, updatedat`

// sortKeys whitelists the List sort parameter. Anything not in this map
// falls back to newest-published-first.
var sortKeys = map[string]string{
	"title":         "title ASC",
	"-title":        "title DESC",
	"price":         "price ASC",
	"-price":        "price DESC",
	"rating":        "rating ASC",
	"-rating":       "rating DESC",
	"published_at":  "publishedat ASC",
	"-published_at": "publishedat DESC",
}

const defaultSort = "publishedat DESC"

// orderByClause builds an ORDER BY expression from whitelisted sort keys.
// Unknown keys are skipped; an empty result falls back to newest-first.
func orderByClause(keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		if clause, ok := sortKeys[key]; ok {
			parts = append(parts, clause)
		}
	}
	if len(parts) == 0 {
		return defaultSort
	}
	return strings.Join(parts, ", ")
}

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) ListBooks(context context.Context, f Filter, limit, offset int) ([]*Book, int, error) {
	var conditions []string
	var args []any

	appendArg := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.Query != "" {
		appendArg(`(title ILIKE $%d OR author ILIKE $%[1]d)`, "%"+f.Query+"%")
	}
	if f.Publication != "" {
		appendArg(`publication = $%d`, f.Publication)
	}
	if f.Author != "" {
		appendArg(`author = $%d`, f.Author)
	}
	if f.PriceMin != nil {
		appendArg(`price >= $%d`, *f.PriceMin)
	}
	if f.PriceMax != nil {
		appendArg(`price <= $%d`, *f.PriceMax)
	}
	if f.RatingMin != nil {
		appendArg(`rating >= $%d`, *f.RatingMin)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := orderByClause(f.Sort)

	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total
		FROM core.book
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		bookColumns, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_books")
	}
	defer rows.Close()

	books := make([]*Book, 0, limit)
	total := 0

	for rows.Next() {
		b := &Book{}
		err := rows.Scan(
			&b.ID, &b.Title, &b.Slug, &b.Author, &b.Publication, &b.PublishedAt,
			&b.Price, &b.ISBN, &b.Rating, &b.CreatedAt, &b.UpdatedAt, &total,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_book")
		}
		b.Derive()
		books = append(books, b)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "list_books_rows")
	}

	return books, total, nil
}

func (repository *PostgresRepository) GetBook(context context.Context, id string) (*Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM core.book WHERE id = $1`, bookColumns)
	return repository.scanOne(context, query, id)
}

func (repository *PostgresRepository) GetBookBySlug(context context.Context, slug string) (*Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM core.book WHERE slug = $1`, bookColumns)
	return repository.scanOne(context, query, slug)
}

func (repository *PostgresRepository) CreateBook(context context.Context, b *Book) error {
	const query = `
		INSERT INTO core.book (
			id, title, slug, author, publication, publishedat, price, isbn, rating, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING createdat, updatedat`

	err := repository.db.QueryRow(context, query,
		b.ID, b.Title, b.Slug, b.Author, b.Publication, b.PublishedAt,
		b.Price, b.ISBN, b.Rating,
	).Scan(&b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "create_book")
	}

	b.Derive()
	return nil
}

func (repository *PostgresRepository) UpdateBook(context context.Context, b *Book) error {
	const query = `
		UPDATE core.book
		SET title = $2, slug = $3, author = $4, publication = $5, publishedat = $6,
		    price = $7, isbn = $8, rating = $9, updatedat = NOW()
		WHERE id = $1
		RETURNING updatedat`

	err := repository.db.QueryRow(context, query,
		b.ID, b.Title, b.Slug, b.Author, b.Publication, b.PublishedAt,
		b.Price, b.ISBN, b.Rating,
	).Scan(&b.UpdatedAt)

	if err != nil {
		return dberr.Wrap(err, "update_book")
	}

	b.Derive()
	return nil
}

func (repository *PostgresRepository) DeleteBook(context context.Context, id string) error {
	// Hard delete. Catalogue entries carry no relational history worth
	// preserving, unlike accounts.
	cmd, err := repository.db.Exec(context, `DELETE FROM core.book WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "delete_book")
	}

	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) PublicationStats(context context.Context, minPrice float64) ([]PublicationStat, error) {
	const query = `
		SELECT publication, COUNT(*) AS count,
		       AVG(price), MIN(price), MAX(price),
		       AVG(rating), MIN(rating), MAX(rating)
		FROM core.book
		WHERE price >= $1
		GROUP BY publication
		ORDER BY AVG(price) ASC`

	rows, err := repository.db.Query(context, query, minPrice)
	if err != nil {
		return nil, dberr.Wrap(err, "book_stats")
	}
	defer rows.Close()

	stats := make([]PublicationStat, 0)
	for rows.Next() {
		var stat PublicationStat
		err := rows.Scan(
			&stat.Publication, &stat.Count,
			&stat.AvgPrice, &stat.MinPrice, &stat.MaxPrice,
			&stat.AvgRating, &stat.MinRating, &stat.MaxRating,
		)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_book_stats")
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "book_stats_rows")
	}

	return stats, nil
}

func (repository *PostgresRepository) scanOne(context context.Context, query string, args ...any) (*Book, error) {
	b := &Book{}
	err := repository.db.QueryRow(context, query, args...).Scan(
		&b.ID, &b.Title, &b.Slug, &b.Author, &b.Publication, &b.PublishedAt,
		&b.Price, &b.ISBN, &b.Rating, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "get_book")
	}

	b.Derive()
	return b, nil
}
