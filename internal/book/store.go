package book

import "context"

type Repository interface {
	ListBooks(context context.Context, f Filter, limit, offset int) ([]*Book, int, error)
	GetBook(context context.Context, id string) (*Book, error)
	GetBookBySlug(context context.Context, slug string) (*Book, error)
	CreateBook(context context.Context, b *Book) error
	UpdateBook(context context.Context, b *Book) error
	DeleteBook(context context.Context, id string) error
	PublicationStats(context context.Context, minPrice float64) ([]PublicationStat, error)
}
