package book

import "time"

// Book represents a single catalogue entry.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Author      string    `json:"author"`
	Publication string    `json:"publication"`
	PublishedAt time.Time `json:"published_at"`
	Price       float64   `json:"price"`
	ISBN        string    `json:"isbn"`
	Rating      float64   `json:"rating"`

	// Discount is derived from Price on every read and never stored.
	Discount float64 `json:"discount"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Catalogue defaults applied at creation when the caller omits a value.
const (
	DefaultAuthor = "Anonymous"
	DefaultRating = 4.5

	// discountRate is the flat catalogue-wide discount fraction.
	discountRate = 0.10
)

// Derive recomputes the derived fields. Must be called on every entity
// leaving the storage layer.
func (b *Book) Derive() {
	b.Discount = b.Price * discountRate
}

// Filter holds the parameters for a paginated catalogue search.
type Filter struct {
	Query       string // ILIKE search against title and author
	Publication string
	Author      string
	PriceMin    *float64
	PriceMax    *float64
	RatingMin   *float64
	Sort        []string // whitelisted sort keys, "-" prefix for descending
}

// PublicationStat is one row of the per-publication price-band aggregation.
type PublicationStat struct {
	Publication string  `json:"publication"`
	Count       int     `json:"count"`
	AvgPrice    float64 `json:"avg_price"`
	MinPrice    float64 `json:"min_price"`
	MaxPrice    float64 `json:"max_price"`
	AvgRating   float64 `json:"avg_rating"`
	MinRating   float64 `json:"min_rating"`
	MaxRating   float64 `json:"max_rating"`
}

// DefaultStatsMinPrice is the price floor used by the stats aggregation
// when the caller does not provide one.
const DefaultStatsMinPrice = 400.0

// Global field names for validation
const (
	FieldTitle       = "title"
	FieldAuthor      = "author"
	FieldPublication = "publication"
	FieldPrice       = "price"
	FieldISBN        = "isbn"
	FieldRating      = "rating"
)
