package book

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/booklore/booklore/internal/platform/middleware"
	requestutil "github.com/booklore/booklore/internal/platform/request"
	"github.com/booklore/booklore/internal/platform/respond"
	"github.com/booklore/booklore/internal/platform/sec"
	"github.com/booklore/booklore/pkg/pagination"
	"github.com/booklore/booklore/pkg/query"
)

type Handler struct {
	service  *Service
	authGate func(http.Handler) http.Handler
}

func NewHandler(service *Service, authGate func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, authGate: authGate}
}

func (handler *Handler) RegisterRoutes(router chi.Router) {
	// Public catalogue reads
	router.Get("/", handler.listBooks)
	router.Get("/stats", handler.publicationStats)
	router.Get("/slug/{slug}", handler.getBookBySlug)
	router.Get("/{id}", handler.getBook)

	// Contributor/Admin only
	router.Group(func(protected chi.Router) {
		protected.Use(handler.authGate)
		protected.Use(middleware.RequireRole(sec.RoleContributor, sec.RoleAdmin))

		protected.Post("/", handler.createBook)
		protected.Patch("/{id}", handler.updateBook)

		// Admin strict only
		protected.With(middleware.RequireRole(sec.RoleAdmin)).Delete("/{id}", handler.deleteBook)
	})
}

func (handler *Handler) listBooks(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)
	values := request.URL.Query()

	filter := Filter{
		Query:       values.Get("q"),
		Publication: values.Get("publication"),
		Author:      values.Get("author"),
		Sort:        query.StringSlice(values.Get("sort")),
	}

	if value, ok := query.Float(values.Get("price_min")); ok {
		filter.PriceMin = &value
	}
	if value, ok := query.Float(values.Get("price_max")); ok {
		filter.PriceMax = &value
	}
	if value, ok := query.Float(values.Get("rating_min")); ok {
		filter.RatingMin = &value
	}

	books, total, err := handler.service.ListBooks(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, books, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

func (handler *Handler) publicationStats(writer http.ResponseWriter, request *http.Request) {
	minPrice := -1.0
	if value, ok := query.Float(request.URL.Query().Get("min_price")); ok {
		minPrice = value
	}

	stats, err := handler.service.PublicationStats(request.Context(), minPrice)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, stats)
}

func (handler *Handler) getBook(writer http.ResponseWriter, request *http.Request) {
	b, err := handler.service.GetBook(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, b)
}

func (handler *Handler) getBookBySlug(writer http.ResponseWriter, request *http.Request) {
	b, err := handler.service.GetBookBySlug(request.Context(), requestutil.Param(request, "slug"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, b)
}

type createBookRequest struct {
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Publication string     `json:"publication"`
	PublishedAt *time.Time `json:"published_at"`
	Price       float64    `json:"price"`
	ISBN        string     `json:"isbn"`
	Rating      *float64   `json:"rating"`
}

func (handler *Handler) createBook(writer http.ResponseWriter, request *http.Request) {
	var input createBookRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	b, err := handler.service.CreateBook(request.Context(), CreateInput{
		Title:       input.Title,
		Author:      input.Author,
		Publication: input.Publication,
		PublishedAt: input.PublishedAt,
		Price:       input.Price,
		ISBN:        input.ISBN,
		Rating:      input.Rating,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, b)
}

type updateBookRequest struct {
	Title       *string    `json:"title"`
	Author      *string    `json:"author"`
	Publication *string    `json:"publication"`
	PublishedAt *time.Time `json:"published_at"`
	Price       *float64   `json:"price"`
	ISBN        *string    `json:"isbn"`
	Rating      *float64   `json:"rating"`
}

func (handler *Handler) updateBook(writer http.ResponseWriter, request *http.Request) {
	var input updateBookRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	b, err := handler.service.UpdateBook(request.Context(), requestutil.ID(request, "id"), UpdateInput{
		Title:       input.Title,
		Author:      input.Author,
		Publication: input.Publication,
		PublishedAt: input.PublishedAt,
		Price:       input.Price,
		ISBN:        input.ISBN,
		Rating:      input.Rating,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, b)
}

func (handler *Handler) deleteBook(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.DeleteBook(request.Context(), requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
