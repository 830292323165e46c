package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// categorySale is the pseudo category the storefront uses for discounted
// products.
const categorySale = "sale"

// CatalogHandler handles HTTP requests for catalog endpoints.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Response DTOs ---

// ProductView is a product as served to clients, with derived pricing.
type ProductView struct {
	domain.Product
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	OnSale          bool            `json:"on_sale"`
	InStock         bool            `json:"in_stock"`
}

func newProductView(p domain.Product) ProductView {
	return ProductView{
		Product:         p,
		DiscountedPrice: p.DiscountedPrice().Round(2),
		OnSale:          p.OnSale(),
		InStock:         p.InStock(),
	}
}

func newProductViews(products []domain.Product) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	return views
}

// PageInfo describes the page cut out of a query result.
type PageInfo struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// QueryResponse is the payload of GET /api/v1/products.
type QueryResponse struct {
	Products       []ProductView   `json:"products"`
	Total          int             `json:"total"`
	Criteria       domain.Criteria `json:"criteria"`
	CatalogVersion uint64          `json:"catalog_version"`
	TookMs         int64           `json:"took_ms"`
	Pagination     *PageInfo       `json:"pagination,omitempty"`
}

// ReloadResponse is the payload of POST /api/v1/catalog/reload.
type ReloadResponse struct {
	Version      uint64    `json:"version"`
	ProductCount int       `json:"product_count"`
	Source       string    `json:"source"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// --- Handlers ---

// QueryProducts handles GET /api/v1/products
//
// Query parameters: category, min_price, max_price, brand (repeated or comma
// separated), sort, q, on_sale, and optionally page and per_page. Without
// paging parameters the whole ordered result is returned.
func (h *CatalogHandler) QueryProducts(w http.ResponseWriter, r *http.Request) {
	criteria, ok := parseCriteria(w, r)
	if !ok {
		return
	}

	result, err := h.service.Query(r.Context(), criteria)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := QueryResponse{
		Products:       newProductViews(result.Products),
		Total:          result.Total,
		Criteria:       result.Criteria,
		CatalogVersion: result.CatalogVersion,
		TookMs:         result.TookMs,
	}

	if params, paged := pagination.FromRequest(r); paged {
		page := pagination.Paginate(resp.Products, params)
		resp.Products = page.Data
		resp.Pagination = &PageInfo{
			Page:       page.Page,
			PerPage:    page.PerPage,
			TotalPages: page.TotalPages,
			HasNext:    page.HasNext,
			HasPrev:    page.HasPrev,
		}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newProductView(*product)})
}

// GetProductBySlug handles GET /api/v1/products/slug/{slug}
func (h *CatalogHandler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newProductView(*product)})
}

// ProductsByCategory handles GET /api/v1/products/category/{category}
//
// The match is case insensitive; "all" returns the whole catalog and "sale"
// the discounted products.
func (h *CatalogHandler) ProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	var (
		products []domain.Product
		err      error
	)
	if strings.EqualFold(strings.TrimSpace(category), categorySale) {
		products, err = h.service.OnSale(r.Context())
	} else {
		products, err = h.service.ProductsByCategory(r.Context(), category)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newProductViews(products)})
}

// SearchProducts handles GET /api/v1/products/search?q=
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httputil.WriteParameterError(w, "q is required")
		return
	}

	products, err := h.service.Search(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newProductViews(products)})
}

// FeaturedProducts handles GET /api/v1/products/featured
func (h *CatalogHandler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.WriteParameterError(w, "limit must be a valid positive integer")
			return
		}
		limit = n
	}

	products, err := h.service.Featured(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newProductViews(products)})
}

// SaleProducts handles GET /api/v1/products/sale
func (h *CatalogHandler) SaleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.OnSale(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newProductViews(products)})
}

// Facets handles GET /api/v1/catalog/facets
func (h *CatalogHandler) Facets(w http.ResponseWriter, r *http.Request) {
	facets, err := h.service.Facets(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: facets})
}

// Reload handles POST /api/v1/catalog/reload
func (h *CatalogHandler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Reload(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ReloadResponse{
		Version:      snap.Version(),
		ProductCount: snap.Len(),
		Source:       snap.Source(),
		LoadedAt:     snap.LoadedAt(),
	}})
}

// --- Parameter parsing ---

// parseCriteria reads query criteria from the URL. Malformed values are
// answered with INVALID_PARAMETER; range and sort checks are left to the
// service.
func parseCriteria(w http.ResponseWriter, r *http.Request) (domain.Criteria, bool) {
	q := r.URL.Query()
	c := domain.Criteria{
		Category:    q.Get("category"),
		SortMode:    domain.SortMode(q.Get("sort")),
		SearchQuery: q.Get("q"),
		Brands:      splitList(q["brand"]),
	}

	if strings.EqualFold(strings.TrimSpace(c.Category), categorySale) {
		c.Category = domain.CategoryAll
		c.OnSale = true
	}

	for _, bound := range []struct {
		name string
		dst  *decimal.NullDecimal
	}{
		{"min_price", &c.PriceRange.Min},
		{"max_price", &c.PriceRange.Max},
	} {
		v := q.Get(bound.name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			httputil.WriteParameterError(w, bound.name+" must be a valid number")
			return domain.Criteria{}, false
		}
		*bound.dst = decimal.NewNullDecimal(d)
	}

	if v := q.Get("on_sale"); v != "" {
		onSale, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteParameterError(w, "on_sale must be true or false")
			return domain.Criteria{}, false
		}
		c.OnSale = c.OnSale || onSale
	}

	return c, true
}

// splitList flattens repeated and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
