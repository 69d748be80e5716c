package handlers

import (
	"net/http"

	"github.com/cassiomorais/checkout/internal/application/catalog"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/interfaces/http/dto"
	"github.com/cassiomorais/checkout/internal/interfaces/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ProductHandler struct {
	createUC   *catalog.CreateProductUseCase
	getUC      *catalog.GetProductUseCase
	listUC     *catalog.ListProductsUseCase
	addStockUC *catalog.AddStockUseCase
}

func NewProductHandler(
	createUC *catalog.CreateProductUseCase,
	getUC *catalog.GetProductUseCase,
	listUC *catalog.ListProductsUseCase,
	addStockUC *catalog.AddStockUseCase,
) *ProductHandler {
	return &ProductHandler{createUC: createUC, getUC: getUC, listUC: listUC, addStockUC: addStockUC}
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter := product.ListFilter{
		InStockOnly: r.URL.Query().Get("in_stock") == "true",
		Limit:       limit,
		Offset:      offset,
	}.WithDefaults()
	list, err := h.listUC.Execute(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.ProductResponse]{
		Items:  dto.FromProducts(list),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Get handles GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, domainErrors.NewValidationError("id", "must be a UUID"))
		return
	}
	p, err := h.getUC.Execute(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromProduct(p))
}

// Create handles POST /api/v1/admin/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProductRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.createUC.Execute(r.Context(), catalog.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	admin, _ := middleware.GetSubject(r.Context())
	log.Info().Str("product_id", p.ID.String()).Str("admin", admin).Msg("Product created")
	writeJSON(w, http.StatusCreated, dto.FromProduct(p))
}

// AddStock handles POST /api/v1/admin/products/{id}/stock
func (h *ProductHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, domainErrors.NewValidationError("id", "must be a UUID"))
		return
	}
	var req dto.AddStockRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.addStockUC.Execute(r.Context(), id, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	admin, _ := middleware.GetSubject(r.Context())
	log.Info().Str("product_id", p.ID.String()).Str("admin", admin).Int("added", req.Quantity).Int("stock", p.Stock).Msg("Stock added")
	writeJSON(w, http.StatusOK, dto.FromProduct(p))
}
