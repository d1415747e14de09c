package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"navyaJuicesAPI/services"
)

type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

func (h *CatalogHandler) GetStorefront(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	storefront, err := h.catalogService.GetStorefront(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to load storefront")
		return
	}

	respondWithJSON(w, http.StatusOK, storefront)
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	products, err := h.catalogService.ListProducts(ctx, r.URL.Query().Get("category"))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to load products")
		return
	}

	respondWithJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	product, err := h.catalogService.GetProductBySlug(ctx, mux.Vars(r)["slug"])
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Unable to load product")
		return
	}

	respondWithJSON(w, http.StatusOK, product)
}
