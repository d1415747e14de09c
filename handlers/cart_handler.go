package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"navyaJuicesAPI/internal/cart"
	"navyaJuicesAPI/middleware"
	"navyaJuicesAPI/services"
)

type CartHandler struct {
	cartService *services.CartService
	userService *services.UserService
}

func NewCartHandler(cartService *services.CartService, userService *services.UserService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		userService: userService,
	}
}

func (h *CartHandler) resolveUser(ctx context.Context, w http.ResponseWriter) (uuid.UUID, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}
	userID, err := h.userService.GetUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "User not found")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	c, err := h.cartService.GetCart(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to load cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	var req cart.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	c, err := h.cartService.AddItem(ctx, userID, productID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrProductNotFound):
			respondWithError(w, http.StatusNotFound, "Product not found")
		case errors.Is(err, services.ErrProductUnavailable):
			respondWithError(w, http.StatusConflict, "Product is out of stock")
		default:
			respondWithError(w, http.StatusInternalServerError, "Unable to add to cart")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	var req cart.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	c, err := h.cartService.UpdateItemQuantity(ctx, userID, productID, req.Quantity)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Item not in cart")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Unable to update cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	productID, err := uuid.Parse(mux.Vars(r)["productID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	c, err := h.cartService.RemoveItem(ctx, userID, productID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to update cart")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(ctx, userID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to clear cart")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
