package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"navyaJuicesAPI/internal/order"
	"navyaJuicesAPI/middleware"
	"navyaJuicesAPI/services"
)

type OrderHandler struct {
	orderService *services.OrderService
	userService  *services.UserService
}

func NewOrderHandler(orderService *services.OrderService, userService *services.UserService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		userService:  userService,
	}
}

func (h *OrderHandler) resolveUser(ctx context.Context, w http.ResponseWriter) (uuid.UUID, bool) {
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

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	var req order.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.orderService.Checkout(ctx, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrEmptyCart):
			respondWithError(w, http.StatusBadRequest, "Cart is empty")
		case errors.Is(err, services.ErrAddressNotFound):
			respondWithError(w, http.StatusNotFound, "Address not found")
		case errors.Is(err, services.ErrProductUnavailable):
			respondWithError(w, http.StatusConflict, "Some items are no longer available")
		default:
			respondWithError(w, http.StatusInternalServerError, "Checkout failed")
		}
		return
	}

	middleware.CountOrderPlaced()
	respondWithJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	orders, err := h.orderService.ListOrders(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to load orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["orderID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	o, err := h.orderService.GetOrder(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Unable to load order")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["orderID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	o, err := h.orderService.CancelOrder(ctx, userID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, order.ErrInvalidTransition):
			respondWithError(w, http.StatusConflict, "Order can no longer be cancelled")
		default:
			respondWithError(w, http.StatusInternalServerError, "Unable to cancel order")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	addresses, err := h.orderService.ListAddresses(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to load addresses")
		return
	}

	respondWithJSON(w, http.StatusOK, addresses)
}

func (h *OrderHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	var req order.AddAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Recipient == "" || req.Phone == "" || req.Line1 == "" || req.City == "" || req.Pincode == "" {
		respondWithError(w, http.StatusBadRequest, "Address is incomplete")
		return
	}

	a, err := h.orderService.AddAddress(ctx, userID, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to save address")
		return
	}

	respondWithJSON(w, http.StatusCreated, a)
}

func (h *OrderHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := h.resolveUser(ctx, w)
	if !ok {
		return
	}

	addressID, err := uuid.Parse(mux.Vars(r)["addressID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid address ID")
		return
	}

	if err := h.orderService.DeleteAddress(ctx, userID, addressID); err != nil {
		if errors.Is(err, services.ErrAddressNotFound) {
			respondWithError(w, http.StatusNotFound, "Address not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Unable to delete address")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "address deleted"})
}
