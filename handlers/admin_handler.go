package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"navyaJuicesAPI/internal/catalog"
	"navyaJuicesAPI/internal/challenge"
	"navyaJuicesAPI/internal/order"
	"navyaJuicesAPI/middleware"
	"navyaJuicesAPI/services"
)

// AdminHandler serves the back-office: product management, the order pipeline
// and enrollment administration. Every route re-checks the is_admin flag.
type AdminHandler struct {
	catalogService   *services.CatalogService
	orderService     *services.OrderService
	challengeService *services.ChallengeService
	userService      *services.UserService
}

func NewAdminHandler(catalogService *services.CatalogService, orderService *services.OrderService, challengeService *services.ChallengeService, userService *services.UserService) *AdminHandler {
	return &AdminHandler{
		catalogService:   catalogService,
		orderService:     orderService,
		challengeService: challengeService,
		userService:      userService,
	}
}

func (h *AdminHandler) requireAdmin(ctx context.Context, w http.ResponseWriter) bool {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return false
	}
	isAdmin, err := h.userService.IsAdmin(ctx, clerkID)
	if err != nil || !isAdmin {
		respondWithError(w, http.StatusForbidden, "Admin access required")
		return false
	}
	return true
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.requireAdmin(ctx, w) {
		return
	}

	var req catalog.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.PriceCents <= 0 {
		respondWithError(w, http.StatusBadRequest, "Name and a positive price are required")
		return
	}

	p, err := h.catalogService.CreateProduct(ctx, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to create product")
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.requireAdmin(ctx, w) {
		return
	}

	productID, err := uuid.Parse(mux.Vars(r)["productID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req catalog.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.catalogService.UpdateProduct(ctx, productID, &req)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Unable to update product")
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.requireAdmin(ctx, w) {
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	orders, err := h.orderService.ListAllOrders(ctx, q.Get("status"), limit, offset)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Unable to list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.requireAdmin(ctx, w) {
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["orderID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req order.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Unknown order status")
		return
	}

	o, err := h.orderService.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, order.ErrInvalidTransition):
			respondWithError(w, http.StatusConflict, "Invalid status transition")
		default:
			respondWithError(w, http.StatusInternalServerError, "Unable to update order")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

// AbandonEnrollment ends a user's challenge attempt without deleting it.
func (h *AdminHandler) AbandonEnrollment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !h.requireAdmin(ctx, w) {
		return
	}

	enrollmentID, err := uuid.Parse(mux.Vars(r)["enrollmentID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid enrollment ID")
		return
	}

	if err := h.challengeService.AbandonEnrollment(ctx, enrollmentID); err != nil {
		switch {
		case errors.Is(err, challenge.ErrEnrollmentNotFound):
			respondWithError(w, http.StatusNotFound, "Enrollment not found")
		case errors.Is(err, challenge.ErrNotActive):
			respondWithError(w, http.StatusConflict, "Enrollment is not active")
		default:
			respondWithError(w, http.StatusInternalServerError, "Unable to abandon enrollment")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "enrollment abandoned"})
}
