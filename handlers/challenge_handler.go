package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"navyaJuicesAPI/internal/challenge"
	"navyaJuicesAPI/middleware"
	"navyaJuicesAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
	userService      *services.UserService
}

func NewChallengeHandler(challengeService *services.ChallengeService, userService *services.UserService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
		userService:      userService,
	}
}

func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	challenges, err := h.challengeService.ListChallenges(ctx)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Unable to load challenges")
		return
	}

	respondWithJSON(w, http.StatusOK, challenges)
}

func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	challengeID, err := uuid.Parse(mux.Vars(r)["challengeID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge ID")
		return
	}

	def, err := h.challengeService.GetChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, challenge.ErrChallengeNotFound) {
			respondWithError(w, http.StatusNotFound, "Challenge not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Unable to load challenge")
		return
	}

	// The detail page also needs to know whether the caller is already in.
	resp := struct {
		*challenge.Definition
		EnrollmentID *uuid.UUID `json:"enrollment_id,omitempty"`
	}{Definition: def}

	if clerkID, ok := middleware.GetClerkID(ctx); ok {
		if userID, err := h.userService.GetUserID(ctx, clerkID); err == nil {
			if enrollment, err := h.challengeService.FindEnrollment(ctx, userID, challengeID); err == nil && enrollment != nil {
				resp.EnrollmentID = &enrollment.ID
			}
		}
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ChallengeHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		ChallengeID string `json:"challenge_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	challengeID, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge ID")
		return
	}

	userID, err := h.userService.GetUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "User not found")
		return
	}

	enrollmentID, err := h.challengeService.Enroll(ctx, userID, challengeID)
	if err != nil {
		if errors.Is(err, challenge.ErrChallengeNotFound) {
			respondWithError(w, http.StatusNotFound, "Challenge not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Unable to enroll")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"enrollment_id": enrollmentID.String()})
}

func (h *ChallengeHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	enrollmentID, err := uuid.Parse(mux.Vars(r)["enrollmentID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid enrollment ID")
		return
	}

	if !h.ownsEnrollment(ctx, w, enrollmentID) {
		return
	}

	result, err := h.challengeService.CheckIn(ctx, enrollmentID)
	if err != nil {
		switch {
		case errors.Is(err, challenge.ErrEnrollmentNotFound):
			middleware.CountCheckIn("rejected")
			respondWithError(w, http.StatusNotFound, "Enrollment not found")
		case errors.Is(err, challenge.ErrNotActive):
			middleware.CountCheckIn("rejected")
			respondWithError(w, http.StatusConflict, "Challenge already finished")
		case errors.Is(err, challenge.ErrAlreadyCheckedIn):
			// Soft failure: the client shows "already checked in", not an error page.
			middleware.CountCheckIn("duplicate")
			respondWithJSON(w, http.StatusOK, map[string]any{
				"already_checked_in": true,
			})
		default:
			middleware.CountCheckIn("error")
			respondWithError(w, http.StatusServiceUnavailable, "Check-in failed, please retry")
		}
		return
	}

	middleware.CountCheckIn("success")
	respondWithJSON(w, http.StatusOK, result)
}

func (h *ChallengeHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	enrollmentID, err := uuid.Parse(mux.Vars(r)["enrollmentID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid enrollment ID")
		return
	}

	if !h.ownsEnrollment(ctx, w, enrollmentID) {
		return
	}

	view, err := h.challengeService.GetProgressView(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, challenge.ErrEnrollmentNotFound) {
			respondWithError(w, http.StatusNotFound, "Enrollment not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Unable to load progress")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// ownsEnrollment rejects requests against someone else's enrollment. A wrong
// owner gets the same 404 as a missing enrollment.
func (h *ChallengeHandler) ownsEnrollment(ctx context.Context, w http.ResponseWriter, enrollmentID uuid.UUID) bool {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return false
	}
	userID, err := h.userService.GetUserID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "User not found")
		return false
	}

	enrollment, err := h.challengeService.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, challenge.ErrEnrollmentNotFound) {
			respondWithError(w, http.StatusNotFound, "Enrollment not found")
			return false
		}
		respondWithError(w, http.StatusInternalServerError, "Unable to load enrollment")
		return false
	}
	if enrollment.UserID != userID {
		respondWithError(w, http.StatusNotFound, "Enrollment not found")
		return false
	}
	return true
}
