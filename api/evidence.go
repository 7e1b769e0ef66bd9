package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voltfleet/rental-backend/evidence"
	"github.com/voltfleet/rental-backend/internal/middleware"
)

type addEvidenceRequest struct {
	ID      string `json:"id" binding:"required"`
	Phase   string `json:"phase" binding:"required"`
	URL     string `json:"url" binding:"required"`
	TakenAt string `json:"takenAt"`
}

// addEvidenceHandler registers one photo reference ahead of the transition
// that will consume it. The reference id doubles as the idempotency key,
// so clients retry this call freely on upload hiccups; the evidence count
// is only enforced when the transition itself commits.
func (a *API) addEvidenceHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	rentalID, ok := parseRentalID(c)
	if !ok {
		return
	}
	if _, ok := a.resolveStaff(c); !ok {
		return
	}

	var req addEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	photoID, err := uuid.Parse(req.ID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid photo reference id")
		return
	}

	phase := evidence.Phase(req.Phase)
	if !phase.Valid() {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "phase must be PICKUP, PICKUP_REJECT or RETURN")
		return
	}

	takenAt := time.Now().UTC()
	if req.TakenAt != "" {
		t, err := time.Parse(time.RFC3339, req.TakenAt)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid takenAt format")
			return
		}
		takenAt = t
	}

	// The rental must exist; evidence is owned by exactly one rental.
	if _, err := a.rr.GetByID(c, rentalID); err != nil {
		rentalError(c, err)
		return
	}

	p := evidence.Photo{
		ID:       photoID,
		RentalID: rentalID,
		Phase:    phase,
		URL:      req.URL,
		TakenAt:  takenAt,
	}
	if err := a.er.Add(c, p); err != nil {
		logger.ErrorContext(c, "failed to register evidence", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	// The phase count tells the client how far it is from the evidence
	// floor; a retried registration leaves it unchanged.
	count, err := a.er.CountByPhase(c, rentalID, phase)
	if err != nil {
		logger.ErrorContext(c, "failed to count evidence", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	respondData(c, http.StatusCreated, gin.H{"photo": p, "phaseCount": count})
}
