package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voltfleet/rental-backend/internal/middleware"
	"github.com/voltfleet/rental-backend/staff"
)

type staffResponse struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email,omitempty"`
	Name      string     `json:"name,omitempty"`
	StationID *uuid.UUID `json:"stationId,omitempty"`
}

func toStaffResponse(s *staff.Staff) staffResponse {
	return staffResponse{
		ID:        s.ID,
		Email:     s.Email.String,
		Name:      s.Name.String,
		StationID: nullableUUID(s.StationID),
	}
}

func (a *API) staffMeHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	auth0ID, ok := middleware.GetStaffAuth0ID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	s, err := a.str.GetByAuth0ID(c, auth0ID)
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			s, err = a.str.Create(c, auth0ID)
			if err != nil {
				logger.ErrorContext(c, "failed to create staff", "error", err)
				respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
				return
			}
		} else {
			logger.ErrorContext(c, "failed to get staff", "error", err)
			respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
			return
		}
	}

	respondData(c, http.StatusOK, toStaffResponse(s))
}

type assignStationRequest struct {
	StationID string `json:"stationId" binding:"required"`
}

// assignStationHandler pins the staff member to the station they work
// from. Clients default their rental lists to it.
func (a *API) assignStationHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	auth0ID, ok := middleware.GetStaffAuth0ID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req assignStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	stationID, err := uuid.Parse(req.StationID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid stationId")
		return
	}

	if _, err := a.sr.GetStation(req.StationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "STATION_NOT_FOUND", "Station not found")
			return
		}
		logger.ErrorContext(c, "failed to get station", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	// The staff row may not exist yet; the assignment bootstraps it the
	// same way /staff/me does.
	if _, err := a.str.GetByAuth0ID(c, auth0ID); err != nil {
		if !errors.Is(err, staff.ErrNotFound) {
			logger.ErrorContext(c, "failed to get staff", "error", err)
			respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
			return
		}
		if _, err := a.str.Create(c, auth0ID); err != nil {
			logger.ErrorContext(c, "failed to create staff", "error", err)
			respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
			return
		}
	}

	if err := a.str.AssignStation(c, auth0ID, stationID); err != nil {
		logger.ErrorContext(c, "failed to assign station", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	s, err := a.str.GetByAuth0ID(c, auth0ID)
	if err != nil {
		logger.ErrorContext(c, "failed to reload staff", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	respondData(c, http.StatusOK, toStaffResponse(s))
}

// syncStaffProfileHandler pulls the staff member's name and email from the
// identity provider and stores them on the staff row, so transition audit
// trails can be rendered with human-readable names.
func (a *API) syncStaffProfileHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	auth0ID, ok := middleware.GetStaffAuth0ID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	info, err := a.auth0c.GetUserInfo(c, token)
	if err != nil {
		logger.ErrorContext(c, "failed to fetch user info", "error", err)
		respondError(c, http.StatusBadGateway, "UPSTREAM", "identity provider lookup failed")
		return
	}

	if err := a.str.UpdateProfile(c, auth0ID, info.Email, info.Name); err != nil {
		logger.ErrorContext(c, "failed to update staff profile", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	s, err := a.str.GetByAuth0ID(c, auth0ID)
	if err != nil {
		logger.ErrorContext(c, "failed to reload staff", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	respondData(c, http.StatusOK, toStaffResponse(s))
}
