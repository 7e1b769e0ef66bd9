package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voltfleet/rental-backend/internal/middleware"
	"github.com/voltfleet/rental-backend/vehicle"
)

type vehicleResponse struct {
	ID          uuid.UUID      `json:"id"`
	Label       string         `json:"label"`
	DisplayName *string        `json:"displayName,omitempty"`
	ImageURL    *string        `json:"imageUrl,omitempty"`
	Status      vehicle.Status `json:"status"`
	BatterySoc  float64        `json:"batterySoc"`
	OdoKm       int64          `json:"odoKm"`
	StationID   *uuid.UUID     `json:"stationId,omitempty"`
	StationName *string        `json:"stationName,omitempty"`
	Lat         float64        `json:"latitude"`
	Lng         float64        `json:"longitude"`
}

func toVehicleResponse(v vehicle.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:          v.ID,
		Label:       v.Label,
		DisplayName: v.DisplayName,
		ImageURL:    v.ImageURL,
		Status:      v.Status,
		BatterySoc:  v.BatterySoc,
		OdoKm:       v.OdoKm,
		StationID:   v.StationID,
		StationName: v.StationName,
		Lat:         v.Location.P.X,
		Lng:         v.Location.P.Y,
	}
}

func (a *API) vehiclesHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	var stationIDPtr *string
	if s := c.Query("stationId"); s != "" {
		stationIDPtr = &s
	}
	var statusPtr *vehicle.Status
	if s := c.Query("status"); s != "" {
		status := vehicle.Status(s)
		if !status.Valid() {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Unknown status filter")
			return
		}
		statusPtr = &status
	}

	vehicles, err := a.vr.GetVehicles(c, stationIDPtr, statusPtr)
	if err != nil {
		logger.ErrorContext(c, "failed to get vehicles", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	responses := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		responses = append(responses, toVehicleResponse(v))
	}

	// The fleet is small; the directory is returned whole, unpaginated.
	respondData(c, http.StatusOK, responses)
}

// vehicleHandler resolves a vehicle by internal id or by the physical
// label staff scan at the station.
func (a *API) vehicleHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	param := c.Param("id")

	var v vehicle.Vehicle
	var err error
	if _, uuidErr := uuid.Parse(param); uuidErr == nil {
		v, err = a.vr.GetVehicleByID(c, param)
	} else {
		v, err = a.vr.GetVehicle(c, param)
	}
	if err != nil {
		if errors.Is(err, vehicle.ErrNotFound) {
			respondError(c, http.StatusNotFound, "VEHICLE_NOT_FOUND", "Vehicle not found")
			return
		}
		logger.ErrorContext(c, "failed to get vehicle", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	respondData(c, http.StatusOK, toVehicleResponse(v))
}

type maintenanceRequest struct {
	Down *bool `json:"down" binding:"required"`
}

func (a *API) vehicleMaintenanceHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	if _, ok := a.resolveStaff(c); !ok {
		return
	}

	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	err := a.vr.SetMaintenance(c, c.Param("id"), *req.Down)
	if err != nil {
		if errors.Is(err, vehicle.ErrNotFound) {
			respondError(c, http.StatusNotFound, "VEHICLE_NOT_FOUND", "Vehicle not found")
			return
		}
		if errors.Is(err, vehicle.ErrNotAvailable) {
			respondError(c, http.StatusConflict, "INVALID_STATE", "Vehicle cannot change maintenance state now")
			return
		}
		logger.ErrorContext(c, "failed to update maintenance state", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	respondData(c, http.StatusOK, gin.H{"label": c.Param("id"), "down": *req.Down})
}
