package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voltfleet/rental-backend/internal/middleware"
	"github.com/voltfleet/rental-backend/station"
)

type stationResponse struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	OpeningHours string       `json:"openingHours"`
	Lat          float64      `json:"latitude"`
	Lng          float64      `json:"longitude"`
	Type         station.Type `json:"type"`
}

func toStationResponse(s station.Station) stationResponse {
	return stationResponse{
		ID:           s.ID,
		Name:         s.Name,
		Address:      s.Address,
		OpeningHours: s.OpeningHours,
		Type:         s.Type,
		Lat:          s.Location.P.X,
		Lng:          s.Location.P.Y,
	}
}

func (a *API) stationsHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	stations, err := a.sr.GetStations()
	if err != nil {
		logger.ErrorContext(c, "failed to get stations", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	responses := make([]stationResponse, 0, len(stations))
	for _, s := range stations {
		responses = append(responses, toStationResponse(s))
	}

	respondData(c, http.StatusOK, responses)
}
