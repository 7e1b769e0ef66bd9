// Package api exposes the rental lifecycle engine over HTTP. Every
// response uses the same envelope: {"success": true, "data": ...} or
// {"success": false, "error": {"code", "message"}}; list responses add a
// "meta" pagination block.
package api

import (
	"math"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voltfleet/rental-backend/evidence"
	"github.com/voltfleet/rental-backend/internal/auth0"
	"github.com/voltfleet/rental-backend/internal/middleware"
	"github.com/voltfleet/rental-backend/internal/o11y"
	"github.com/voltfleet/rental-backend/payment"
	"github.com/voltfleet/rental-backend/rental"
	"github.com/voltfleet/rental-backend/staff"
	"github.com/voltfleet/rental-backend/station"
	"github.com/voltfleet/rental-backend/vehicle"
)

type Config struct {
	Auth0Domain string
	Audience    string

	MetricsUsername string
	MetricsPassword string

	// Auth overrides the JWT middleware when set; tests inject a fake here.
	Auth gin.HandlerFunc
}

type API struct {
	r       *gin.Engine
	rr      *rental.Repository
	er      *evidence.Repository
	pr      *payment.Repository
	vr      *vehicle.Repository
	sr      *station.Repository
	str     *staff.Repository
	auth0c  auth0.Client
	refunds payment.RefundIssuer
}

func New(
	rr *rental.Repository,
	er *evidence.Repository,
	pr *payment.Repository,
	vr *vehicle.Repository,
	sr *station.Repository,
	str *staff.Repository,
	auth0c auth0.Client,
	refunds payment.RefundIssuer,
	obs *o11y.Observability,
	cfg Config,
) (*API, error) {
	a := &API{
		r:       gin.New(),
		rr:      rr,
		er:      er,
		pr:      pr,
		vr:      vr,
		sr:      sr,
		str:     str,
		auth0c:  auth0c,
		refunds: refunds,
	}

	a.r.Use(gin.Recovery())
	a.r.Use(middleware.Tracing())
	a.r.Use(middleware.Logging(obs.Logger))
	a.r.Use(middleware.Metrics(obs.Registry))

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	metrics := gin.WrapH(promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))
	if cfg.MetricsUsername != "" {
		a.r.GET("/metrics", gin.BasicAuth(gin.Accounts{cfg.MetricsUsername: cfg.MetricsPassword}), metrics)
	} else {
		a.r.GET("/metrics", metrics)
	}

	a.r.GET("/stations", a.stationsHandler)
	a.r.GET("/vehicles", a.vehiclesHandler)
	a.r.GET("/vehicles/:id", a.vehicleHandler)

	authMW := cfg.Auth
	if authMW == nil {
		var err error
		authMW, err = middleware.StaffAuth(cfg.Auth0Domain, cfg.Audience)
		if err != nil {
			return nil, err
		}
	}

	protected := a.r.Group("/")
	protected.Use(authMW)
	{
		protected.GET("/staff/me", a.staffMeHandler)
		protected.POST("/staff/me/profile", a.syncStaffProfileHandler)
		protected.POST("/staff/me/station", a.assignStationHandler)

		protected.POST("/rentals", a.createRentalHandler)
		protected.GET("/rentals/:rentalId", a.getRentalHandler)
		protected.GET("/stations/:stationId/rentals", a.listStationRentalsHandler)

		protected.POST("/rentals/:rentalId/evidence", a.addEvidenceHandler)
		protected.POST("/rentals/:rentalId/handover/accept", a.acceptHandoverHandler)
		protected.POST("/rentals/:rentalId/handover/reject", a.rejectHandoverHandler)
		protected.POST("/rentals/:rentalId/return", a.recordReturnHandler)
		protected.POST("/rentals/:rentalId/settle/cash", a.settleCashHandler)
		protected.POST("/rentals/:rentalId/dispute", a.disputeHandler)
		protected.POST("/rentals/:rentalId/dispute/resolve", a.resolveDisputeHandler)
		protected.POST("/rentals/:rentalId/cancel", a.cancelRentalHandler)

		protected.POST("/vehicles/:id/maintenance", a.vehicleMaintenanceHandler)
	}

	return a, nil
}

func (a *API) Router() *gin.Engine {
	return a.r
}

type listMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func newListMeta(total, page, limit int) listMeta {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return listMeta{Total: total, Page: page, Limit: limit, TotalPages: pages}
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondList(c *gin.Context, data any, meta listMeta) {
	c.JSON(200, gin.H{"success": true, "data": data, "meta": meta})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"success": false, "error": gin.H{"code": code, "message": message}})
}
