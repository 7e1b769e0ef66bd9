package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voltfleet/rental-backend/evidence"
	"github.com/voltfleet/rental-backend/internal/middleware"
	"github.com/voltfleet/rental-backend/payment"
	"github.com/voltfleet/rental-backend/rental"
	"github.com/voltfleet/rental-backend/staff"
)

type pricingDetails struct {
	RawBase    int64             `json:"rawBase"`
	RentalType rental.RentalType `json:"rentalType"`
	Hours      int32             `json:"hours"`
	Days       int32             `json:"days"`
}

type pricingResponse struct {
	BasePrice      int64             `json:"basePrice"`
	Rate           int64             `json:"rate"`
	Deposit        int64             `json:"deposit"`
	InsurancePrice int64             `json:"insurancePrice"`
	Taxes          int64             `json:"taxes"`
	Currency       string            `json:"currency"`
	RentalType     rental.RentalType `json:"rentalType"`
	DurationUnits  int32             `json:"durationUnits"`
	PolicyVersion  string            `json:"policyVersion"`
	Details        pricingDetails    `json:"details"`
}

type pickupResponse struct {
	At      time.Time  `json:"at"`
	StaffID *uuid.UUID `json:"staffId,omitempty"`
	OdoKm   *int64     `json:"odoKm,omitempty"`
	Soc     *float64   `json:"soc,omitempty"`
	Notes   string     `json:"notes,omitempty"`

	Rejected *rejectionResponse `json:"rejected,omitempty"`
}

type rejectionResponse struct {
	At      time.Time  `json:"at"`
	StaffID *uuid.UUID `json:"staffId,omitempty"`
	Reason  string     `json:"reason"`
}

type returnResponse struct {
	At      time.Time  `json:"at"`
	StaffID *uuid.UUID `json:"staffId,omitempty"`
	OdoKm   int64      `json:"odoKm"`
	Soc     float64    `json:"soc"`
}

type transitionResponse struct {
	From       rental.Status `json:"from"`
	To         rental.Status `json:"to"`
	Actor      string        `json:"actor"`
	OccurredAt time.Time     `json:"occurredAt"`
}

type rentalResponse struct {
	ID         uuid.UUID     `json:"id"`
	BookingID  uuid.UUID     `json:"bookingId"`
	CustomerID uuid.UUID     `json:"customerId"`
	VehicleID  uuid.UUID     `json:"vehicleId"`
	StationID  uuid.UUID     `json:"stationId"`
	Status     rental.Status `json:"status"`
	Version    int64         `json:"version"`

	Pricing pricingResponse `json:"pricingSnapshot"`

	BookedStartAt time.Time `json:"bookedStartAt"`
	BookedEndAt   time.Time `json:"bookedEndAt"`

	Pickup  *pickupResponse `json:"pickup,omitempty"`
	Return  *returnResponse `json:"return,omitempty"`
	Charges *rental.Charges `json:"charges,omitempty"`

	Settlement *rental.Delta `json:"settlement,omitempty"`
	// CashCollected is the cash taken so far against an amount owed, so
	// the desk can display the remaining balance mid-settlement.
	CashCollected *int64 `json:"cashCollected,omitempty"`

	DisputeNote    string `json:"disputeNote,omitempty"`
	ResolutionNote string `json:"resolutionNote,omitempty"`

	Photos      []evidence.Photo     `json:"photos,omitempty"`
	Payments    []payment.Payment    `json:"payments,omitempty"`
	Transitions []transitionResponse `json:"transitions,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func toRentalResponse(rt rental.Rental) rentalResponse {
	resp := rentalResponse{
		ID:         rt.ID,
		BookingID:  rt.BookingID,
		CustomerID: rt.CustomerID,
		VehicleID:  rt.VehicleID,
		StationID:  rt.StationID,
		Status:     rt.Status,
		Version:    rt.Version,
		Pricing: pricingResponse{
			BasePrice:      rt.BasePrice,
			Rate:           rt.Rate,
			Deposit:        rt.Deposit,
			InsurancePrice: rt.InsurancePrice,
			Taxes:          rt.Taxes,
			Currency:       rt.Currency,
			RentalType:     rt.RentalType,
			DurationUnits:  rt.DurationUnits,
			PolicyVersion:  rt.PolicyVersion,
			Details: pricingDetails{
				RawBase:    rt.RawBase,
				RentalType: rt.RentalType,
				Hours:      rt.Hours,
				Days:       rt.Days,
			},
		},
		BookedStartAt:  rt.BookedStartAt,
		BookedEndAt:    rt.BookedEndAt,
		DisputeNote:    rt.DisputeNote.String,
		ResolutionNote: rt.ResolutionNote.String,
		CreatedAt:      rt.CreatedAt,
	}

	if rt.PickedUpAt.Valid {
		resp.Pickup = &pickupResponse{
			At:      rt.PickedUpAt.Time,
			StaffID: nullableUUID(rt.PickupStaffID),
			Notes:   rt.PickupNotes.String,
		}
		if rt.PickupOdoKm.Valid {
			v := rt.PickupOdoKm.Int64
			resp.Pickup.OdoKm = &v
		}
		if rt.PickupSoc.Valid {
			v := rt.PickupSoc.Float64
			resp.Pickup.Soc = &v
		}
	}
	if rt.RejectedAt.Valid {
		rej := &rejectionResponse{
			At:      rt.RejectedAt.Time,
			StaffID: nullableUUID(rt.RejectStaffID),
			Reason:  rt.RejectReason.String,
		}
		if resp.Pickup == nil {
			resp.Pickup = &pickupResponse{At: rt.RejectedAt.Time}
		}
		resp.Pickup.Rejected = rej
	}
	if rt.ReturnedAt.Valid {
		resp.Return = &returnResponse{
			At:      rt.ReturnedAt.Time,
			StaffID: nullableUUID(rt.ReturnStaffID),
			OdoKm:   rt.ReturnOdoKm.Int64,
			Soc:     rt.ReturnSoc.Float64,
		}
	}
	if ch, ok := rt.Charges(); ok {
		resp.Charges = &ch
		delta := rental.Reconcile(ch.Total, rt.Deposit)
		resp.Settlement = &delta
	}

	return resp
}

func nullableUUID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

// rentalError maps engine errors onto the envelope. Validation failures
// carry the specific unmet precondition in the message; conflicts are kept
// distinct so callers know to re-fetch instead of resubmitting.
func rentalError(c *gin.Context, err error) {
	var ise *rental.InvalidStateError
	switch {
	case errors.Is(err, rental.ErrNotFound):
		respondError(c, http.StatusNotFound, "RENTAL_NOT_FOUND", "Rental not found")
	case errors.Is(err, rental.ErrConflict):
		respondError(c, http.StatusConflict, "CONFLICT", "Rental was modified concurrently; re-fetch and retry")
	case errors.As(err, &ise):
		respondError(c, http.StatusConflict, "INVALID_STATE", ise.Error())
	case errors.Is(err, rental.ErrVehicleUnavailable):
		respondError(c, http.StatusUnprocessableEntity, "VEHICLE_UNAVAILABLE", err.Error())
	case errors.Is(err, rental.ErrChargesUndefined),
		errors.Is(err, rental.ErrOutstandingBalance):
		respondError(c, http.StatusConflict, "PRECONDITION_FAILED", err.Error())
	case errors.Is(err, rental.ErrInsufficientEvidence),
		errors.Is(err, rental.ErrReasonTooShort),
		errors.Is(err, rental.ErrOdometerRegression),
		errors.Is(err, rental.ErrSocOutOfRange),
		errors.Is(err, rental.ErrReturnEvidence),
		errors.Is(err, rental.ErrFeeNeedsReason),
		errors.Is(err, rental.ErrNegativeFee),
		errors.Is(err, rental.ErrDisputeNote),
		errors.Is(err, rental.ErrResolutionNote),
		errors.Is(err, rental.ErrResolutionOutcome),
		errors.Is(err, rental.ErrAmountMismatch),
		errors.Is(err, rental.ErrAmountOvershoot),
		errors.Is(err, rental.ErrNonPositiveAmount),
		errors.Is(err, rental.ErrNoMovementDue):
		respondError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	default:
		logger := middleware.GetLogger(c)
		logger.ErrorContext(c, "rental operation failed", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// resolveStaff loads the staff row for the authenticated subject,
// bootstrapping it on first sight.
func (a *API) resolveStaff(c *gin.Context) (uuid.UUID, bool) {
	auth0ID, ok := middleware.GetStaffAuth0ID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return uuid.Nil, false
	}

	s, err := a.str.GetByAuth0ID(c, auth0ID)
	if err != nil {
		if !errors.Is(err, staff.ErrNotFound) {
			logger := middleware.GetLogger(c)
			logger.ErrorContext(c, "failed to get staff", "error", err)
			respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
			return uuid.Nil, false
		}
		s, err = a.str.Create(c, auth0ID)
		if err != nil {
			logger := middleware.GetLogger(c)
			logger.ErrorContext(c, "failed to create staff", "error", err)
			respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
			return uuid.Nil, false
		}
	}
	return s.ID, true
}

func parseRentalID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("rentalId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid rentalId")
		return uuid.Nil, false
	}
	return id, true
}

type createRentalRequest struct {
	BookingID       string `json:"bookingId" binding:"required"`
	CustomerID      string `json:"customerId" binding:"required"`
	VehicleID       string `json:"vehicleId" binding:"required"`
	StationID       string `json:"stationId" binding:"required"`
	BookedStartAt   string `json:"bookedStartAt" binding:"required"`
	BookedEndAt     string `json:"bookedEndAt" binding:"required"`
	DepositIntentID string `json:"depositIntentId"`

	Pricing struct {
		BasePrice      int64  `json:"basePrice"`
		Rate           int64  `json:"rate"`
		Deposit        int64  `json:"deposit"`
		InsurancePrice int64  `json:"insurancePrice"`
		Taxes          int64  `json:"taxes"`
		Currency       string `json:"currency" binding:"required"`
		RentalType     string `json:"rentalType" binding:"required"`
		DurationUnits  int32  `json:"durationUnits"`
		PolicyVersion  string `json:"policyVersion"`
		RawBase        int64  `json:"rawBase"`
		Hours          int32  `json:"hours"`
		Days           int32  `json:"days"`
	} `json:"pricingSnapshot" binding:"required"`
}

// createRentalHandler fixes the pricing snapshot and creates the rental in
// CONFIRMED. This is the booking-confirmation entry point; nothing after
// it may touch the snapshot.
func (a *API) createRentalHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	var req createRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ids := make([]uuid.UUID, 4)
	for i, raw := range []string{req.BookingID, req.CustomerID, req.VehicleID, req.StationID} {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid id: "+raw)
			return
		}
		ids[i] = id
	}

	start, err := time.Parse(time.RFC3339, req.BookedStartAt)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid bookedStartAt format")
		return
	}
	end, err := time.Parse(time.RFC3339, req.BookedEndAt)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid bookedEndAt format")
		return
	}
	if !end.After(start) {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "bookedEndAt must be after bookedStartAt")
		return
	}

	rtype := rental.RentalType(req.Pricing.RentalType)
	if rtype != rental.TypeHourly && rtype != rental.TypeDaily {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "rentalType must be hourly or daily")
		return
	}

	rt := &rental.Rental{
		ID:         uuid.New(),
		BookingID:  ids[0],
		CustomerID: ids[1],
		VehicleID:  ids[2],
		StationID:  ids[3],
		PricingSnapshot: rental.PricingSnapshot{
			BasePrice:      req.Pricing.BasePrice,
			Rate:           req.Pricing.Rate,
			Deposit:        req.Pricing.Deposit,
			InsurancePrice: req.Pricing.InsurancePrice,
			Taxes:          req.Pricing.Taxes,
			Currency:       req.Pricing.Currency,
			RentalType:     rtype,
			DurationUnits:  req.Pricing.DurationUnits,
			PolicyVersion:  req.Pricing.PolicyVersion,
			RawBase:        req.Pricing.RawBase,
			Hours:          req.Pricing.Hours,
			Days:           req.Pricing.Days,
		},
		BookedStartAt: start,
		BookedEndAt:   end,
	}
	if req.DepositIntentID != "" {
		rt.DepositIntentID.String = req.DepositIntentID
		rt.DepositIntentID.Valid = true
	}

	if err := a.rr.Create(c, rt); err != nil {
		logger.ErrorContext(c, "failed to create rental", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	respondData(c, http.StatusCreated, toRentalResponse(*rt))
}

func (a *API) getRentalHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, ok := parseRentalID(c)
	if !ok {
		return
	}

	rt, err := a.rr.GetByID(c, id)
	if err != nil {
		rentalError(c, err)
		return
	}

	resp := toRentalResponse(rt)

	if resp.Settlement != nil && resp.Settlement.NeedsPayment {
		paid, err := a.pr.CashPaidTotal(c, id)
		if err != nil {
			logger.ErrorContext(c, "failed to sum cash payments", "error", err)
			respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
			return
		}
		resp.CashCollected = &paid
	}

	photos, err := a.er.ListByRental(c, id)
	if err != nil {
		logger.ErrorContext(c, "failed to list evidence", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	resp.Photos = photos

	payments, err := a.pr.ListByRental(c, id)
	if err != nil {
		logger.ErrorContext(c, "failed to list payments", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	resp.Payments = payments

	transitions, err := a.rr.ListTransitions(c, id)
	if err != nil {
		logger.ErrorContext(c, "failed to list transitions", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	for _, t := range transitions {
		resp.Transitions = append(resp.Transitions, transitionResponse{
			From:       t.FromStatus,
			To:         t.ToStatus,
			Actor:      t.Actor,
			OccurredAt: t.OccurredAt,
		})
	}

	respondData(c, http.StatusOK, resp)
}

func (a *API) listStationRentalsHandler(c *gin.Context) {
	stationID, err := uuid.Parse(c.Param("stationId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid stationId")
		return
	}

	var statusPtr *rental.Status
	if s := c.Query("status"); s != "" {
		status := rental.Status(s)
		if !status.Valid() {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Unknown status filter")
			return
		}
		statusPtr = &status
	}

	page, limit := parsePage(c)

	rentals, total, err := a.rr.ListByStation(c, stationID, statusPtr, limit, (page-1)*limit)
	if err != nil {
		logger := middleware.GetLogger(c)
		logger.ErrorContext(c, "failed to list station rentals", "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	responses := make([]rentalResponse, 0, len(rentals))
	for _, rt := range rentals {
		responses = append(responses, toRentalResponse(rt))
	}

	respondList(c, responses, newListMeta(total, page, limit))
}

type photoRef struct {
	ID      string `json:"id" binding:"required"`
	URL     string `json:"url" binding:"required"`
	TakenAt string `json:"takenAt"`
}

// registerPhotos records the photo references carried on a transition
// request. Registration is idempotent, so references already registered by
// a standalone evidence call are simply confirmed.
func (a *API) registerPhotos(c *gin.Context, rentalID uuid.UUID, phase evidence.Phase, photos []photoRef) bool {
	for _, p := range photos {
		id, err := uuid.Parse(p.ID)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid photo reference id")
			return false
		}
		takenAt := time.Now().UTC()
		if p.TakenAt != "" {
			t, err := time.Parse(time.RFC3339, p.TakenAt)
			if err != nil {
				respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid photo takenAt format")
				return false
			}
			takenAt = t
		}
		err = a.er.Add(c, evidence.Photo{
			ID:       id,
			RentalID: rentalID,
			Phase:    phase,
			URL:      p.URL,
			TakenAt:  takenAt,
		})
		if err != nil {
			logger := middleware.GetLogger(c)
			logger.ErrorContext(c, "failed to register evidence", "error", err)
			respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
			return false
		}
	}
	return true
}

// Photos may be empty when the references were registered up front via the
// evidence endpoint; the transition transaction counts what is actually
// stored.
type acceptHandoverRequest struct {
	Photos []photoRef `json:"photos"`
	OdoKm  *int64     `json:"odoKm"`
	Soc    *float64   `json:"soc"`
	Notes  string     `json:"notes"`
}

func (a *API) acceptHandoverHandler(c *gin.Context) {
	id, ok := parseRentalID(c)
	if !ok {
		return
	}
	staffID, ok := a.resolveStaff(c)
	if !ok {
		return
	}

	var req acceptHandoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if !a.registerPhotos(c, id, evidence.PhasePickup, req.Photos) {
		return
	}

	rt, err := a.rr.AcceptHandover(c, id, rental.StaffActor(staffID), req.OdoKm, req.Soc, req.Notes)
	if err != nil {
		rentalError(c, err)
		return
	}

	middleware.CountTransition(string(rental.StatusOngoing))
	respondData(c, http.StatusOK, toRentalResponse(rt))
}

type rejectHandoverRequest struct {
	Reason string     `json:"reason" binding:"required"`
	Photos []photoRef `json:"photos"`
}

func (a *API) rejectHandoverHandler(c *gin.Context) {
	id, ok := parseRentalID(c)
	if !ok {
		return
	}
	staffID, ok := a.resolveStaff(c)
	if !ok {
		return
	}

	var req rejectHandoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if !a.registerPhotos(c, id, evidence.PhasePickupReject, req.Photos) {
		return
	}

	rt, err := a.rr.RejectHandover(c, id, rental.StaffActor(staffID), req.Reason)
	if err != nil {
		rentalError(c, err)
		return
	}

	middleware.CountTransition(string(rental.StatusRejected))
	respondData(c, http.StatusOK, toRentalResponse(rt))
}

type recordReturnRequest struct {
	Photos    []photoRef       `json:"photos"`
	OdoKm     *int64           `json:"odoKm" binding:"required"`
	Soc       *float64         `json:"soc" binding:"required"`
	ExtraFees []rental.FeeLine `json:"extraFees"`
}

func (a *API) recordReturnHandler(c *gin.Context) {
	id, ok := parseRentalID(c)
	if !ok {
		return
	}
	staffID, ok := a.resolveStaff(c)
	if !ok {
		return
	}

	var req recordReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if !a.registerPhotos(c, id, evidence.PhaseReturn, req.Photos) {
		return
	}

	rt, err := a.rr.RecordReturn(c, id, rental.StaffActor(staffID), *req.OdoKm, *req.Soc, req.ExtraFees)
	if err != nil {
		rentalError(c, err)
		return
	}

	middleware.CountTransition(string(rental.StatusReturnPending))
	respondData(c, http.StatusOK, toRentalResponse(rt))
}

type settleCashRequest struct {
	Amount *int64 `json:"amount" binding:"required"`
	Note   string `json:"note"`
}

type settleCashResponse struct {
	Rental        rentalResponse `json:"rental"`
	Settlement    rental.Delta   `json:"settlement"`
	PaymentStatus string         `json:"paymentStatus,omitempty"`
	TxnRef        string         `json:"txnRef,omitempty"`
}

func (a *API) settleCashHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, ok := parseRentalID(c)
	if !ok {
		return
	}
	staffID, ok := a.resolveStaff(c)
	if !ok {
		return
	}

	var req settleCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	res, err := a.rr.SettleCash(c, id, rental.StaffActor(staffID), *req.Amount, req.Note)
	if err != nil {
		rentalError(c, err)
		return
	}

	if res.RefundCard {
		// The refund record is committed; pushing it to the processor is
		// fire-and-forget. The context copy must be taken before the
		// goroutine starts: gin reuses the original once the handler
		// returns.
		intentID := res.Rental.DepositIntentID.String
		amount := res.RefundAmount
		cc := c.Copy()
		go func() {
			if err := a.refunds.IssueRefund(cc, intentID, amount); err != nil {
				logger.Error("Failed to issue card refund", "error", err, "txnRef", res.TxnRef)
			}
		}()
	}

	if res.Completed {
		middleware.CountTransition(string(rental.StatusCompleted))
	}

	respondData(c, http.StatusOK, settleCashResponse{
		Rental:        toRentalResponse(res.Rental),
		Settlement:    res.Delta,
		PaymentStatus: res.PaymentStatus,
		TxnRef:        res.TxnRef,
	})
}

type disputeRequest struct {
	Note string `json:"note" binding:"required"`
}

func (a *API) disputeHandler(c *gin.Context) {
	id, ok := parseRentalID(c)
	if !ok {
		return
	}
	staffID, ok := a.resolveStaff(c)
	if !ok {
		return
	}

	var req disputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	rt, err := a.rr.FlagDispute(c, id, rental.StaffActor(staffID), req.Note)
	if err != nil {
		rentalError(c, err)
		return
	}

	middleware.CountTransition(string(rental.StatusDisputed))
	respondData(c, http.StatusOK, toRentalResponse(rt))
}

type resolveDisputeRequest struct {
	Outcome string `json:"outcome" binding:"required"`
	Note    string `json:"note" binding:"required"`
}

func (a *API) resolveDisputeHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, ok := parseRentalID(c)
	if !ok {
		return
	}
	staffID, ok := a.resolveStaff(c)
	if !ok {
		return
	}

	var req resolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	res, err := a.rr.ResolveDispute(c, id, rental.StaffActor(staffID), rental.Status(req.Outcome), req.Note)
	if err != nil {
		rentalError(c, err)
		return
	}

	if res.RefundCard {
		intentID := res.Rental.DepositIntentID.String
		amount := res.RefundAmount
		cc := c.Copy()
		go func() {
			if err := a.refunds.IssueRefund(cc, intentID, amount); err != nil {
				logger.Error("Failed to issue card refund", "error", err, "txnRef", res.TxnRef)
			}
		}()
	}

	middleware.CountTransition(string(res.Rental.Status))
	respondData(c, http.StatusOK, toRentalResponse(res.Rental))
}

func (a *API) cancelRentalHandler(c *gin.Context) {
	id, ok := parseRentalID(c)
	if !ok {
		return
	}

	// Cancellation is customer- or system-initiated, never a staff
	// inspection outcome; it is attributed to the system on the audit
	// trail.
	rt, err := a.rr.Cancel(c, id, rental.SystemActor())
	if err != nil {
		rentalError(c, err)
		return
	}

	middleware.CountTransition(string(rental.StatusCancelled))
	respondData(c, http.StatusOK, toRentalResponse(rt))
}

func parsePage(c *gin.Context) (page, limit int) {
	page, limit = 1, 20
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	return page, limit
}
