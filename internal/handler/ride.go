package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	dispatch  *service.DispatchService
	lifecycle *service.LifecycleService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(dispatch *service.DispatchService, lifecycle *service.LifecycleService) *RideHandler {
	return &RideHandler{
		dispatch:  dispatch,
		lifecycle: lifecycle,
	}
}

// GeoPointRequest is a coordinate pair with an optional address.
type GeoPointRequest struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// CreateRideRequest is the HTTP request body for requesting a ride.
type CreateRideRequest struct {
	RiderID         string          `json:"rider_id"`
	Pickup          GeoPointRequest `json:"pickup"`
	Destination     GeoPointRequest `json:"destination"`
	VehicleClass    string          `json:"vehicle_class,omitempty"`
	SpecialRequests string          `json:"special_requests,omitempty"`
}

// AcceptRideRequest is the HTTP request body for accepting a ride.
type AcceptRideRequest struct {
	DriverID string `json:"driver_id"`
}

// UpdateStatusRequest is the HTTP request body for a status transition.
type UpdateStatusRequest struct {
	ActorID           string  `json:"actor_id"`
	Status            string  `json:"status"`
	ActualDistanceKm  float64 `json:"actual_distance_km,omitempty"`
	ActualDurationMin float64 `json:"actual_duration_min,omitempty"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

// FareResponse is the fare breakdown, in dollars as decimal strings.
type FareResponse struct {
	Base     string `json:"base"`
	Distance string `json:"distance"`
	Time     string `json:"time"`
	Total    string `json:"total"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID                   string          `json:"id"`
	RiderID              string          `json:"rider_id"`
	DriverID             string          `json:"driver_id,omitempty"`
	Status               string          `json:"status"`
	Pickup               GeoPointRequest `json:"pickup"`
	Destination          GeoPointRequest `json:"destination"`
	VehicleClass         string          `json:"vehicle_class"`
	SpecialRequests      string          `json:"special_requests,omitempty"`
	EstimatedDistanceKm  float64         `json:"estimated_distance_km"`
	EstimatedDurationMin float64         `json:"estimated_duration_min"`
	ActualDistanceKm     float64         `json:"actual_distance_km,omitempty"`
	ActualDurationMin    float64         `json:"actual_duration_min,omitempty"`
	Fare                 FareResponse    `json:"fare"`
	PaymentStatus        string          `json:"payment_status"`
	RequestedAt          string          `json:"requested_at"`
	AcceptedAt           string          `json:"accepted_at,omitempty"`
	ArrivedAt            string          `json:"arrived_at,omitempty"`
	StartedAt            string          `json:"started_at,omitempty"`
	CompletedAt          string          `json:"completed_at,omitempty"`
	CancelledAt          string          `json:"cancelled_at,omitempty"`
	CancelReason         string          `json:"cancel_reason,omitempty"`
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.dispatch.RequestRide(c.Request.Context(), service.RequestRideInput{
		RiderID:         req.RiderID,
		Pickup:          domain.GeoPoint{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng, Address: req.Pickup.Address},
		Destination:     domain.GeoPoint{Lat: req.Destination.Lat, Lng: req.Destination.Lng, Address: req.Destination.Address},
		VehicleClass:    domain.VehicleClass(req.VehicleClass),
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id?user_id=...
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.dispatch.GetRide(c.Request.Context(), c.Param("id"), c.Query("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// ListRides handles GET /v1/rides?user_id=...&status=...&limit=...
func (h *RideHandler) ListRides(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	rides, err := h.dispatch.ListRides(
		c.Request.Context(),
		c.Query("user_id"),
		domain.RideStatus(c.Query("status")),
		limit,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		response = append(response, toRideResponse(r))
	}
	respondJSON(c, http.StatusOK, response)
}

// AcceptRide handles POST /v1/rides/:id/accept
func (h *RideHandler) AcceptRide(c *gin.Context) {
	var req AcceptRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.dispatch.AcceptRide(c.Request.Context(), req.DriverID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// UpdateStatus handles PATCH /v1/rides/:id/status
func (h *RideHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.lifecycle.Transition(c.Request.Context(), service.TransitionInput{
		RideID:            c.Param("id"),
		ActorID:           req.ActorID,
		Target:            domain.RideStatus(req.Status),
		ActualDistanceKm:  req.ActualDistanceKm,
		ActualDurationMin: req.ActualDurationMin,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.lifecycle.Cancel(c.Request.Context(), service.CancelInput{
		RideID:  c.Param("id"),
		ActorID: req.ActorID,
		Reason:  req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

func toRideResponse(r *domain.Ride) RideResponse {
	return RideResponse{
		ID:                   r.ID,
		RiderID:              r.RiderID,
		DriverID:             r.DriverID,
		Status:               string(r.Status),
		Pickup:               GeoPointRequest{Lat: r.Pickup.Lat, Lng: r.Pickup.Lng, Address: r.Pickup.Address},
		Destination:          GeoPointRequest{Lat: r.Destination.Lat, Lng: r.Destination.Lng, Address: r.Destination.Address},
		VehicleClass:         string(r.VehicleClass),
		SpecialRequests:      r.SpecialRequests,
		EstimatedDistanceKm:  r.EstimatedDistanceKm,
		EstimatedDurationMin: r.EstimatedDurationMin,
		ActualDistanceKm:     r.ActualDistanceKm,
		ActualDurationMin:    r.ActualDurationMin,
		Fare: FareResponse{
			Base:     r.Fare.Base.String(),
			Distance: r.Fare.Distance.String(),
			Time:     r.Fare.Time.String(),
			Total:    r.Fare.Total.String(),
		},
		PaymentStatus: string(r.PaymentStatus),
		RequestedAt:   formatTime(r.RequestedAt),
		AcceptedAt:    formatTime(r.AcceptedAt),
		ArrivedAt:     formatTime(r.ArrivedAt),
		StartedAt:     formatTime(r.StartedAt),
		CompletedAt:   formatTime(r.CompletedAt),
		CancelledAt:   formatTime(r.CancelledAt),
		CancelReason:  r.CancelReason,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
