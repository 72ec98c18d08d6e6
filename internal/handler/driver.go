package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

// DriverHandler handles HTTP requests for driver profiles and presence.
type DriverHandler struct {
	drivers  *service.DriverService
	dispatch *service.DispatchService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(drivers *service.DriverService, dispatch *service.DispatchService) *DriverHandler {
	return &DriverHandler{
		drivers:  drivers,
		dispatch: dispatch,
	}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	LicenseNumber string `json:"license_number"`
	LicensePlate  string `json:"license_plate"`
	VehicleModel  string `json:"vehicle_model"`
	VehicleYear   int    `json:"vehicle_year"`
	VehicleColor  string `json:"vehicle_color"`
	VehicleClass  string `json:"vehicle_class,omitempty"`
}

// SetOnlineRequest is the HTTP request body for toggling availability.
type SetOnlineRequest struct {
	Online bool `json:"online"`
}

// UpdateLocationRequest is the HTTP request body for reporting a position.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DriverResponse is the HTTP representation of a driver profile.
type DriverResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Phone         string   `json:"phone,omitempty"`
	LicensePlate  string   `json:"license_plate"`
	VehicleModel  string   `json:"vehicle_model"`
	VehicleYear   int      `json:"vehicle_year,omitempty"`
	VehicleColor  string   `json:"vehicle_color,omitempty"`
	VehicleClass  string   `json:"vehicle_class"`
	Online        bool     `json:"online"`
	Approved      bool     `json:"approved"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
	EarningsTotal string   `json:"earnings_total"`
}

// DriverStatsResponse is the HTTP representation of driver stats.
type DriverStatsResponse struct {
	DriverID       string `json:"driver_id"`
	CompletedRides int    `json:"completed_rides"`
	EarningsTotal  string `json:"earnings_total"`
	Online         bool   `json:"online"`
	Approved       bool   `json:"approved"`
}

// Register handles POST /v1/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.drivers.Register(c.Request.Context(), service.RegisterInput{
		UserID:        req.UserID,
		Name:          req.Name,
		Phone:         req.Phone,
		LicenseNumber: req.LicenseNumber,
		LicensePlate:  req.LicensePlate,
		VehicleModel:  req.VehicleModel,
		VehicleYear:   req.VehicleYear,
		VehicleColor:  req.VehicleColor,
		VehicleClass:  domain.VehicleClass(req.VehicleClass),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// GetDriver handles GET /v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.drivers.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// SetOnline handles PATCH /v1/drivers/:id/online
func (h *DriverHandler) SetOnline(c *gin.Context) {
	var req SetOnlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.drivers.SetOnline(c.Request.Context(), c.Param("id"), req.Online)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// Approve handles POST /v1/drivers/:id/approve
func (h *DriverHandler) Approve(c *gin.Context) {
	if err := h.drivers.Approve(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateLocation handles PUT /v1/drivers/:id/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.drivers.UpdateLocation(c.Request.Context(), c.Param("id"), req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats handles GET /v1/drivers/:id/stats
func (h *DriverHandler) Stats(c *gin.Context) {
	stats, err := h.drivers.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, DriverStatsResponse{
		DriverID:       stats.DriverID,
		CompletedRides: stats.CompletedRides,
		EarningsTotal:  domain.Money(stats.EarningsCents).String(),
		Online:         stats.Online,
		Approved:       stats.Approved,
	})
}

// Nearby handles GET /v1/drivers/nearby?lat=...&lng=...&radius_km=...&vehicle_class=...
func (h *DriverHandler) Nearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid lat"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid lng"})
		return
	}
	radiusKm := 0.0
	if raw := c.Query("radius_km"); raw != "" {
		radiusKm, err = strconv.ParseFloat(raw, 64)
		if err != nil || radiusKm < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid radius_km"})
			return
		}
	}

	drivers, err := h.dispatch.FindNearbyDrivers(
		c.Request.Context(),
		domain.GeoPoint{Lat: lat, Lng: lng},
		radiusKm,
		domain.VehicleClass(c.Query("vehicle_class")),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		response = append(response, toDriverResponse(d))
	}
	respondJSON(c, http.StatusOK, response)
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	resp := DriverResponse{
		ID:            d.ID,
		Name:          d.Name,
		Phone:         d.Phone,
		LicensePlate:  d.LicensePlate,
		VehicleModel:  d.VehicleModel,
		VehicleYear:   d.VehicleYear,
		VehicleColor:  d.VehicleColor,
		VehicleClass:  string(d.VehicleClass),
		Online:        d.Online,
		Approved:      d.Approved,
		EarningsTotal: d.Earnings.String(),
	}
	if d.Location != nil {
		resp.Lat = &d.Location.Lat
		resp.Lng = &d.Location.Lng
	}
	return resp
}
