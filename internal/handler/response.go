package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidActorID),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidDestinationLocation),
		errors.Is(err, service.ErrInvalidLocation):
		return http.StatusBadRequest

	// Authorization errors
	case errors.Is(err, service.ErrNotRideParty),
		errors.Is(err, service.ErrDriverNotEligible),
		errors.Is(err, service.ErrDriverNotApproved):
		return http.StatusForbidden

	// Conflict errors: the request was well-formed but lost to another actor
	case errors.Is(err, service.ErrRideAlreadyTaken),
		errors.Is(err, service.ErrRiderHasActiveRide),
		errors.Is(err, service.ErrDriverHasActiveRide),
		errors.Is(err, service.ErrDriverAlreadyRegistered):
		return http.StatusConflict

	// The requested status change is not a legal lifecycle edge
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusUnprocessableEntity

	// The record store is down; the caller may retry later
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
