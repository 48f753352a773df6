package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omada-guest/backend/internal/errs"
	"github.com/omada-guest/backend/internal/model"
	"github.com/omada-guest/backend/internal/service"
)

// errorStatus maps an error kind to an HTTP status.
func errorStatus(err error) int {
	var transportErr *errs.TransportError
	switch {
	case errs.IsValidationError(err):
		return http.StatusBadRequest
	case errs.IsConfigurationError(err):
		return http.StatusInternalServerError
	case errs.IsAuthenticationError(err), errs.IsUpstreamError(err):
		return http.StatusBadGateway
	case errors.As(err, &transportErr):
		if transportErr.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), model.ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Kind:    errs.Kind(err),
	})
}

func writeBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Success: false, Error: msg, Kind: "validation"})
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "internal error"})
	}
}
