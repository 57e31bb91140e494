package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pokedex/models"
)

// respond writes env with the HTTP status matching its error code.
func respond(c *gin.Context, env models.Envelope) {
	if env.OK {
		c.JSON(http.StatusOK, env)
		return
	}
	code := models.ErrCodeInternal
	if env.Error != nil {
		code = env.Error.Code
	}
	c.JSON(mapErrorToStatus(code), env)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeNavigationTimeout, models.ErrCodeRequestTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeLaunchFailure:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
