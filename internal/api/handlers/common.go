package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/techfinder/internal/api/middleware"
	"github.com/yoockh/techfinder/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status, body := apiError(err)
	c.JSON(status, body)
}

func apiError(err error) (int, APIError) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		return status, APIError{Code: ae.Code, Message: ae.Message}
	}
	return status, APIError{Code: utils.CodeOf(err), Message: http.StatusText(status)}
}

func requireIdentity(c *gin.Context) (string, bool) {
	if v, ok := c.Get(middleware.IdentityKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}
