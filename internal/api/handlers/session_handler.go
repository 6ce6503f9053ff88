package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/techfinder/internal/services"
	"github.com/yoockh/techfinder/internal/utils"
)

type SessionHandler struct {
	svc services.SessionService
}

func NewSessionHandler(svc services.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Get(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	sess, err := h.svc.Get(identity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Logout releases the caller's profile mirror. Logging out twice is fine.
func (h *SessionHandler) Logout(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	if err := h.svc.End(identity); err != nil && !utils.IsCode(err, utils.CodeNotFound) {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
