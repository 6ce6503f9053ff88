package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/techfinder/internal/matching"
	"github.com/yoockh/techfinder/internal/services"
	"github.com/yoockh/techfinder/internal/utils"
)

type SearchHandler struct {
	svc services.SearchService
}

func NewSearchHandler(svc services.SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

func (h *SearchHandler) Search(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var spec matching.Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SearchHandler.Search", "invalid filter", err))
		return
	}

	out, err := h.svc.Search(c.Request.Context(), identity, spec)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *SearchHandler) Last(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	spec, err := h.svc.LastSearch(c.Request.Context(), identity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, spec)
}

func (h *SearchHandler) Clear(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	if err := h.svc.ClearSearch(c.Request.Context(), identity); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
