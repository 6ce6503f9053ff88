package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/techfinder/internal/services"
	"github.com/yoockh/techfinder/internal/utils"
)

type FavoriteHandler struct {
	svc services.FavoriteService
}

func NewFavoriteHandler(svc services.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{svc: svc}
}

// ToggleRequest carries the state the client currently shows. When omitted
// the stored state is read first.
type ToggleRequest struct {
	Current *bool `json:"current"`
}

type ToggleResponse struct {
	Favorited bool `json:"favorited"`
	Changed   bool `json:"changed"`
}

// ToggleError is a failed toggle. It carries the unchanged state so the
// client can keep its control as it was.
type ToggleError struct {
	APIError
	ToggleResponse
}

func (h *FavoriteHandler) Toggle(c *gin.Context) {
	const op = "FavoriteHandler.Toggle"

	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	techID := c.Param("techId")

	var req ToggleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
			return
		}
	}

	var current bool
	if req.Current != nil {
		current = *req.Current
	} else {
		fav, err := h.svc.IsFavorite(c.Request.Context(), identity, techID)
		if err != nil {
			writeError(c, err)
			return
		}
		current = fav
	}

	next, err := h.svc.Toggle(c.Request.Context(), identity, techID, current)
	if err != nil && !utils.IsCode(err, utils.CodeUnavailable) {
		status, body := apiError(err)
		c.JSON(status, ToggleError{APIError: body, ToggleResponse: ToggleResponse{Favorited: current}})
		return
	}
	// store failures leave the state untouched
	c.JSON(http.StatusOK, ToggleResponse{Favorited: next, Changed: next != current})
}

func (h *FavoriteHandler) Get(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	fav, err := h.svc.IsFavorite(c.Request.Context(), identity, c.Param("techId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": fav})
}

func (h *FavoriteHandler) List(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	favs, err := h.svc.List(c.Request.Context(), identity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(favs), "favorites": favs})
}
