package handlers

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/services"
	"github.com/yoockh/techfinder/internal/utils"
)

const maxPictureSize = 5 << 20

var pictureExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

type ProfileHandler struct {
	svc services.ProfileService
}

func NewProfileHandler(svc services.ProfileService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func (h *ProfileHandler) Contractors(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	list, err := h.svc.Contractors(c.Request.Context(), identity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "contractors": list})
}

func (h *ProfileHandler) Contractor(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	p, err := h.svc.Contractor(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Recruiters(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	list, err := h.svc.Recruiters(c.Request.Context(), identity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "recruiters": list})
}

func (h *ProfileHandler) Me(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	p, err := h.svc.GetMe(c.Request.Context(), identity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) ByIdentity(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	p, err := h.svc.GetByIdentity(c.Request.Context(), identity, c.Param("identity"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var patch models.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ProfileHandler.Update", "invalid request body", err))
		return
	}

	notice, err := h.svc.Update(c.Request.Context(), identity, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": notice})
}

func (h *ProfileHandler) UploadPicture(c *gin.Context) {
	const op = "ProfileHandler.UploadPicture"

	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'file'", err))
		return
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !pictureExts[ext] {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "unsupported image type", nil))
		return
	}
	if fh.Size <= 0 || fh.Size > maxPictureSize {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file too large (max 5MB)", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	// sniff content type (read 512 bytes)
	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	head = head[:n]
	ct := http.DetectContentType(head)

	url, err := h.svc.UploadPicture(c.Request.Context(), identity, fh.Filename, ct, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profileImg": url})
}
