package handler

import (
	"fmt"
	"net/http"

	"fitroom/internal/model"
	"fitroom/pkg/logger"

	"github.com/gin-gonic/gin"
)

type TryOnHandler struct {
	backend *Backend
}

func NewTryOnHandler(backend *Backend) *TryOnHandler {
	return &TryOnHandler{
		backend: backend,
	}
}

// TryOn 不做真正的合成，直接把单品图作为结果返回
func (h *TryOnHandler) TryOn(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.backend.maxUploadBytes)

	data, name, ok := readFormFile(c, "image")
	if !ok {
		return
	}

	kind := model.GarmentType(c.PostForm("type"))
	if kind == "" {
		kind = model.GarmentUpper
	}
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid garment type"})
		return
	}

	if !h.backend.hasModel() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No model image uploaded"})
		return
	}

	processedName := fmt.Sprintf("processed_%s_%d_%s", kind, h.backend.now().UnixNano(), name)
	h.backend.saveProcessed(processedName, data)
	logger.Infof("Try-on %s stored as %s", kind, processedName)

	c.JSON(http.StatusOK, model.TryOnResponse{
		ProcessedImageURL: "/processed/" + processedName,
	})
}

func (h *TryOnHandler) Processed(c *gin.Context) {
	serveFile(c, h.backend, h.backend.processed)
}

func (h *TryOnHandler) DefaultWardrobe(c *gin.Context) {
	c.JSON(http.StatusOK, h.backend.defaultWardrobe())
}

func (h *TryOnHandler) WardrobeFile(c *gin.Context) {
	serveFile(c, h.backend, h.backend.wardrobe)
}
