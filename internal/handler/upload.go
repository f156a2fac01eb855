package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"fitroom/pkg/logger"

	"github.com/gin-gonic/gin"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

func allowedFile(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// secureFilename 去掉路径部分，避免越界访问
func secureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || strings.HasPrefix(name, ".") {
		return ""
	}
	return name
}

type UploadHandler struct {
	backend *Backend
}

func NewUploadHandler(backend *Backend) *UploadHandler {
	return &UploadHandler{
		backend: backend,
	}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.backend.maxUploadBytes)

	data, name, ok := readFormFile(c, "file")
	if !ok {
		return
	}

	h.backend.saveUpload(name, data)
	logger.Infof("Stored upload %s (%d bytes)", name, len(data))

	c.JSON(http.StatusOK, gin.H{
		"message":  "File uploaded successfully",
		"filename": name,
	})
}

func (h *UploadHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.backend.listUploads())
}

func (h *UploadHandler) Get(c *gin.Context) {
	serveFile(c, h.backend, h.backend.uploads)
}

func (h *UploadHandler) Delete(c *gin.Context) {
	name := secureFilename(c.Param("filename"))
	if name == "" || !h.backend.deleteUpload(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}

// readFormFile 读取并校验 multipart 文件，失败时已写入错误响应
func readFormFile(c *gin.Context, field string) ([]byte, string, bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return nil, "", false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return nil, "", false
	}

	name := secureFilename(fileHeader.Filename)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return nil, "", false
	}
	if !allowedFile(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
		return nil, "", false
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}

	return data, name, true
}

func serveFile(c *gin.Context, b *Backend, set map[string]*storedFile) {
	f, ok := b.file(set, secureFilename(c.Param("filename")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(f.data), f.data)
}
