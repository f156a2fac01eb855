package handler

import (
	"net/http"
	"time"

	"fitroom/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter 注册客户端依赖的全部后端接口
func NewRouter(cfg config.CORSConfig, backend *Backend) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     cfg.AllowedMethods,
			AllowHeaders:     cfg.AllowedHeaders,
			AllowCredentials: cfg.AllowCredentials,
			MaxAge:           time.Duration(cfg.MaxAge) * time.Second,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	chatHandler := NewChatHandler(backend)
	uploadHandler := NewUploadHandler(backend)
	tryOnHandler := NewTryOnHandler(backend)

	router.POST("/chat", chatHandler.Chat)
	router.POST("/chat/clear", chatHandler.Clear)

	router.POST("/upload", uploadHandler.Upload)
	router.GET("/uploads", uploadHandler.List)
	router.GET("/uploads/:filename", uploadHandler.Get)
	router.DELETE("/uploads/:filename", uploadHandler.Delete)

	router.POST("/try-on", tryOnHandler.TryOn)
	router.GET("/processed/:filename", tryOnHandler.Processed)
	router.GET("/default-wardrobe", tryOnHandler.DefaultWardrobe)
	router.GET("/wardrobe/:filename", tryOnHandler.WardrobeFile)

	return router
}
