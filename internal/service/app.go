package service

import (
	"context"

	"fitroom/internal/client"
	"fitroom/internal/config"
	"fitroom/internal/model"
	"fitroom/internal/storage"
	"fitroom/internal/utils"
	"fitroom/pkg/logger"
)

// App 客户端的全部共享状态，由入口创建后传给各个页面
type App struct {
	Config   *config.Config
	Storage  storage.Storage
	Client   *client.Client
	Images   *ModelImageManager
	Chat     *ChatService
	Wardrobe *WardrobeService
	Gate     *Gate
}

func NewApp(cfg *config.Config) *App {
	store := storage.New(cfg.Storage)
	c := client.New(cfg.BaseURL(), utils.NewHTTPClient(cfg.Backend.Timeout))

	logger.WithFields(map[string]interface{}{
		"mode":    cfg.Backend.Mode,
		"backend": c.BaseURL(),
		"storage": storage.Describe(cfg.Storage),
	}).Info("Client initialized")

	return NewAppWith(cfg, store, c)
}

// NewAppWith 使用已有的存储和客户端组装，测试时使用
func NewAppWith(cfg *config.Config, store storage.Storage, c *client.Client) *App {
	app := &App{
		Config:   cfg,
		Storage:  store,
		Client:   c,
		Images:   NewModelImageManager(c, store),
		Chat:     NewChatService(c, store, cfg.Chat),
		Wardrobe: NewWardrobeService(c, store),
	}
	app.Gate = NewGate(app.Images)

	app.Images.Subscribe(func(*model.ModelImage) {
		app.Wardrobe.ResetWorn()
	})
	return app
}

// Start 启动时恢复模特照片
func (a *App) Start(ctx context.Context) *model.ModelImage {
	return a.Images.Load(ctx)
}

func (a *App) EnterChat(ctx context.Context) error {
	if err := a.Gate.Check(FeatureChat); err != nil {
		return err
	}
	a.Chat.Refresh(ctx)
	return nil
}

func (a *App) EnterTryOn(ctx context.Context) ([]model.WardrobeItem, error) {
	if err := a.Gate.Check(FeatureTryOn); err != nil {
		return nil, err
	}
	return a.Wardrobe.Activate(ctx), nil
}

func (a *App) Close() error {
	return a.Storage.Close()
}
