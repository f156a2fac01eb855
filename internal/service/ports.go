package service

import (
	"context"
	"io"

	"fitroom/internal/model"
)

// 以下接口由 client.Client 实现，测试中可替换

type ChatBackend interface {
	Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
	ClearChat(ctx context.Context, sessionID string) error
}

type UploadBackend interface {
	BaseURL() string
	UploadModel(ctx context.Context, image io.Reader) (*model.UploadResponse, error)
	ListUploads(ctx context.Context) ([]model.UploadEntry, error)
	DeleteUpload(ctx context.Context, filename string) error
}

type WardrobeBackend interface {
	Resolve(ref string) string
	DefaultWardrobe(ctx context.Context) ([]model.DefaultGarment, error)
	TryOn(ctx context.Context, garment io.Reader, filename string, garmentType model.GarmentType) (*model.TryOnResponse, error)
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error)
}
