package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"fitroom/internal/model"
	"fitroom/internal/storage"
)

var (
	errBackendDown = errors.New("backend down")
	errDiskFull    = errors.New("disk full")
)

type fakeChat struct {
	mu       sync.Mutex
	replies  []*model.ChatResponse
	err      error
	requests []model.ChatRequest
	cleared  []string
	clearErr error
	// onChat 在返回前调用，用来模拟请求过程中的页面切换
	onChat func()
}

func (f *fakeChat) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	hook := f.onChat
	var resp *model.ChatResponse
	if len(f.replies) > 0 {
		resp = f.replies[0]
		f.replies = f.replies[1:]
	}
	err := f.err
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &model.ChatResponse{Response: "ok"}, nil
	}
	return resp, nil
}

func (f *fakeChat) ClearChat(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, sessionID)
	return f.clearErr
}

type fakeUploads struct {
	base      string
	entries   []model.UploadEntry
	listErr   error
	uploadErr error
	deleteErr error
	uploads   int
	deleted   []string
}

func (f *fakeUploads) BaseURL() string { return f.base }

func (f *fakeUploads) UploadModel(ctx context.Context, image io.Reader) (*model.UploadResponse, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads++
	return &model.UploadResponse{Message: "ok", Filename: "model.jpg"}, nil
}

func (f *fakeUploads) ListUploads(ctx context.Context) ([]model.UploadEntry, error) {
	return f.entries, f.listErr
}

func (f *fakeUploads) DeleteUpload(ctx context.Context, filename string) error {
	f.deleted = append(f.deleted, filename)
	return f.deleteErr
}

type fakeWardrobe struct {
	base     string
	defaults []model.DefaultGarment
	err      error
	tryErr   error
	calls    int
	onTryOn  func()
}

func (f *fakeWardrobe) Resolve(ref string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	return f.base + ref
}

func (f *fakeWardrobe) DefaultWardrobe(ctx context.Context) ([]model.DefaultGarment, error) {
	f.calls++
	return f.defaults, f.err
}

func (f *fakeWardrobe) TryOn(ctx context.Context, garment io.Reader, filename string, garmentType model.GarmentType) (*model.TryOnResponse, error) {
	if f.onTryOn != nil {
		f.onTryOn()
	}
	if f.tryErr != nil {
		return nil, f.tryErr
	}
	return &model.TryOnResponse{ProcessedImageURL: "/processed/" + string(garmentType) + "_" + filename}, nil
}

func (f *fakeWardrobe) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("garment")), nil
}

// failingStore 在 broken 打开后所有写操作都失败
type failingStore struct {
	*storage.MemoryStorage
	broken bool
}

func (f *failingStore) Set(key, value string) error {
	if f.broken {
		return errDiskFull
	}
	return f.MemoryStorage.Set(key, value)
}

func (f *failingStore) Delete(key string) error {
	if f.broken {
		return errDiskFull
	}
	return f.MemoryStorage.Delete(key)
}
