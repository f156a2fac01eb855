package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"fitroom/internal/client"
	"fitroom/internal/model"
	"fitroom/internal/storage"
	"fitroom/internal/utils"
	"fitroom/pkg/logger"
)

// ModelImageManager 管理当前模特照片。存储中的空字符串表示用户主动删除过，
// 此时 Load 不再回退到后端的上传列表。存储写入失败时由 removed 兜底
type ModelImageManager struct {
	backend UploadBackend
	storage storage.Storage

	mu        sync.RWMutex
	current   *model.ModelImage
	listeners []func(*model.ModelImage)

	uploading atomic.Bool
	// removed 本进程内删除过照片且之后没有再上传
	removed atomic.Bool
}

func NewModelImageManager(backend UploadBackend, store storage.Storage) *ModelImageManager {
	return &ModelImageManager{
		backend: backend,
		storage: store,
	}
}

func (m *ModelImageManager) Current() *model.ModelImage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	img := *m.current
	return &img
}

func (m *ModelImageManager) IsUploading() bool {
	return m.uploading.Load()
}

// Subscribe 注册模特照片变化回调，回调在锁外执行
func (m *ModelImageManager) Subscribe(fn func(*model.ModelImage)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Load 先读本地存储，没有记录时取后端最近一次上传。失败只记日志，返回 nil
func (m *ModelImageManager) Load(ctx context.Context) *model.ModelImage {
	if m.removed.Load() {
		m.apply(nil, false)
		return nil
	}

	uri, err := m.storage.Get(storage.KeyModelImage)
	switch {
	case err == nil:
		if uri == "" {
			m.apply(nil, false)
			return nil
		}
		img := m.describe(uri)
		m.apply(img, false)
		return img
	case !errors.Is(err, storage.ErrKeyNotFound):
		logger.Warnf("Failed to read stored model image: %v", err)
	}

	entries, err := m.backend.ListUploads(ctx)
	if err != nil {
		logger.Warnf("Failed to list uploads: %v", err)
		m.apply(nil, false)
		return nil
	}
	if len(entries) == 0 {
		m.apply(nil, false)
		return nil
	}

	// 列表按上传时间升序，最后一项最新
	uri = utils.ResolveURL(m.backend.BaseURL(), entries[len(entries)-1].URL)
	if err := m.storage.Set(storage.KeyModelImage, uri); err != nil {
		logger.Warnf("Failed to store model image: %v", err)
	}
	img := m.describe(uri)
	m.apply(img, false)
	return img
}

// Refresh 重新进入首页时调用
func (m *ModelImageManager) Refresh(ctx context.Context) *model.ModelImage {
	return m.Load(ctx)
}

// Upload 上传新照片。失败时当前照片保持不变
func (m *ModelImageManager) Upload(ctx context.Context, image io.Reader) (*model.ModelImage, error) {
	if !m.uploading.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer m.uploading.Store(false)

	if _, err := m.backend.UploadModel(ctx, image); err != nil {
		logger.Errorf("Model upload failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	uri := utils.ResolveURL(m.backend.BaseURL(), "/uploads/"+client.ModelFilename)
	if err := m.storage.Set(storage.KeyModelImage, uri); err != nil {
		logger.Warnf("Failed to store model image: %v", err)
	}

	m.removed.Store(false)
	img := &model.ModelImage{URI: uri, IsRemote: true}
	// 地址固定不变，但照片内容换了，必须通知订阅者
	m.apply(img, true)
	logger.Infof("Model image uploaded: %s", uri)
	return m.Current(), nil
}

// Remove 删除当前照片。本地状态总会清空，返回值只反映后端删除是否成功
func (m *ModelImageManager) Remove(ctx context.Context) error {
	var remoteErr error
	if img := m.Current(); img != nil && img.IsRemote {
		name := utils.FilenameFromURL(img.URI)
		if err := m.backend.DeleteUpload(ctx, name); err != nil {
			logger.Warnf("Failed to delete remote model image %s: %v", name, err)
			remoteErr = err
		}
	}

	m.removed.Store(true)
	if err := m.storage.Set(storage.KeyModelImage, ""); err != nil {
		logger.Warnf("Failed to mark model image removed: %v", err)
		if err := m.storage.Delete(storage.KeyModelImage); err != nil {
			logger.Warnf("Failed to clear stored model image: %v", err)
		}
	}
	m.apply(nil, false)
	return remoteErr
}

func (m *ModelImageManager) describe(uri string) *model.ModelImage {
	return &model.ModelImage{
		URI:      uri,
		IsRemote: utils.IsUnder(uri, m.backend.BaseURL()),
	}
}

func (m *ModelImageManager) apply(img *model.ModelImage, force bool) {
	m.mu.Lock()
	changed := force || !sameImage(m.current, img)
	m.current = img
	listeners := make([]func(*model.ModelImage), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(img)
	}
}

func sameImage(a, b *model.ModelImage) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
