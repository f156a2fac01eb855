package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"fitroom/internal/model"
	"fitroom/internal/storage"
	"fitroom/internal/utils"
	"fitroom/pkg/logger"

	"github.com/google/uuid"
)

// ImageOpener 打开单品图片，返回内容和上传时使用的文件名
type ImageOpener func(ctx context.Context, uri string) (io.ReadCloser, string, error)

// ConfirmFunc 删除前向用户确认
type ConfirmFunc func(item model.WardrobeItem) bool

// WardrobeService 衣橱单品、当前穿着状态和试穿
type WardrobeService struct {
	backend WardrobeBackend
	storage storage.Storage
	open    ImageOpener

	mu             sync.RWMutex
	defaults       []model.WardrobeItem
	locals         []model.WardrobeItem
	defaultsLoaded bool
	localsLoaded   bool
	worn           model.WornState
	processed      *model.ProcessedImage

	trying atomic.Bool
	guard  screenGuard
	// look 模特照片每换一次加一，试穿结果对应旧照片时丢弃
	look atomic.Uint64
}

func NewWardrobeService(backend WardrobeBackend, store storage.Storage) *WardrobeService {
	s := &WardrobeService{
		backend: backend,
		storage: store,
	}
	s.open = s.openImage
	return s
}

// SetImageOpener 替换图片读取方式，测试时使用
func (s *WardrobeService) SetImageOpener(open ImageOpener) {
	s.open = open
}

// Activate 进入试穿页面：恢复本地单品，并在尚未成功时拉取默认衣橱
func (s *WardrobeService) Activate(ctx context.Context) []model.WardrobeItem {
	s.guard.invalidate()
	s.restoreLocals()
	return s.LoadDefaults(ctx)
}

// Leave 离开页面，进行中的试穿结果会被丢弃
func (s *WardrobeService) Leave() {
	s.guard.invalidate()
}

// LoadDefaults 成功一次后不再请求；失败只记日志，可重试
func (s *WardrobeService) LoadDefaults(ctx context.Context) []model.WardrobeItem {
	s.mu.RLock()
	loaded := s.defaultsLoaded
	s.mu.RUnlock()
	if loaded {
		return s.Items()
	}

	garments, err := s.backend.DefaultWardrobe(ctx)
	if err != nil {
		logger.Warnf("Failed to load default wardrobe: %v", err)
		return s.Items()
	}

	defaults := make([]model.WardrobeItem, 0, len(garments))
	for i, g := range garments {
		if !g.Type.Valid() {
			logger.Warnf("Skipping default garment %s with type %q", g.URL, g.Type)
			continue
		}
		defaults = append(defaults, model.WardrobeItem{
			ID:   fmt.Sprintf("default-%d", i),
			URI:  s.backend.Resolve(g.URL),
			Type: g.Type,
		})
	}

	s.mu.Lock()
	if !s.defaultsLoaded {
		s.defaults = defaults
		s.defaultsLoaded = true
	}
	s.mu.Unlock()

	logger.Infof("Loaded %d default garments", len(defaults))
	return s.Items()
}

// Items 默认单品在前，本地添加的按添加顺序在后
func (s *WardrobeService) Items() []model.WardrobeItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.WardrobeItem, 0, len(s.defaults)+len(s.locals))
	items = append(items, s.defaults...)
	return append(items, s.locals...)
}

func (s *WardrobeService) Worn() model.WornState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.worn
}

// Processed 最近一次试穿结果
func (s *WardrobeService) Processed() *model.ProcessedImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.processed == nil {
		return nil
	}
	p := *s.processed
	return &p
}

func (s *WardrobeService) IsTrying() bool {
	return s.trying.Load()
}

// AddLocal 添加本地图片。uri 为空表示用户取消选择，不做任何事
func (s *WardrobeService) AddLocal(uri string, garmentType model.GarmentType) (*model.WardrobeItem, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, nil
	}
	if !garmentType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGarmentType, garmentType)
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	item := model.WardrobeItem{ID: id.String(), URI: uri, Type: garmentType}

	s.restoreLocals()
	s.mu.Lock()
	s.locals = append(s.locals, item)
	locals := append([]model.WardrobeItem(nil), s.locals...)
	s.mu.Unlock()

	s.persistLocals(locals)
	return &item, nil
}

// Remove 确认后删除单品。穿着状态不受影响
func (s *WardrobeService) Remove(id string, confirm ConfirmFunc) error {
	s.mu.RLock()
	item, found := findItem(s.defaults, id)
	if !found {
		item, found = findItem(s.locals, id)
	}
	s.mu.RUnlock()
	if !found {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	if confirm == nil || !confirm(item) {
		return ErrNotConfirmed
	}

	s.mu.Lock()
	var local bool
	s.defaults, _ = removeItem(s.defaults, id)
	s.locals, local = removeItem(s.locals, id)
	locals := append([]model.WardrobeItem(nil), s.locals...)
	s.mu.Unlock()

	if local {
		s.persistLocals(locals)
	}
	return nil
}

// TryOn 把单品合成到当前模特照片上，成功后更新对应部位的穿着状态
func (s *WardrobeService) TryOn(ctx context.Context, item model.WardrobeItem) (*model.ProcessedImage, error) {
	if !item.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGarmentType, item.Type)
	}
	if !s.trying.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.trying.Store(false)

	token := s.guard.begin()
	look := s.look.Load()

	resp, err := s.tryOn(ctx, item)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"item_id": item.ID,
			"type":    item.Type,
		}).Errorf("Try-on failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrTryOnFailed, err)
	}

	if !s.guard.valid(token) || s.look.Load() != look {
		return nil, ErrStale
	}

	processed := &model.ProcessedImage{
		URL:    s.backend.Resolve(resp.ProcessedImageURL),
		ItemID: item.ID,
		Type:   item.Type,
	}

	s.mu.Lock()
	s.worn.Set(item.Type, item.ID)
	s.processed = processed
	s.mu.Unlock()

	p := *processed
	return &p, nil
}

// ResetWorn 模特照片变化时调用，清空穿着状态和试穿结果
func (s *WardrobeService) ResetWorn() {
	s.look.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.worn = model.WornState{}
	s.processed = nil
}

func (s *WardrobeService) tryOn(ctx context.Context, item model.WardrobeItem) (*model.TryOnResponse, error) {
	body, filename, err := s.open(ctx, item.URI)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return s.backend.TryOn(ctx, body, filename, item.Type)
}

// openImage 远程地址通过后端下载，其余按本地路径读取
func (s *WardrobeService) openImage(ctx context.Context, uri string) (io.ReadCloser, string, error) {
	name := utils.FilenameFromURL(uri)
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") || strings.HasPrefix(uri, "/uploads/") || strings.HasPrefix(uri, "/wardrobe/") {
		body, err := s.backend.Fetch(ctx, uri)
		return body, name, err
	}

	f, err := os.Open(strings.TrimPrefix(uri, "file://"))
	if err != nil {
		return nil, "", err
	}
	return f, name, nil
}

func (s *WardrobeService) restoreLocals() {
	s.mu.RLock()
	loaded := s.localsLoaded
	s.mu.RUnlock()
	if loaded {
		return
	}

	var locals []model.WardrobeItem
	raw, err := s.storage.Get(storage.KeyWardrobeItems)
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(raw), &locals); err != nil {
			logger.Warnf("Discarding corrupt wardrobe items: %v", err)
			locals = nil
		}
	case !errors.Is(err, storage.ErrKeyNotFound):
		logger.Warnf("Failed to load wardrobe items: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.localsLoaded {
		return
	}
	// 恢复之前已经添加的单品排在后面
	s.locals = append(locals, s.locals...)
	s.localsLoaded = true
}

func (s *WardrobeService) persistLocals(locals []model.WardrobeItem) {
	data, err := json.Marshal(locals)
	if err != nil {
		logger.Errorf("Failed to marshal wardrobe items: %v", err)
		return
	}
	if err := s.storage.Set(storage.KeyWardrobeItems, string(data)); err != nil {
		logger.Warnf("Failed to persist wardrobe items: %v", err)
	}
}

func findItem(items []model.WardrobeItem, id string) (model.WardrobeItem, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return model.WardrobeItem{}, false
}

func removeItem(items []model.WardrobeItem, id string) ([]model.WardrobeItem, bool) {
	for i, item := range items {
		if item.ID == id {
			return append(items[:i:i], items[i+1:]...), true
		}
	}
	return items, false
}
