package handler

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"fitroom/internal/config"
	"fitroom/internal/model"
	"fitroom/pkg/logger"
)

type storedFile struct {
	name       string
	data       []byte
	uploadedAt time.Time
}

type defaultGarment struct {
	file string
	kind model.GarmentType
}

// Backend 开发用的后端替身，所有状态保存在内存中
type Backend struct {
	mu sync.RWMutex

	uploads   map[string]*storedFile
	processed map[string]*storedFile
	wardrobe  map[string]*storedFile
	defaults  []defaultGarment
	sessions  map[string][]model.ChatMessage

	responder      Responder
	maxUploadBytes int64
	now            func() time.Time
}

func NewBackend(responder Responder, maxUploadBytes int64) *Backend {
	if responder == nil {
		responder = EchoResponder{}
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 16 << 20
	}
	return &Backend{
		uploads:        make(map[string]*storedFile),
		processed:      make(map[string]*storedFile),
		wardrobe:       make(map[string]*storedFile),
		sessions:       make(map[string][]model.ChatMessage),
		responder:      responder,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// NewBackendFromConfig 按 stub 配置加载默认衣橱图片
func NewBackendFromConfig(cfg config.StubConfig) *Backend {
	var responder Responder = EchoResponder{}
	if cfg.OpenAI.APIKey != "" {
		responder = NewOpenAIResponder(cfg.OpenAI)
		logger.Infof("Using OpenAI responder, model: %s", cfg.OpenAI.Model)
	}

	b := NewBackend(responder, cfg.MaxUploadBytes)
	for _, g := range cfg.DefaultWardrobe {
		kind, err := model.ParseGarmentType(g.Type)
		if err != nil {
			logger.Warnf("Skipping default garment %s: %v", g.File, err)
			continue
		}
		data, err := os.ReadFile(filepath.Join(cfg.WardrobeDir, g.File))
		if err != nil {
			logger.Warnf("Skipping default garment %s: %v", g.File, err)
			continue
		}
		b.AddDefaultGarment(filepath.Base(g.File), kind, data)
	}
	return b
}

func (b *Backend) AddDefaultGarment(name string, kind model.GarmentType, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.wardrobe[name]; !exists {
		b.defaults = append(b.defaults, defaultGarment{file: name, kind: kind})
	}
	b.wardrobe[name] = &storedFile{name: name, data: data, uploadedAt: b.now()}
}

func (b *Backend) saveUpload(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads[name] = &storedFile{name: name, data: data, uploadedAt: b.now()}
}

func (b *Backend) listUploads() []model.UploadEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	files := make([]*storedFile, 0, len(b.uploads))
	for _, f := range b.uploads {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].uploadedAt.Equal(files[j].uploadedAt) {
			return files[i].name < files[j].name
		}
		return files[i].uploadedAt.Before(files[j].uploadedAt)
	})

	entries := make([]model.UploadEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, model.UploadEntry{
			URL:        "/uploads/" + f.name,
			Filename:   f.name,
			Size:       int64(len(f.data)),
			UploadedAt: f.uploadedAt,
		})
	}
	return entries
}

func (b *Backend) deleteUpload(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.uploads[name]; !exists {
		return false
	}
	delete(b.uploads, name)
	return true
}

func (b *Backend) file(set map[string]*storedFile, name string) (*storedFile, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f, ok := set[name]
	return f, ok
}

func (b *Backend) hasModel() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.uploads["model.jpg"]
	return ok
}

func (b *Backend) saveProcessed(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processed[name] = &storedFile{name: name, data: data, uploadedAt: b.now()}
}

func (b *Backend) history(sessionID string) []model.ChatMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.ChatMessage(nil), b.sessions[sessionID]...)
}

func (b *Backend) appendHistory(sessionID string, msgs ...model.ChatMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[sessionID] = append(b.sessions[sessionID], msgs...)
}

func (b *Backend) clearSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
}

func (b *Backend) defaultWardrobe() []model.DefaultGarment {
	b.mu.RLock()
	defer b.mu.RUnlock()

	garments := make([]model.DefaultGarment, 0, len(b.defaults))
	for _, d := range b.defaults {
		garments = append(garments, model.DefaultGarment{
			URL:  "/wardrobe/" + d.file,
			Type: d.kind,
		})
	}
	return garments
}
