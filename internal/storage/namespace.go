package storage

import (
	"fmt"
	"strings"

	"fitroom/internal/config"
	"fitroom/pkg/logger"
)

// Namespaced 给所有键加上 "<prefix>:" 前缀，多个应用可以共用一个底层存储
type Namespaced struct {
	Storage
	prefix string
}

func NewNamespaced(inner Storage, namespace string) *Namespaced {
	prefix := ""
	if namespace != "" {
		prefix = namespace + ":"
	}
	return &Namespaced{Storage: inner, prefix: prefix}
}

func (n *Namespaced) Get(key string) (string, error) {
	return n.Storage.Get(n.prefix + key)
}

func (n *Namespaced) Set(key, value string) error {
	return n.Storage.Set(n.prefix+key, value)
}

func (n *Namespaced) Delete(key string) error {
	return n.Storage.Delete(n.prefix + key)
}

// Keys 只返回本命名空间下的键，且去掉前缀
func (n *Namespaced) Keys() ([]string, error) {
	all, err := n.Storage.Keys()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(all))
	for _, key := range all {
		if strings.HasPrefix(key, n.prefix) {
			keys = append(keys, strings.TrimPrefix(key, n.prefix))
		}
	}
	return keys, nil
}

// New 按配置创建存储；初始化失败时退回内存存储，保证应用可用
func New(cfg config.StorageConfig) Storage {
	var store Storage

	switch cfg.Type {
	case "disk":
		store = NewDiskStorage(cfg.DataDir)
	case "sqlite":
		store = NewSQLiteStorage(cfg.DataDir)
	case "memory", "":
		store = NewMemoryStorage()
	default:
		logger.Warnf("Unknown storage type %q, using memory storage", cfg.Type)
		store = NewMemoryStorage()
	}

	if err := store.Init(); err != nil {
		logger.Errorf("Failed to initialize storage: %v", err)
		store = NewMemoryStorage()
		store.Init()
	}

	return NewNamespaced(store, cfg.Namespace)
}

// Describe 用于 CLI 的 status 输出
func Describe(cfg config.StorageConfig) string {
	if cfg.Type == "memory" || cfg.Type == "" {
		return "memory"
	}
	return fmt.Sprintf("%s (%s)", cfg.Type, cfg.DataDir)
}
