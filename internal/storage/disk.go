package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"fitroom/pkg/logger"
)

const diskFileName = "kv.json"

// DiskStorage 所有键值保存在一个 JSON 文件里，写入通过临时文件 + rename 保证原子性
type DiskStorage struct {
	dataDir string
	mu      sync.RWMutex
	cache   map[string]string
}

func NewDiskStorage(dataDir string) *DiskStorage {
	return &DiskStorage{
		dataDir: dataDir,
		cache:   make(map[string]string),
	}
}

func (d *DiskStorage) Init() error {
	if err := os.MkdirAll(d.dataDir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := d.load(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Debugf("Disk storage initialized at %s", d.dataDir)
	return nil
}

func (d *DiskStorage) Close() error {
	return nil
}

func (d *DiskStorage) path() string {
	return filepath.Join(d.dataDir, diskFileName)
}

func (d *DiskStorage) load() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(d.path()); os.IsNotExist(err) {
		return d.flush()
	}

	data, err := os.ReadFile(d.path())
	if err != nil {
		return err
	}

	values := make(map[string]string)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
	}

	d.cache = values
	return nil
}

// flush 调用方需持有写锁
func (d *DiskStorage) flush() error {
	tempPath := d.path() + ".tmp"

	data, err := json.MarshalIndent(d.cache, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, d.path())
}

func (d *DiskStorage) Get(key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	value, exists := d.cache[key]
	if !exists {
		return "", ErrKeyNotFound
	}

	return value, nil
}

func (d *DiskStorage) Set(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, existed := d.cache[key]
	d.cache[key] = value

	if err := d.flush(); err != nil {
		if existed {
			d.cache[key] = prev
		} else {
			delete(d.cache, key)
		}
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	return nil
}

func (d *DiskStorage) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, existed := d.cache[key]
	if !existed {
		return nil
	}
	delete(d.cache, key)

	if err := d.flush(); err != nil {
		d.cache[key] = prev
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	return nil
}

func (d *DiskStorage) Keys() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	keys := make([]string, 0, len(d.cache))
	for key := range d.cache {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, nil
}
