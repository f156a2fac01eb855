package storage

// Storage 设备本地的字符串键值存储，重启后数据仍然保留
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)

	Init() error
	Close() error
}

// 持久化键名，实际写入时会加上命名空间前缀
const (
	KeyModelImage    = "lastUploadedImage"
	KeyChatMessages  = "chatMessages"
	KeyChatSession   = "chatSessionId"
	KeyWardrobeItems = "wardrobeItems"
)
