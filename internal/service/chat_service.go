package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"fitroom/internal/config"
	"fitroom/internal/model"
	"fitroom/internal/storage"
	"fitroom/pkg/logger"
)

// ChatService 造型顾问对话，持有本地消息记录和后端会话 ID
type ChatService struct {
	backend ChatBackend
	storage storage.Storage
	config  config.ChatConfig

	mu      sync.RWMutex
	session model.ChatSession

	loading atomic.Bool
	guard   screenGuard
}

func NewChatService(backend ChatBackend, store storage.Storage, cfg config.ChatConfig) *ChatService {
	if cfg.ErrorMessage == "" {
		cfg.ErrorMessage = "Sorry, there was an error processing your message. Please try again."
	}
	return &ChatService{
		backend: backend,
		storage: store,
		config:  cfg,
	}
}

func (s *ChatService) Messages() []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ChatMessage(nil), s.session.Messages...)
}

func (s *ChatService) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.SessionID
}

func (s *ChatService) IsLoading() bool {
	return s.loading.Load()
}

// Refresh 进入聊天页面时调用
func (s *ChatService) Refresh(ctx context.Context) {
	if s.config.FreshOnEnter {
		s.Clear(ctx)
		return
	}
	s.guard.invalidate()
	s.Restore()
}

// Leave 离开页面，之后返回的回复不再写入记录
func (s *ChatService) Leave() {
	s.guard.invalidate()
}

// Restore 从本地存储恢复消息和会话 ID，数据损坏时从空会话开始
func (s *ChatService) Restore() {
	session := model.ChatSession{}

	if raw, err := s.storage.Get(storage.KeyChatMessages); err == nil {
		if err := json.Unmarshal([]byte(raw), &session.Messages); err != nil {
			logger.Warnf("Discarding corrupt chat history: %v", err)
			session.Messages = nil
		}
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		logger.Warnf("Failed to load chat history: %v", err)
	}

	if id, err := s.storage.Get(storage.KeyChatSession); err == nil {
		session.SessionID = id
	} else if !errors.Is(err, storage.ErrKeyNotFound) {
		logger.Warnf("Failed to load chat session id: %v", err)
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
}

// Send 发送一条消息，返回追加到记录末尾的 assistant 或 system 消息。
// 空白输入不做任何事，返回 nil, nil
func (s *ChatService) Send(ctx context.Context, text string) (*model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	text = s.truncateString(text, s.config.MaxInputLen)

	if !s.loading.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.loading.Store(false)

	token := s.guard.begin()

	s.mu.Lock()
	history := make([]model.ChatMessage, 0, len(s.session.Messages))
	for _, msg := range s.session.Messages {
		// 本地错误提示不属于对话内容
		if msg.Role != model.RoleSystem {
			history = append(history, msg)
		}
	}
	sessionID := s.session.SessionID
	s.session.Messages = append(s.session.Messages, model.ChatMessage{Role: model.RoleUser, Content: text})
	s.mu.Unlock()

	resp, err := s.backend.Chat(ctx, model.ChatRequest{
		Message:   text,
		History:   history,
		SessionID: sessionID,
	})
	if err == nil && resp.Response == "" {
		err = errors.New("empty response")
	}

	if !s.guard.valid(token) {
		return nil, ErrStale
	}

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"session_id": sessionID,
		}).Errorf("Chat request failed: %v", err)

		reply := model.ChatMessage{Role: model.RoleSystem, Content: s.config.ErrorMessage}
		s.mu.Lock()
		s.session.Messages = append(s.session.Messages, reply)
		s.mu.Unlock()
		return &reply, fmt.Errorf("%w: %v", ErrChatFailed, err)
	}

	reply := model.ChatMessage{Role: model.RoleAssistant, Content: resp.Response}
	s.mu.Lock()
	s.session.Messages = append(s.session.Messages, reply)
	if resp.SessionID != "" {
		s.session.SessionID = resp.SessionID
	}
	snapshot := model.ChatSession{
		SessionID: s.session.SessionID,
		Messages:  append([]model.ChatMessage(nil), s.session.Messages...),
	}
	s.mu.Unlock()

	s.persist(snapshot)
	return &reply, nil
}

// Clear 清空本地会话并尽量通知后端，通知失败不影响结果
func (s *ChatService) Clear(ctx context.Context) {
	s.guard.invalidate()

	s.mu.Lock()
	sessionID := s.session.SessionID
	s.session = model.ChatSession{}
	s.mu.Unlock()

	if sessionID == "" {
		// 进程刚启动时会话 ID 只在存储里
		if id, err := s.storage.Get(storage.KeyChatSession); err == nil {
			sessionID = id
		}
	}

	for _, key := range []string{storage.KeyChatMessages, storage.KeyChatSession} {
		if err := s.storage.Delete(key); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
			logger.Warnf("Failed to delete %s: %v", key, err)
		}
	}

	if sessionID == "" {
		return
	}
	if err := s.backend.ClearChat(ctx, sessionID); err != nil {
		logger.Warnf("Failed to clear backend session %s: %v", sessionID, err)
	}
}

func (s *ChatService) persist(session model.ChatSession) {
	data, err := json.Marshal(session.Messages)
	if err != nil {
		logger.Errorf("Failed to marshal chat history: %v", err)
		return
	}
	if err := s.storage.Set(storage.KeyChatMessages, string(data)); err != nil {
		logger.Warnf("Failed to persist chat history: %v", err)
	}
	if session.SessionID == "" {
		return
	}
	if err := s.storage.Set(storage.KeyChatSession, session.SessionID); err != nil {
		logger.Warnf("Failed to persist chat session id: %v", err)
	}
}

// truncateString 按 Unicode 字符截断，maxLen <= 0 表示不限制
func (s *ChatService) truncateString(str string, maxLen int) string {
	if maxLen <= 0 {
		return str
	}
	runes := []rune(str)
	if len(runes) <= maxLen {
		return str
	}
	return string(runes[:maxLen])
}
