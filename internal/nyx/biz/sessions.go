package biz

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded 同一会话的新请求取消了旧的流。
var ErrSuperseded = errors.New("superseded by a newer request in the same session")

type session struct {
	cancel context.CancelCauseFunc
}

// Sessions 会话注册表：每个会话最多一个进行中的流。
type Sessions struct {
	mu     sync.Mutex
	active map[string]*session
}

// NewSessions 创建会话注册表。
func NewSessions() *Sessions {
	return &Sessions{active: make(map[string]*session)}
}

// Begin 登记会话的新请求并取消旧请求。返回的 release 在流结束后调用，
// 只有当登记项仍属于本次请求时才会移除。空 id 不登记。
func (s *Sessions) Begin(id string, cancel context.CancelCauseFunc) (release func()) {
	if id == "" {
		return func() {}
	}

	cur := &session{cancel: cancel}

	s.mu.Lock()
	prev := s.active[id]
	s.active[id] = cur
	s.mu.Unlock()

	if prev != nil {
		prev.cancel(ErrSuperseded)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.active[id] == cur {
				delete(s.active, id)
			}
			s.mu.Unlock()
		})
	}
}

// Len 返回进行中的会话数。
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
