package biz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/nyx/internal/nyx/store"
	"github.com/kart-io/nyx/pkg/llm"
)

// fakeEmbedder 按关键词返回固定向量。
type fakeEmbedder struct {
	mu    sync.Mutex
	calls []string
	fn    func(text string) ([]float32, error)
}

func topicEmbedder() *fakeEmbedder {
	return &fakeEmbedder{fn: func(text string) ([]float32, error) {
		switch {
		case strings.Contains(text, "refund"):
			return []float32{1, 0, 0}, nil
		case strings.Contains(text, "shipping"):
			return []float32{0, 1, 0}, nil
		default:
			return []float32{0, 0, 1}, nil
		}
	}}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	return f.fn(text)
}

func (f *fakeEmbedder) Dimension() int { return 3 }
func (f *fakeEmbedder) Name() string   { return "fake" }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeChat 记录最后一次请求并返回预设的流。
type fakeChat struct {
	name   string
	mu     sync.Mutex
	last   *llm.ChatRequest
	stream func() (llm.Stream, error)
}

func (f *fakeChat) StreamChat(_ context.Context, req *llm.ChatRequest) (llm.Stream, error) {
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	return f.stream()
}

func (f *fakeChat) Name() string { return f.name }

func (f *fakeChat) lastRequest() *llm.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func streaming(name string, deltas ...string) *fakeChat {
	return &fakeChat{name: name, stream: func() (llm.Stream, error) {
		return llm.NewSliceStream(deltas...), nil
	}}
}

func failing(name string, err error) *fakeChat {
	return &fakeChat{name: name, stream: func() (llm.Stream, error) {
		return nil, err
	}}
}

// recordingEmitter 收集输出的帧。
type recordingEmitter struct {
	deltas []string
	done   bool
	failOn int
}

func (e *recordingEmitter) Delta(content string) error {
	if e.failOn > 0 && len(e.deltas)+1 == e.failOn {
		return errors.New("client gone")
	}
	e.deltas = append(e.deltas, content)
	return nil
}

func (e *recordingEmitter) Done() error {
	e.done = true
	return nil
}

func newTestFactory(t *testing.T) store.Factory {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := store.NewFactory(db, nil)
	require.NoError(t, f.AutoMigrate(context.Background()))
	return f
}
