package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessions_BeginCancelsPrevious(t *testing.T) {
	s := NewSessions()

	ctx1, cancel1 := context.WithCancelCause(context.Background())
	release1 := s.Begin("s", cancel1)
	assert.Equal(t, 1, s.Len())

	ctx2, cancel2 := context.WithCancelCause(context.Background())
	release2 := s.Begin("s", cancel2)

	assert.ErrorIs(t, context.Cause(ctx1), ErrSuperseded)
	assert.NoError(t, ctx2.Err())

	// 旧请求释放不影响新登记
	release1()
	assert.Equal(t, 1, s.Len())

	release2()
	release2()
	assert.Equal(t, 0, s.Len())
}

func TestSessions_Independent(t *testing.T) {
	s := NewSessions()

	ctxA, cancelA := context.WithCancelCause(context.Background())
	_, cancelB := context.WithCancelCause(context.Background())
	s.Begin("a", cancelA)
	s.Begin("b", cancelB)

	assert.NoError(t, ctxA.Err())
	assert.Equal(t, 2, s.Len())
}

func TestSessions_EmptyID(t *testing.T) {
	s := NewSessions()
	ctx, cancel := context.WithCancelCause(context.Background())
	release := s.Begin("", cancel)
	s.Begin("", func(error) {})
	release()

	assert.NoError(t, ctx.Err())
	assert.Equal(t, 0, s.Len())
}
