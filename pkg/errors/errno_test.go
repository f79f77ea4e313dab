package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestMakeCode(t *testing.T) {
	tests := []struct {
		service  int
		category int
		sequence int
		expected int
	}{
		{0, 0, 0, 0},
		{0, 1, 1, 1001},
		{21, 4, 1, 2104001},
		{21, 12, 1, 2112001},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d_%d", tt.service, tt.category, tt.sequence), func(t *testing.T) {
			assert.Equal(t, tt.expected, MakeCode(tt.service, tt.category, tt.sequence))

			s, c, q := ParseCode(tt.expected)
			assert.Equal(t, tt.service, s)
			assert.Equal(t, tt.category, c)
			assert.Equal(t, tt.sequence, q)
		})
	}
}

func TestErrno_WithCauseKeepsOriginal(t *testing.T) {
	cause := stderrors.New("disk full")
	err := ErrDatabase.WithCause(cause)

	assert.NotSame(t, ErrDatabase, err)
	assert.Nil(t, ErrDatabase.Unwrap(), "原始错误不应被修改")
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrDatabase)
	assert.Contains(t, err.Error(), "disk full")
}

func TestErrno_WithMessage(t *testing.T) {
	err := ErrMissingParam.WithMessage("Chatbot ID is required")

	assert.Equal(t, "Chatbot ID is required", err.MessageEN)
	assert.Equal(t, "Missing required parameter", ErrMissingParam.MessageEN)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
	assert.True(t, IsCode(err, ErrMissingParam.Code))
}

func TestErrno_Message(t *testing.T) {
	assert.Equal(t, "文档不存在", ErrDocumentNotFound.Message("zh-CN"))
	assert.Equal(t, "Document not found", ErrDocumentNotFound.Message("en"))
}

func TestErrno_DefaultStatus(t *testing.T) {
	e := &Errno{Code: 42}
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
	assert.Equal(t, codes.Internal, e.GRPCStatus())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("load: %w", ErrDocumentNotFound)
	assert.Equal(t, ErrDocumentNotFound.Code, FromError(wrapped).Code)

	plain := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, "Internal server error", plain.MessageEN)
}

func TestRegister_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(New(ErrInternal.Code, http.StatusInternalServerError, codes.Internal, "dup", "重复"))
	})

	got, ok := Lookup(ErrDocumentNotFound.Code)
	assert.True(t, ok)
	assert.Same(t, ErrDocumentNotFound, got)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrInvalidURL.Code))
	assert.True(t, IsClientError(ErrDocumentNotFound.Code))
	assert.False(t, IsClientError(ErrDocumentCreate.Code))
}
