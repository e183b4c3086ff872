package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/document"
)

func TestResultError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ResultError
		expected string
	}{
		{
			name:     "with underlying error",
			err:      NewResultError("save", "a1", "failed to create save directory", errors.New("permission denied")),
			expected: "result save of a1 failed: failed to create save directory: permission denied",
		},
		{
			name:     "without underlying error",
			err:      NewResultError("import", "a2", "nothing to import", nil),
			expected: "result import of a2 failed: nothing to import",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestResultError_Unwrap(t *testing.T) {
	err := NewResultError("import", "a1", "failed to import model", document.ErrNotGLB)

	assert.True(t, errors.Is(err, document.ErrNotGLB))

	var resultErr *ResultError
	require.True(t, errors.As(error(err), &resultErr))
	assert.Equal(t, "import", resultErr.Operation)
	assert.Nil(t, NewResultError("save", "a1", "x", nil).Unwrap())
}
