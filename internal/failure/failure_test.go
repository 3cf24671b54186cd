package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "validation with field",
			err:  Validation("total", "total must be a positive number"),
			want: "VALIDATION: total must be a positive number (field=total)",
		},
		{
			name: "storage with cause",
			err:  Storage("unable to create order", errors.New("disk I/O error")),
			want: "STORAGE: unable to create order: disk I/O error",
		},
		{
			name: "not found",
			err:  NotFound("order not found"),
			want: "NOT_FOUND: order not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestHelpers_SeeThroughWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("list orders: %w", Network("unable to reach server", cause))

	assert.True(t, IsNetwork(wrapped))
	assert.False(t, IsStorage(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeNetwork, CodeOf(wrapped))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.False(t, IsValidation(nil))
}

func TestHelpers_EachCode(t *testing.T) {
	assert.True(t, IsValidation(Validation("items", "x")))
	assert.True(t, IsStorage(Storage("x", nil)))
	assert.True(t, IsNotFound(NotFound("x")))
	assert.True(t, IsPartialSeed(PartialSeed("x", nil)))
}
