package remote

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	err := New(ServiceIdentity, "auth/network", "network down")
	assert.Equal(t, "identity: (auth/network) network down", err.Error())

	bare := &Error{Code: "E1", Message: "network"}
	assert.Equal(t, "(E1) network", bare.Error())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(ServiceProfile, "profile/write", nil))

	cause := errors.New("disk full")
	err := Wrap(ServiceProfile, "profile/write", cause)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, "profile/write"))

	// Already a remote error: kept as is.
	orig := New(ServiceBlob, "blob/denied", "denied")
	assert.Same(t, orig, Wrap(ServiceProfile, "profile/write", orig))
}

func TestAs_ThroughWrapping(t *testing.T) {
	inner := New(ServiceBlob, "NoSuchBucket", "bucket missing")
	wrapped := fmt.Errorf("upload avatar: %w", inner)

	re, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "NoSuchBucket", re.Code)
	assert.False(t, HasCode(wrapped, "other"))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"remote", New(ServiceIdentity, "E1", "network"), "(E1) network"},
		{"wrapped remote", fmt.Errorf("logout: %w", New(ServiceIdentity, "E1", "network")), "(E1) network"},
		{"plain", errors.New("boom"), "(unknown) boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}
