package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(CodeUpstream, cause, "caption generator call failed")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeUpstream, err.Code())
	assert.Contains(t, err.Error(), "caption generator call failed")
	assert.Contains(t, err.Error(), "refused")
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	inner := New(CodeNotFound, "draft not found")
	wrapped := fmt.Errorf("load draft: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeNotFound, typed.Code())
	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(wrapped, CodeConflict))
	assert.Nil(t, As(errors.New("plain")))
}

func TestMetadataDefaultsToInternal(t *testing.T) {
	meta := MetadataFor(Code("UNKNOWN"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
	assert.Equal(t, http.StatusGatewayTimeout, MetadataFor(CodeTimeout).HTTPStatus)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(CodeTimeout, "slow")))
	assert.True(t, Retryable(New(CodeUpstream, "500")))
	assert.False(t, Retryable(New(CodeCredentials, "expired")))
	assert.False(t, Retryable(errors.New("plain")))
}

func TestDumpCollectsChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(CodeDependency, errors.New("db down"), "persist draft"))
	dump := Dump(err)
	assert.Equal(t, CodeDependency, dump.Code)
	assert.True(t, dump.Retryable)
	assert.Len(t, dump.Chain, 3)
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "", MessageOf(nil))
	assert.Equal(t, "plain failure", MessageOf(errors.New("plain failure")))
	assert.Equal(t, "Social account not found or token expired", MessageOf(New(CodeCredentials, "Social account not found or token expired")))

	wrapped := fmt.Errorf("publish: %w", Wrap(CodeUpstream, errors.New("status 400: bad media"), "instagram container request failed"))
	assert.Equal(t, "instagram container request failed: status 400: bad media", MessageOf(wrapped))
}
