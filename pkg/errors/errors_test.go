package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	require.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeEmptyCart).HTTPStatus)
	require.Equal(t, http.StatusPaymentRequired, MetadataFor(CodePaymentDeclined).HTTPStatus)
	require.True(t, MetadataFor(CodeDependency).Retryable)
	require.False(t, MetadataFor(CodeValidation).Retryable)
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	require.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("socket closed")
	err := Wrap(CodeDependency, cause, "intent creation failed")

	require.ErrorIs(t, err, cause)
	require.Equal(t, CodeDependency, err.Code())
	require.Equal(t, "DEPENDENCY_ERROR: intent creation failed", err.Error())
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodePaymentDeclined, "insufficient funds")
	outer := fmt.Errorf("confirm: %w", inner)

	typed := As(outer)
	require.NotNil(t, typed)
	require.Equal(t, CodePaymentDeclined, typed.Code())
}

func TestRetryable(t *testing.T) {
	require.True(t, Retryable(New(CodeDependency, "gateway down")))
	require.False(t, Retryable(New(CodeValidation, "bad address")))
	require.False(t, Retryable(fmt.Errorf("plain")))
}

func TestDumpBuildsChain(t *testing.T) {
	err := Wrap(CodeDependency, fmt.Errorf("dial tcp: refused"), "order submit failed")
	dump := Dump(err)

	require.Equal(t, CodeDependency, dump.Code)
	require.Len(t, dump.Chain, 2)
	require.Contains(t, dump.TopMessage, "order submit failed")
}
