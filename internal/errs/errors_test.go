package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind and message only",
			err:  New(ErrKindNotFound, "no such object"),
			want: "[not_found] no such object",
		},
		{
			name: "with cause",
			err:  Wrap(ErrKindTimeout, "listing timed out", errors.New("context deadline exceeded")),
			want: "[timeout] listing timed out: context deadline exceeded",
		},
		{
			name: "with provider code",
			err:  WrapCode(ErrKindPermissionDenied, "AccessDenied", "cannot list bucket", nil),
			want: "[permission_denied/AccessDenied] cannot list bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"not found", New(ErrKindNotFound, "x"), IsNotFound},
		{"timeout", New(ErrKindTimeout, "x"), IsTimeout},
		{"connection failed", New(ErrKindConnectionFailed, "x"), IsConnectionFailed},
		{"store failed", New(ErrKindStoreFailed, "x"), IsStoreFailed},
		{"invalid input", New(ErrKindInvalidInput, "x"), IsInvalidInput},
		{"permission denied", New(ErrKindPermissionDenied, "x"), IsPermissionDenied},
		{"too large", New(ErrKindTooLarge, "x"), IsTooLarge},
		{"report not found", New(ErrKindReportNotFound, "x"), IsReportNotFound},
		{"malformed archive", New(ErrKindMalformedArchive, "x"), IsMalformedArchive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
			assert.False(t, tt.pred(errors.New("plain error")))
		})
	}
}

func TestPredicatesTraverseWrappedChain(t *testing.T) {
	inner := WrapCode(ErrKindNotFound, "NoSuchKey", "object missing", errors.New("404"))
	outer := fmt.Errorf("fetch failed: %w", inner)

	require.True(t, IsNotFound(outer))
	assert.Equal(t, "NoSuchKey", CodeOf(outer))
}

func TestCodeOfWithoutCode(t *testing.T) {
	assert.Equal(t, "", CodeOf(New(ErrKindStoreFailed, "x")))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}
