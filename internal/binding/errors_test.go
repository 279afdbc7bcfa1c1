package binding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"agency/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	errCtx := ErrorContext{Path: "messages", Operation: docstore.OpList}

	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "permission", err: fmt.Errorf("list messages: %w", docstore.ErrPermissionDenied), want: KindPermissionDenied},
		{name: "not found", err: docstore.ErrNotFound, want: KindNotFound},
		{name: "unavailable", err: docstore.ErrUnavailable, want: KindNetwork},
		{name: "deadline", err: context.DeadlineExceeded, want: KindNetwork},
		{name: "invalid document", err: fmt.Errorf("%w: bad", errInvalidDocument), want: KindInvalidDocument},
		{name: "unknown", err: errors.New("boom"), want: KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := Classify(tc.err, errCtx)
			require.NotNil(t, info)
			assert.Equal(t, tc.want, info.Kind)
			assert.Equal(t, errCtx, info.Context)
			assert.NotEmpty(t, info.Message)
			assert.ErrorIs(t, info, tc.err)
		})
	}
}

func TestClassifyKeepsStoreDetailOutOfMessage(t *testing.T) {
	err := fmt.Errorf("rule admin_only on messages/abc: %w", docstore.ErrPermissionDenied)
	info := Classify(err, ErrorContext{Path: "messages", Operation: docstore.OpList})

	assert.NotContains(t, info.Message, "admin_only")
	assert.Contains(t, info.Error(), "permission-denied")
	assert.Contains(t, info.Error(), "messages")
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil, ErrorContext{}))
}

func TestClassifyPassesThroughErrorInfo(t *testing.T) {
	original := Classify(docstore.ErrNotFound, ErrorContext{Path: "users/u1", Operation: docstore.OpGet})
	wrapped := fmt.Errorf("load profile: %w", original)

	assert.Same(t, original, Classify(wrapped, ErrorContext{Path: "other"}))
}

func TestDecode(t *testing.T) {
	value, err := Decode[talent](nil, "t1", []byte(`{"name":"Ana","approved":true}`))
	require.NoError(t, err)
	assert.Equal(t, talent{ID: "t1", Name: "Ana", Approved: true}, value)

	_, err = Decode[talent](nil, "t2", []byte(`{"approved":true}`))
	assert.ErrorIs(t, err, errInvalidDocument)

	_, err = Decode[talent](nil, "t3", []byte(`not json`))
	assert.ErrorIs(t, err, errInvalidDocument)

	raw, err := Decode[map[string]any](nil, "t4", []byte(`{"anything":1}`))
	require.NoError(t, err)
	assert.Equal(t, float64(1), raw["anything"])
}
