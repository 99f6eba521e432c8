package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	t.Run("returns the embedded logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := WithLogger(context.Background(), logger)

		FromContext(ctx).Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("panics without a logger", func(t *testing.T) {
		assert.PanicsWithValue(t, "ctxlog: logger missing from context", func() {
			FromContext(context.Background())
		})
	})

	t.Run("discard carries a usable logger", func(t *testing.T) {
		assert.NotPanics(t, func() {
			FromContext(Discard(context.Background())).Warn("dropped")
		})
	})
}
