package requestctx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValuesRoundTrip(t *testing.T) {
	ctx := WithActor(WithRequestID(context.Background(), "req-1"), "e1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "e1", GetActor(ctx))
	assert.Empty(t, GetActor(context.Background()))
}

func TestLoggerTagsRequest(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	ctx := WithActor(WithRequestID(context.Background(), "req-9"), "m1")
	Logger(ctx).Warn("audit log failed")
	assert.Contains(t, buf.String(), `"requestId":"req-9"`)
	assert.Contains(t, buf.String(), `"actorId":"m1"`)

	buf.Reset()
	Logger(context.Background()).Warn("sweep")
	assert.NotContains(t, buf.String(), "requestId")
}
