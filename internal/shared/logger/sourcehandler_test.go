package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionalSourceHandler_AddsSourceOnlyForSelectedLevels(t *testing.T) {
	tests := []struct {
		name       string
		log        func(l *slog.Logger)
		wantSource bool
	}{
		{"info is compact", func(l *slog.Logger) { l.Info("renewal batch started") }, false},
		{"warn carries source", func(l *slog.Logger) { l.Warn("charge declined") }, true},
		{"error carries source", func(l *slog.Logger) { l.Error("selection failed") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewConditionalSourceHandler(slog.NewTextHandler(&buf, nil), slog.LevelWarn, slog.LevelError)

			tt.log(slog.New(h))

			assert.Equal(t, tt.wantSource, bytes.Contains(buf.Bytes(), []byte("source=")), buf.String())
		})
	}
}

func TestConditionalSourceHandler_KeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	h := NewConditionalSourceHandler(slog.NewTextHandler(&buf, nil), slog.LevelError)

	slog.New(h).With("subscription_id", 42).WithGroup("charge").Info("ok", "gateway", "paystack")

	out := buf.String()
	assert.Contains(t, out, "subscription_id=42")
	assert.Contains(t, out, "charge.gateway=paystack")
	assert.NotContains(t, out, "source=")
}

func TestConditionalSourceHandler_DelegatesEnabled(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	h := NewConditionalSourceHandler(base, slog.LevelError)

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}
