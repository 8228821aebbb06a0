// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftboard Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSetup_AddsServiceIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("driftboard", "1.2.3", "json", &buf)

	logger.Info("hello", "key", "value")

	entry := logLine(t, &buf)
	assert.Equal(t, "driftboard", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestSetup_NoTraceWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("driftboard", "dev", "json", &buf)

	logger.InfoContext(context.Background(), "no span here")

	entry := logLine(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestSetup_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("driftboard", "dev", "json", &buf)

	traceID := trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	spanID := trace.SpanID{0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11}
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced")

	entry := logLine(t, &buf)
	assert.Equal(t, traceID.String(), entry["trace_id"])
	assert.Equal(t, spanID.String(), entry["span_id"])
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("driftboard", "dev", "text", &buf)

	logger.Info("plain")

	assert.Contains(t, buf.String(), "msg=plain")
	assert.Contains(t, buf.String(), "service=driftboard")
}

func TestSetup_WithAttrsKeepsIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("driftboard", "dev", "json", &buf).With("component", "auth")

	logger.Info("scoped")

	entry := logLine(t, &buf)
	assert.Equal(t, "auth", entry["component"])
	assert.Equal(t, "driftboard", entry["service"])
}
