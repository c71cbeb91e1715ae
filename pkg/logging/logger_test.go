package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, buf *bytes.Buffer) *Logger {
	t.Helper()
	config := DefaultConfig("test-service")
	config.Level = LevelDebug
	config.Output = buf
	return New(config)
}

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestWithTransactionAddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(t, &buf)

	logger.WithTransaction("TXN-1", "PL-001").Info("Created package transaction")

	entry := lastLogLine(t, &buf)
	assert.Equal(t, "TXN-1", entry["transactionId"])
	assert.Equal(t, "PL-001", entry["packingListId"])
	assert.Equal(t, "test-service", entry["service"])
}

func TestWithComponentAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(t, &buf)

	logger.WithComponent("mongodb").WithError(errors.New("connection reset")).Error("Query failed")

	entry := lastLogLine(t, &buf)
	assert.Equal(t, "mongodb", entry["component"])
	assert.Equal(t, "connection reset", entry["error"])
	assert.Equal(t, "ERROR", entry["level"])
}

func TestWithContextExtractsRequestScopedIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(t, &buf)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	ctx = ContextWithOperatorID(ctx, "op-7")

	logger.WithContext(ctx).Info("Handled step")

	entry := lastLogLine(t, &buf)
	assert.Equal(t, "req-1", entry["requestId"])
	assert.Equal(t, "corr-1", entry["correlationId"])
	assert.Equal(t, "op-7", entry["operatorId"])
}

func TestWithContextWithoutAttributesReturnsSameLogger(t *testing.T) {
	logger := newBufferLogger(t, &bytes.Buffer{})
	assert.Same(t, logger, logger.WithContext(context.Background()))
}

func TestStepExecutedLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(t, &buf)
	ctx := context.Background()

	logger.StepExecuted(ctx, "TXN-1", "destuffWarehouse", "inspect", 3, 5*time.Millisecond, true)
	entry := lastLogLine(t, &buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "inspect", entry["step"])
	assert.Equal(t, float64(3), entry["packageCount"])

	logger.StepExecuted(ctx, "TXN-1", "destuffWarehouse", "store", 3, 5*time.Millisecond, false)
	entry = lastLogLine(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, false, entry["success"])
}

func TestDatabaseQueryLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(t, &buf)
	ctx := context.Background()

	logger.DatabaseQuery(ctx, "package_transactions", "findOne", time.Millisecond, true, 1)
	entry := lastLogLine(t, &buf)
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "package_transactions", entry["collection"])

	logger.DatabaseQuery(ctx, "package_transactions", "save", time.Millisecond, false, 0)
	entry = lastLogLine(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "save", entry["operation"])
}
