package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/outsource-importer/internal/domain"
)

func TestNew_Levels(t *testing.T) {
	l, err := New("warn", "importer")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = New("bogus", "importer")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New("debug", "importer")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestForJob(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	job := domain.ImportJob{Type: domain.FeatureTypePOI, Endpoint: "sicai", Provider: domain.ProviderSICAI, SourceID: "42"}

	ForJob(zap.New(core), job).Info("step")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "42", fields["source_id"])
	assert.Equal(t, "sicai", fields["endpoint"])
	assert.Equal(t, "poi", fields["type"])
	assert.Equal(t, "SICAI", fields["provider"])
}
