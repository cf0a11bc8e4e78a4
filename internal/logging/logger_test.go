package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "push.log")
	logger, err := logging.New(logging.Config{Level: "debug", Encoding: "json", OutputPath: path})
	require.NoError(t, err)

	logger.Debug("broadcast finished", zap.Int("successCount", 2))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"broadcast finished"`)
	assert.Contains(t, string(raw), `"level":"DEBUG"`)
	assert.Contains(t, string(raw), `"timestamp"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	logger, err := logging.New(logging.Config{Level: "loud", Encoding: "xml"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, logging.OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, logging.OrNop(l))
}
