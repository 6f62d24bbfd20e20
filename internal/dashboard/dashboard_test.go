package dashboard_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/pcmonitor/internal/dashboard"
	"codeberg.org/mutker/pcmonitor/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinPollsMetrics(t *testing.T) {
	assert.Contains(t, string(dashboard.Builtin()), "fetch('/api/metrics')")
}

func TestFileOverridesBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.html")
	require.NoError(t, os.WriteFile(path, []byte("<html>custom</html>"), 0o644))

	p := dashboard.New(path, logger.Nop())
	assert.Equal(t, "<html>custom</html>", string(p.Dashboard()))

	// picked up on the next request without a restart
	require.NoError(t, os.WriteFile(path, []byte("<html>edited</html>"), 0o644))
	assert.Equal(t, "<html>edited</html>", string(p.Dashboard()))
}

func TestMissingFileFallsBack(t *testing.T) {
	p := dashboard.New(filepath.Join(t.TempDir(), "absent.html"), logger.Nop())
	assert.Equal(t, dashboard.Builtin(), p.Dashboard())

	assert.Equal(t, dashboard.Builtin(), dashboard.New("", logger.Nop()).Dashboard())
}
