package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	path := writeConfig(t, `
stateFile: ./gw/.openshift_install_state.json
installAPIURL: http://192.168.1.201:8090/api/assisted-install/v2
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Mode.SuccessThreshold)
	assert.Equal(t, 3, cfg.Mode.FailureThreshold)
	assert.Equal(t, 20*time.Minute, cfg.Mode.HandoverMaxWait)
	assert.Equal(t, 6, cfg.Diagnostics.Workers)
	assert.Equal(t, 85, cfg.Diagnostics.DiskUsagePercent)
	assert.Equal(t, 90, cfg.Diagnostics.MemoryUsagePercent)
	assert.Equal(t, "core", cfg.SSH.User)
	assert.Equal(t, 22, cfg.SSH.Port)
	assert.Contains(t, cfg.ControlPlaneOperators, "etcd")

	// Event polling must stay faster than the snapshot poll.
	assert.Less(t, cfg.Intervals.Events, cfg.Intervals.Poll)
}

func TestLoadFileStatusSeverityOverride(t *testing.T) {
	path := writeConfig(t, `
stateFile: state.json
installAPIURL: http://example.invalid/api
statusSeverities:
  installing: warning
  my-custom-status: error
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// Overridden entry wins, defaults are merged in for the rest.
	assert.Equal(t, SeverityWarning, cfg.SeverityFor("installing"))
	assert.Equal(t, SeverityError, cfg.SeverityFor("my-custom-status"))
	assert.Equal(t, SeveritySuccess, cfg.SeverityFor("ready"))
	assert.Equal(t, SeverityNeutral, cfg.SeverityFor("never-heard-of-it"))
}

func TestLoadFileValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing installAPIURL",
			content: "stateFile: state.json\n",
			wantErr: "installAPIURL",
		},
		{
			name:    "missing stateFile",
			content: "installAPIURL: http://example.invalid\n",
			wantErr: "stateFile",
		},
		{
			name: "disk threshold out of range",
			content: `
stateFile: state.json
installAPIURL: http://example.invalid
diagnostics:
  diskUsagePercent: 150
`,
			wantErr: "diskUsagePercent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadTimeoutsEnvOverride(t *testing.T) {
	t.Setenv("AGENTMON_TIMEOUT_INSTALL_API", "2s")
	t.Setenv("AGENTMON_TIMEOUT_GATHER", "garbage")

	timeouts := LoadTimeouts()

	assert.Equal(t, 2*time.Second, timeouts.InstallAPI)
	// Invalid values fall back to the default.
	assert.Equal(t, 10*time.Minute, timeouts.Gather)
	assert.Equal(t, 5, timeouts.RetryMaxAttempts)
}
