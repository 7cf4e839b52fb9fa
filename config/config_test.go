package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/require"
)

func TestSyncConfigDefaults_StaleThresholdCoversHeartbeatGap(t *testing.T) {
	var cfg SyncConfig
	require.NoError(t, env.Parse(&cfg))

	// The lock heartbeats once per ProgressUpdateEvery workspaces, each of
	// which may run up to its timeout. The stale takeover threshold has to
	// sit above that gap or a live serial run gets superseded.
	widestGap := time.Duration(cfg.ProgressUpdateEvery*cfg.WorkspaceTimeoutSeconds) * time.Second
	staleThreshold := time.Duration(cfg.LockStaleMinutes) * time.Minute

	require.Greater(t, staleThreshold, widestGap)
}
