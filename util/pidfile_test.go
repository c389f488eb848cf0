package util_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/APTrust/transfer-services/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// No process runs with this pid; Linux caps pids at 2^22.
const exitedPid = 99999999

func workerPidFile(t *testing.T) *util.PidFile {
	return util.NewPidFile(filepath.Join(t.TempDir(), "working"), "ingest_manifest_parser")
}

func writePid(t *testing.T, pidFile *util.PidFile, pid int) {
	require.Nil(t, os.MkdirAll(filepath.Dir(pidFile.Path), 0755))
	require.Nil(t, os.WriteFile(pidFile.Path, []byte(strconv.Itoa(pid)), 0644))
}

func TestNewPidFile(t *testing.T) {
	pidFile := util.NewPidFile("/var/run/transfer", "ingest_manifest_parser")
	assert.Equal(t, "/var/run/transfer/ingest_manifest_parser.pid", pidFile.Path)
}

func TestPidFileClaimAndRelease(t *testing.T) {
	pidFile := workerPidFile(t)
	assert.Equal(t, 0, pidFile.Owner())

	stalePid, _, err := pidFile.Claim()
	require.Nil(t, err)
	assert.Equal(t, 0, stalePid)
	assert.Equal(t, os.Getpid(), pidFile.Owner())

	// Claiming again from the same process is harmless.
	_, _, err = pidFile.Claim()
	require.Nil(t, err)

	require.Nil(t, pidFile.Release())
	assert.NoFileExists(t, pidFile.Path)
	assert.Error(t, pidFile.Release())
}

func TestPidFileHeldByRunningProcess(t *testing.T) {
	pidFile := workerPidFile(t)
	writePid(t, pidFile, os.Getppid())

	_, _, err := pidFile.Claim()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest_manifest_parser is already running as pid "+strconv.Itoa(os.Getppid()))
	assert.Equal(t, os.Getppid(), pidFile.Owner())

	// Only the owner may remove it.
	assert.Error(t, pidFile.Release())
	assert.FileExists(t, pidFile.Path)
}

func TestPidFileLeftByExitedProcess(t *testing.T) {
	pidFile := workerPidFile(t)
	writePid(t, pidFile, exitedPid)
	old := time.Now().Add(-2 * time.Hour)
	require.Nil(t, os.Chtimes(pidFile.Path, old, old))

	stalePid, staleAge, err := pidFile.Claim()
	require.Nil(t, err)
	assert.Equal(t, exitedPid, stalePid)
	assert.InDelta(t, float64(2*time.Hour), float64(staleAge), float64(time.Minute))
	assert.Equal(t, os.Getpid(), pidFile.Owner())
}

func TestPidFileOwnerIgnoresGarbage(t *testing.T) {
	pidFile := workerPidFile(t)
	require.Nil(t, os.MkdirAll(filepath.Dir(pidFile.Path), 0755))
	require.Nil(t, os.WriteFile(pidFile.Path, []byte("not a pid"), 0644))
	assert.Equal(t, 0, pidFile.Owner())

	_, err := util.NewPidFile(t.TempDir(), "missing").Age()
	assert.Error(t, err)
}

func TestProcessIsRunning(t *testing.T) {
	assert.False(t, util.ProcessIsRunning(exitedPid))
	assert.True(t, util.ProcessIsRunning(os.Getpid()))
}
