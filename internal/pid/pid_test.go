package pid_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravoegtlin/molbox-tester/internal/errors"
	"github.com/ravoegtlin/molbox-tester/internal/pid"
)

func TestWriteAndRemove(t *testing.T) {
	// Clear any leftovers from earlier runs
	require.NoError(t, pid.Remove())

	require.NoError(t, pid.Write())

	// A second claim must fail while this process is alive
	err := pid.Write()
	require.Error(t, err)
	assert.Equal(t, errors.ErrAlreadyRunning, errors.CodeOf(err))

	require.NoError(t, pid.Remove())
	require.NoError(t, pid.Write())
	require.NoError(t, pid.Remove())
}

func TestRemoveMissingFile(t *testing.T) {
	require.NoError(t, pid.Remove())
	require.NoError(t, pid.Remove())
}

func TestWriteReplacesStaleFile(t *testing.T) {
	// A PID far beyond the kernel's pid range cannot be alive
	require.NoError(t, os.WriteFile(pid.Path(), []byte("99999999"), 0o600))
	t.Cleanup(func() { os.Remove(pid.Path()) })

	require.NoError(t, pid.Write())
	require.NoError(t, pid.Remove())
}

func TestWriteReplacesCorruptFile(t *testing.T) {
	require.NoError(t, os.WriteFile(pid.Path(), []byte("not-a-pid"), 0o600))
	t.Cleanup(func() { os.Remove(pid.Path()) })

	require.NoError(t, pid.Write())
	require.NoError(t, pid.Remove())
}
