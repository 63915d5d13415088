//go:build !windows

package daemon

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_Stop(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		<-done
	})

	pf := InDir(t.TempDir())
	require.NoError(t, pf.Acquire(cmd.Process.Pid))

	pid, err := pf.Stop(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pid)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	_, running := pf.IsRunning()
	assert.False(t, running)
}
