package proxy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verikit/verikit/mount"
)

type stubRemote struct {
	reachable bool
}

func (r *stubRemote) Reachable() bool { return r.reachable }

func TestInstallKeepsSingleHandle(t *testing.T) {
	installs, uninstalls := 0, 0
	var gotTargets []string
	var gotURL string

	mgr := NewManager(func(targets []string, remote mount.RemoteContext, resolvedURL string) (func(), error) {
		installs++
		gotTargets = targets
		gotURL = resolvedURL
		return func() { uninstalls++ }, nil
	}, "ethereum", "solana")

	remote := &stubRemote{reachable: true}
	require.NoError(t, mgr.Install(remote, "https://verify.example/v?session_id=s"))
	require.NoError(t, mgr.Install(remote, "https://verify.example/v?session_id=s"))

	assert.Equal(t, 1, installs, "second install with an active handle must be a no-op")
	assert.Equal(t, []string{"ethereum", "solana"}, gotTargets)
	assert.Equal(t, "https://verify.example/v?session_id=s", gotURL)
	assert.True(t, mgr.Active())

	mgr.Uninstall()
	assert.Equal(t, 1, uninstalls)
	assert.False(t, mgr.Active())

	mgr.Uninstall() // no-op without a handle
	assert.Equal(t, 1, uninstalls)
}

func TestInstallSkipsUnreachableRemote(t *testing.T) {
	installs := 0
	mgr := NewManager(func([]string, mount.RemoteContext, string) (func(), error) {
		installs++
		return func() {}, nil
	})

	require.NoError(t, mgr.Install(&stubRemote{reachable: false}, "u"))
	require.NoError(t, mgr.Install(nil, "u"))

	assert.Zero(t, installs)
	assert.False(t, mgr.Active())
}

func TestInstallWithoutInstaller(t *testing.T) {
	mgr := NewManager(nil)
	require.NoError(t, mgr.Install(&stubRemote{reachable: true}, "u"))
	assert.False(t, mgr.Active())
}

func TestInstallErrorPropagates(t *testing.T) {
	boom := errors.New("injection blocked")
	mgr := NewManager(func([]string, mount.RemoteContext, string) (func(), error) {
		return nil, boom
	})

	err := mgr.Install(&stubRemote{reachable: true}, "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, mgr.Active(), "failed install must not leave a handle")

	// Not retried here; the next attempt simply runs the installer again.
	assert.Error(t, mgr.Install(&stubRemote{reachable: true}, "u"))
}
