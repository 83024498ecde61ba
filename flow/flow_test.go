package flow

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verikit/verikit/mount"
	"github.com/verikit/verikit/signal"
)

type fakeRemote struct {
	reachable bool
}

func (r *fakeRemote) Reachable() bool { return r.reachable }

type fakeInstaller struct {
	installs   atomic.Int32
	uninstalls atomic.Int32
	err        error
}

func (i *fakeInstaller) install(targets []string, remote mount.RemoteContext, resolvedURL string) (func(), error) {
	if i.err != nil {
		return nil, i.err
	}
	i.installs.Add(1)
	return func() { i.uninstalls.Add(1) }, nil
}

type fixture struct {
	flow      *Flow
	adapter   *mount.MemoryAdapter
	host      *mount.MemoryHost
	channel   *signal.MemoryChannel
	installer *fakeInstaller
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	host := mount.NewMemoryHost()
	fx := &fixture{
		host:      host,
		adapter:   mount.NewMemoryAdapter(host, &fakeRemote{reachable: true}),
		channel:   signal.NewMemoryChannel(),
		installer: &fakeInstaller{},
	}
	all := append([]Option{
		WithAdapter(fx.adapter),
		WithChannel(fx.channel),
		WithInstaller(fx.installer.install),
		WithProxyTargets("ethereum"),
	}, opts...)

	fl, err := New("sess-1", ServiceIndividual, all...)
	require.NoError(t, err)
	fx.flow = fl
	t.Cleanup(fl.Shutdown)
	return fx
}

func ready() signal.Message  { return signal.Message{Type: signal.Ready} }
func finish() signal.Message { return signal.Message{Type: signal.Finish} }

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		service   ServiceType
		reason    string
	}{
		{"missing session id", "", ServiceIndividual, "session id is required"},
		{"missing service", "sess-1", "", "service type is required"},
		{"unknown service", "sess-1", "household", "unsupported service type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.sessionID, tt.service)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "new", cfgErr.Op)
			assert.Contains(t, cfgErr.Reason, tt.reason)
		})
	}
}

func TestNewDefaultBaseURLPerService(t *testing.T) {
	individual, err := New("s", ServiceIndividual)
	require.NoError(t, err)
	corporate, err := New("s", ServiceCorporate)
	require.NoError(t, err)

	assert.Contains(t, individual.URL(), DefaultIndividualBaseURL)
	assert.Contains(t, corporate.URL(), DefaultCorporateBaseURL)
}

func TestInitIdempotent(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.flow.Init(DisplayOptions{Mode: ModeModal, Language: "fr"}))
	require.NoError(t, fx.flow.Init(DisplayOptions{Mode: ModeEmbed, Language: "de"}))

	// First call's options stay in effect.
	assert.Contains(t, fx.flow.URL(), "type=modal")
	assert.Contains(t, fx.flow.URL(), "lang=fr")
	assert.Equal(t, StateAwaitingReady, fx.flow.State())
}

func TestInitInvalidMode(t *testing.T) {
	fx := newFixture(t)

	err := fx.flow.Init(DisplayOptions{Mode: "popup"})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, StateUninitialized, fx.flow.State())

	// The initialization attempt is consumed: a corrected Init is a no-op.
	require.NoError(t, fx.flow.Init(DisplayOptions{Mode: ModeModal}))
	assert.Equal(t, StateUninitialized, fx.flow.State())

	fx.flow.OpenSession()
	assert.False(t, fx.flow.IsOpen())
}

func TestOpenSessionIdempotent(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.flow.Init(DisplayOptions{}))

	fx.flow.OpenSession()
	fx.flow.OpenSession()

	assert.True(t, fx.flow.IsOpen())
	assert.Equal(t, 1, fx.adapter.LastFrame().AttachCount())
	locks, _ := fx.host.Counts()
	assert.Equal(t, 1, locks)
	assert.True(t, fx.host.LayoutLocked())
}

func TestOpenSessionBeforeInit(t *testing.T) {
	fx := newFixture(t)
	fx.flow.OpenSession()
	assert.False(t, fx.flow.IsOpen())
}

func TestReadySignalModal(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.flow.Init(DisplayOptions{}))
	fx.flow.OpenSession()

	loaderAttached, _ := fx.adapter.Loader().Attached()
	require.True(t, loaderAttached)

	fx.channel.Publish(ready())

	assert.Equal(t, StateActive, fx.flow.State())
	loaderAttached, _ = fx.adapter.Loader().Attached()
	assert.False(t, loaderAttached, "loader must be removed on ready")
	assert.Equal(t, int32(1), fx.installer.installs.Load())
}

func TestDuplicateReady(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.flow.Init(DisplayOptions{}))
	fx.flow.OpenSession()

	calls := 0
	fx.flow.On(signal.Finish, func() { calls++ })

	fx.channel.Publish(ready())
	fx.channel.Publish(ready())

	// One proxy handle, and the dispatcher is not doubled: one finish signal
	// fires the callback exactly once.
	assert.Equal(t, int32(1), fx.installer.installs.Load())
	fx.channel.Publish(finish())
	assert.Equal(t, 1, calls)
}

func TestUnreachableRemoteSkipsInstall(t *testing.T) {
	host := mount.NewMemoryHost()
	adapter := mount.NewMemoryAdapter(host, &fakeRemote{reachable: false})
	installer := &fakeInstaller{}
	channel := signal.NewMemoryChannel()

	fl, err := New("sess-1", ServiceIndividual,
		WithAdapter(adapter), WithChannel(channel), WithInstaller(installer.install))
	require.NoError(t, err)
	defer fl.Shutdown()
	require.NoError(t, fl.Init(DisplayOptions{}))
	fl.OpenSession()

	channel.Publish(ready())

	assert.Equal(t, StateActive, fl.State())
	assert.Equal(t, int32(0), installer.installs.Load())
}

func TestFinishModalClosesAutomatically(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.flow.Init(DisplayOptions{}))
	fx.flow.OpenSession()
	fx.channel.Publish(ready())

	finished := false
	fx.flow.On(signal.Finish, func() { finished = true })

	fx.channel.Publish(finish())

	assert.True(t, finished)
	assert.False(t, fx.flow.IsOpen())
	assert.Equal(t, StateClosed, fx.flow.State())
	assert.False(t, fx.host.LayoutLocked(), "automatic close must restore layout")
	assert.Equal(t, int32(1), fx.installer.uninstalls.Load())
}

func TestCloseFlowRestoresLayout(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.flow.Init(DisplayOptions{}))
	fx.flow.OpenSession()
	fx.channel.Publish(ready())

	fx.flow.CloseFlow()
	fx.flow.CloseFlow() // safe when already closed

	assert.False(t, fx.flow.IsOpen())
	assert.False(t, fx.host.LayoutLocked())
	_, restores := fx.host.Counts()
	assert.Equal(t, 1, restores)
	attached, _ := fx.adapter.LastFrame().Attached()
	assert.False(t, attached)
	assert.Equal(t, int32(1), fx.installer.uninstalls.Load())
}

func TestCloseBeforeReady(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.flow.Init(DisplayOptions{}))
	fx.flow.OpenSession()

	fx.flow.CloseFlow()

	assert.False(t, fx.flow.IsOpen())
	assert.False(t, fx.host.LayoutLocked())
	assert.Equal(t, int32(0), fx.installer.uninstalls.Load(), "no proxy handle to uninstall yet")
}

func TestReopenRecomputesURL(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.flow.Init(DisplayOptions{Language: "fr"}))
	fx.flow.OpenSession()
	fx.channel.Publish(ready())
	fx.flow.CloseFlow()

	fx.flow.SetLanguage("de")
	fx.flow.SetTier(2)
	fx.flow.SetColors(Colors{Primary: "#000"})
	fx.flow.OpenSession()

	sources := fx.adapter.LastFrame().Sources()
	require.Len(t, sources, 2)
	assert.Contains(t, sources[0], "lang=fr")
	assert.Contains(t, sources[1], "lang=de")
	assert.Contains(t, sources[1], "tier=2")
	assert.Contains(t, sources[1], "primary_color=%23000")
	assert.True(t, fx.flow.IsOpen())
}

func TestRouterSurvivesClose(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.flow.Init(DisplayOptions{}))
	fx.flow.OpenSession()
	fx.channel.Publish(ready())
	fx.flow.CloseFlow()

	// Reopen: the same channel still drives the flow, and the proxy is
	// reinstalled on the next ready.
	fx.flow.OpenSession()
	fx.channel.Publish(ready())

	assert.Equal(t, StateActive, fx.flow.State())
	assert.Equal(t, int32(2), fx.installer.installs.Load())
}

func TestFinishEmbedFiresCallbackOnly(t *testing.T) {
	fx := newFixture(t, WithPollInterval(2*time.Millisecond))
	fx.host.AddMountPoint("kyc-root")
	require.NoError(t, fx.flow.Init(DisplayOptions{Mode: ModeEmbed, MountPointID: "kyc-root"}))

	require.Eventually(t, fx.flow.IsOpen, time.Second, time.Millisecond)

	finished := false
	fx.flow.On(signal.Finish, func() { finished = true })
	fx.channel.Publish(ready())
	fx.channel.Publish(finish())

	assert.True(t, finished)
	assert.True(t, fx.flow.IsOpen(), "embed mode must not auto-close on finish")
	assert.Equal(t, StateActive, fx.flow.State())
}

func TestEmbedMountPollWaitsForMountPoint(t *testing.T) {
	fx := newFixture(t, WithPollInterval(2*time.Millisecond))
	require.NoError(t, fx.flow.Init(DisplayOptions{Mode: ModeEmbed, MountPointID: "kyc-root"}))

	time.Sleep(10 * time.Millisecond)
	assert.False(t, fx.flow.IsOpen(), "must not mount before the target exists")

	fx.host.AddMountPoint("kyc-root")
	require.Eventually(t, fx.flow.IsOpen, time.Second, time.Millisecond)

	frame := fx.adapter.LastFrame()
	attached, parent := frame.Attached()
	assert.True(t, attached)
	assert.Equal(t, "kyc-root", parent)
	assert.False(t, frame.Visible(), "embed surface stays hidden until ready")
	assert.False(t, fx.host.LayoutLocked(), "embed mount must not touch page layout")

	fx.channel.Publish(ready())
	assert.True(t, frame.Visible(), "ready reveals the embed surface")
}

func TestInstallerErrorReachesHandler(t *testing.T) {
	var got error
	installErr := errors.New("remote rejected injection")

	host := mount.NewMemoryHost()
	adapter := mount.NewMemoryAdapter(host, &fakeRemote{reachable: true})
	channel := signal.NewMemoryChannel()
	installer := &fakeInstaller{err: installErr}

	fl, err := New("sess-1", ServiceIndividual,
		WithAdapter(adapter),
		WithChannel(channel),
		WithInstaller(installer.install),
		WithErrorHandler(func(err error) { got = err }),
	)
	require.NoError(t, err)
	defer fl.Shutdown()
	require.NoError(t, fl.Init(DisplayOptions{}))
	fl.OpenSession()

	channel.Publish(ready())

	require.Error(t, got)
	assert.ErrorIs(t, got, installErr)
}

func TestFinishBeforeReadyIsIgnored(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.flow.Init(DisplayOptions{}))
	fx.flow.OpenSession()

	calls := 0
	fx.flow.On(signal.Finish, func() { calls++ })
	fx.channel.Publish(finish())

	assert.Zero(t, calls, "dispatcher must not exist before the first ready")
	assert.True(t, fx.flow.IsOpen())
}

func TestCallbackLastRegistrationWins(t *testing.T) {
	fx := newFixture(t, WithPollInterval(2*time.Millisecond))
	require.NoError(t, fx.flow.Init(DisplayOptions{Mode: ModeEmbed, MountPointID: "kyc-root"}))

	first, second := 0, 0
	fx.flow.On(signal.Finish, func() { first++ })
	fx.flow.On(signal.Finish, func() { second++ })

	fx.host.AddMountPoint("kyc-root")
	require.Eventually(t, fx.flow.IsOpen, time.Second, time.Millisecond)
	fx.channel.Publish(ready())
	fx.channel.Publish(finish())

	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}

func TestGetFlow(t *testing.T) {
	fx := newFixture(t)
	assert.Nil(t, fx.flow.GetFlow())

	require.NoError(t, fx.flow.Init(DisplayOptions{Mode: ModeEmbed, MountPointID: "kyc-root"}))
	require.NotNil(t, fx.flow.GetFlow())
}
