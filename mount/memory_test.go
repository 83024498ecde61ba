package mount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySurfaceAttachValidatesParent(t *testing.T) {
	host := NewMemoryHost()
	adapter := NewMemoryAdapter(host, nil)
	frame := adapter.NewFrame()

	require.Error(t, frame.Attach("missing"), "unknown mount point must fail")

	host.AddMountPoint("widget-root")
	require.NoError(t, frame.Attach("widget-root"))

	mem := adapter.LastFrame()
	attached, parent := mem.Attached()
	assert.True(t, attached)
	assert.Equal(t, "widget-root", parent)
	assert.Equal(t, 1, mem.AttachCount())

	// Root attach always succeeds.
	require.NoError(t, frame.Attach(""))
}

func TestMemorySurfaceRecordsSources(t *testing.T) {
	adapter := NewMemoryAdapter(nil, nil)
	frame := adapter.NewFrame()

	frame.SetSource("https://a")
	frame.SetSource("https://b")

	mem := adapter.LastFrame()
	assert.Equal(t, "https://b", mem.Source())
	assert.Equal(t, []string{"https://a", "https://b"}, mem.Sources())
}

func TestMemoryHostLayoutCounts(t *testing.T) {
	host := NewMemoryHost()

	host.LockLayout()
	assert.True(t, host.LayoutLocked())

	host.RestoreLayout()
	host.RestoreLayout() // restoring an unlocked layout is safe
	assert.False(t, host.LayoutLocked())

	locks, restores := host.Counts()
	assert.Equal(t, 1, locks)
	assert.Equal(t, 2, restores)
}

func TestMemoryFrameRemote(t *testing.T) {
	adapter := NewMemoryAdapter(nil, nil)
	assert.Nil(t, adapter.NewFrame().Remote())
}
