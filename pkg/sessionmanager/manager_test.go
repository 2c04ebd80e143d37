package sessionmanager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/ccswarmd/pkg/bus"
	"github.com/kadirpekel/ccswarmd/pkg/ccerrors"
	"github.com/kadirpekel/ccswarmd/pkg/checkpoint"
	"github.com/kadirpekel/ccswarmd/pkg/session"
)

func testConfig() session.Config {
	return session.Config{ShellCommand: "/bin/cat"}
}

func TestManager_CreateAndGet(t *testing.T) {
	m := New()
	s, err := m.CreateSession(context.Background(), testConfig())
	require.NoError(t, err)
	require.NotNil(t, s)

	got, ok := m.Get(s.ID())
	require.True(t, ok)
	assert.Equal(t, s.ID(), got.ID())
	assert.Equal(t, 1, m.Count())

	t.Cleanup(func() { _ = m.Remove(s.ID()) })
}

func TestManager_RestoreSession(t *testing.T) {
	m := New()
	restored, err := m.RestoreSession("fixed-id", time.Now(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", restored.ID())
	assert.Equal(t, session.StatusInitializing, restored.Status())

	_, err = m.RestoreSession("fixed-id", time.Now(), testConfig())
	assert.Error(t, err)
	kind, _ := ccerrors.KindOf(err)
	assert.Equal(t, ccerrors.AlreadyExists, kind)
}

func TestManager_Get_Missing(t *testing.T) {
	m := New()
	_, ok := m.Get("no-such-id")
	assert.False(t, ok)
}

func TestManager_ListAndListRefs(t *testing.T) {
	m := New()
	s1, err := m.CreateSession(context.Background(), testConfig())
	require.NoError(t, err)
	s2, err := m.CreateSession(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = m.Remove(s1.ID())
		_ = m.Remove(s2.ID())
	})

	ids := m.List()
	assert.ElementsMatch(t, []string{s1.ID(), s2.ID()}, ids)

	refs := m.ListRefs()
	assert.Len(t, refs, 2)
}

func TestManager_Remove_StopsSession(t *testing.T) {
	m := New()
	s, err := m.CreateSession(context.Background(), testConfig())
	require.NoError(t, err)

	require.NoError(t, m.Remove(s.ID()))
	assert.Equal(t, session.StatusTerminated, s.Status())

	_, ok := m.Get(s.ID())
	assert.False(t, ok)
}

func TestManager_Remove_Missing(t *testing.T) {
	m := New()
	assert.NoError(t, m.Remove("no-such-id"))
}

func TestManager_Remove_SavesCheckpoint(t *testing.T) {
	watch := false
	store, err := checkpoint.NewStore(&checkpoint.Config{BaseDir: t.TempDir(), Watch: &watch})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m := New()
	m.SetCheckpointStore(store)

	s, err := m.CreateSession(context.Background(), testConfig())
	require.NoError(t, err)
	s.WhiteboardSet("plan", "refactor auth")

	require.NoError(t, m.Remove(s.ID()))

	ids := store.ListForSession(s.ID())
	require.Len(t, ids, 1)
	ckpt, err := store.Load(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "auto-stop", ckpt.Label)
	assert.Contains(t, string(ckpt.State), "refactor auth")
}

func TestManager_CreateSession_WiresBus(t *testing.T) {
	b := bus.New(0, nil)
	rx := b.SubscribeTopic("coordination")

	m := New()
	m.SetBus(b)

	s, err := m.CreateSession(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Remove(s.ID()) })

	s.WhiteboardSet("status", "ready")

	select {
	case msg := <-rx:
		assert.Equal(t, bus.VariantCoordination, msg.Variant)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for whiteboard coordination message")
	}
}

func TestManager_CleanupTerminated(t *testing.T) {
	m := New()
	s1, err := m.CreateSession(context.Background(), testConfig())
	require.NoError(t, err)
	s2, err := m.CreateSession(context.Background(), testConfig())
	require.NoError(t, err)

	require.NoError(t, s1.Stop())

	removed := m.CleanupTerminated()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, m.Count())

	_, ok := m.Get(s1.ID())
	assert.False(t, ok)
	_, ok = m.Get(s2.ID())
	assert.True(t, ok)

	t.Cleanup(func() { _ = m.Remove(s2.ID()) })
}

func TestManager_ConcurrentCreateAndRemove(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.CreateSession(context.Background(), testConfig())
			require.NoError(t, err)
			ids[i] = s.ID()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, m.Count())

	wg = sync.WaitGroup{}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = m.Remove(id)
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 0, m.Count())
}
