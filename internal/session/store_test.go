package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uran124/avito-relay/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), 12)
	require.NoError(t, err)
	return store
}

func TestStorePath(t *testing.T) {
	store := newTestStore(t)

	t.Run("replaces unsafe characters", func(t *testing.T) {
		path := store.Path("u2i-abc/../../etc:passwd")
		assert.Equal(t, "u2i-abc________etc_passwd.json", filepath.Base(path))
	})

	t.Run("keeps safe identifiers", func(t *testing.T) {
		path := store.Path("chat_42-ABC")
		assert.Equal(t, "chat_42-ABC.json", filepath.Base(path))
	})
}

func TestStoreLoad(t *testing.T) {
	store := newTestStore(t)

	t.Run("missing file yields empty session", func(t *testing.T) {
		sess := store.Load("nobody")
		assert.Equal(t, model.StageStart, sess.Stage)
		assert.Empty(t, sess.History)
		assert.NotNil(t, sess.Collected)
	})

	t.Run("corrupt file yields empty session", func(t *testing.T) {
		require.NoError(t, os.WriteFile(store.Path("broken"), []byte("{not json"), 0o640))
		sess := store.Load("broken")
		assert.Equal(t, model.StageStart, sess.Stage)
		assert.Empty(t, sess.History)
	})

	t.Run("round-trips stage and collected", func(t *testing.T) {
		in := &Session{
			Stage:     "qualify",
			Collected: model.Collected{"phone": "+79161234567"},
			History:   []model.HistoryEntry{{Role: model.RoleUser, Text: "привет", Timestamp: time.Now()}},
		}
		require.NoError(t, store.Save("chat1", in))

		out := store.Load("chat1")
		assert.Equal(t, "qualify", out.Stage)
		assert.Equal(t, "+79161234567", out.Collected["phone"])
		require.Len(t, out.History, 1)
		assert.Equal(t, "привет", out.History[0].Text)
	})
}

func TestStoreHistoryCap(t *testing.T) {
	store, err := NewStore(t.TempDir(), 12)
	require.NoError(t, err)

	t.Run("evicts oldest entries first", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			_, err := store.Append("capped", model.RoleUser, string(rune('a'+i)))
			require.NoError(t, err)
		}

		sess := store.Load("capped")
		require.Len(t, sess.History, 12)
		assert.Equal(t, "i", sess.History[0].Text, "entries a..h should have been evicted")
		assert.Equal(t, "t", sess.History[11].Text)
	})

	t.Run("never exceeds the cap", func(t *testing.T) {
		sess := store.Load("capped")
		_, err := store.Append("capped", model.RoleAssistant, "one more")
		require.NoError(t, err)

		after := store.Load("capped")
		assert.Len(t, after.History, len(sess.History))
	})
}

func TestStorePruneIdle(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save("old", &Session{Stage: model.StageStart}))
	require.NoError(t, store.Save("fresh", &Session{Stage: model.StageStart}))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("old"), past, past))

	removed, err := store.PruneIdle(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(store.Path("old"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(store.Path("fresh"))
	assert.NoError(t, err)
}
