package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uran124/avito-relay/internal/model"
	"github.com/uran124/avito-relay/internal/session"
)

type flakyStore struct {
	failGetOrCreate bool
	failAppend      bool
	appended        []string
	leads           []model.CreateLeadParams
}

func (s *flakyStore) GetOrCreate(_ context.Context, chatID string) (*model.Conversation, error) {
	if s.failGetOrCreate {
		return nil, errors.New("connection refused")
	}
	return &model.Conversation{ID: 7, ChatID: chatID, Stage: model.StageStart, Collected: model.Collected{}}, nil
}

func (s *flakyStore) AppendMessage(_ context.Context, _ *model.Conversation, _ model.Role, text string) error {
	if s.failAppend {
		return errors.New("write failed")
	}
	s.appended = append(s.appended, text)
	return nil
}

func (s *flakyStore) RecentHistory(context.Context, *model.Conversation, int) ([]model.HistoryEntry, error) {
	return nil, nil
}

func (s *flakyStore) UpdateCollected(context.Context, *model.Conversation, model.Collected) error {
	return nil
}

func (s *flakyStore) InsertLead(_ context.Context, params model.CreateLeadParams) error {
	s.leads = append(s.leads, params)
	return nil
}

func newFallbackStore(t *testing.T) *Fallback {
	t.Helper()
	sessions, err := session.NewStore(t.TempDir(), 12)
	require.NoError(t, err)
	return NewFallback(sessions)
}

func TestFailover(t *testing.T) {
	ctx := context.Background()

	t.Run("stays on primary while healthy", func(t *testing.T) {
		primary := &flakyStore{}
		f := NewFailover(primary, newFallbackStore(t))

		conv, err := f.GetOrCreate(ctx, "chat-1")
		require.NoError(t, err)
		assert.Equal(t, int64(7), conv.ID)
		assert.False(t, f.UsingFallback())

		require.NoError(t, f.AppendMessage(ctx, conv, model.RoleUser, "hello"))
		assert.Equal(t, []string{"hello"}, primary.appended)
	})

	t.Run("nil primary starts degraded", func(t *testing.T) {
		f := NewFailover(nil, newFallbackStore(t))
		assert.True(t, f.UsingFallback())

		conv, err := f.GetOrCreate(ctx, "chat-2")
		require.NoError(t, err)
		assert.Zero(t, conv.ID)
	})

	t.Run("first failure switches for the remainder of the request", func(t *testing.T) {
		primary := &flakyStore{failGetOrCreate: true}
		fb := newFallbackStore(t)
		f := NewFailover(primary, fb)

		conv, err := f.GetOrCreate(ctx, "chat-3")
		require.NoError(t, err)
		assert.True(t, f.UsingFallback())

		// Later operations go to the fallback even though primary would now succeed.
		primary.failGetOrCreate = false
		require.NoError(t, f.AppendMessage(ctx, conv, model.RoleUser, "still here"))
		assert.Empty(t, primary.appended)

		hist, err := f.RecentHistory(ctx, conv, 10)
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, "still here", hist[0].Text)
	})

	t.Run("replays the failed write on the fallback", func(t *testing.T) {
		primary := &flakyStore{failAppend: true}
		fb := newFallbackStore(t)
		f := NewFailover(primary, fb)

		conv, err := f.GetOrCreate(ctx, "chat-4")
		require.NoError(t, err)

		require.NoError(t, f.AppendMessage(ctx, conv, model.RoleUser, "не потеряй меня"))

		hist, err := f.RecentHistory(ctx, conv, 10)
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, "не потеряй меня", hist[0].Text)
	})

	t.Run("leads are dropped once degraded", func(t *testing.T) {
		primary := &flakyStore{failGetOrCreate: true}
		f := NewFailover(primary, newFallbackStore(t))

		_, err := f.GetOrCreate(ctx, "chat-5")
		require.NoError(t, err)

		err = f.InsertLead(ctx, model.CreateLeadParams{ChatID: "chat-5"})
		assert.ErrorIs(t, err, ErrLeadsUnavailable)
		assert.Empty(t, primary.leads)
	})
}

func TestFallbackStore(t *testing.T) {
	ctx := context.Background()
	fb := newFallbackStore(t)

	t.Run("update collected is a full replace", func(t *testing.T) {
		conv, err := fb.GetOrCreate(ctx, "chat-6")
		require.NoError(t, err)

		require.NoError(t, fb.UpdateCollected(ctx, conv, model.Collected{"phone": "+79160000000"}))
		require.NoError(t, fb.UpdateCollected(ctx, conv, model.Collected{"name": "Анна"}))

		again, err := fb.GetOrCreate(ctx, "chat-6")
		require.NoError(t, err)
		assert.Equal(t, model.Collected{"name": "Анна"}, again.Collected)
	})

	t.Run("history is bounded oldest-first", func(t *testing.T) {
		conv, err := fb.GetOrCreate(ctx, "chat-7")
		require.NoError(t, err)

		for i := 0; i < 15; i++ {
			require.NoError(t, fb.AppendMessage(ctx, conv, model.RoleUser, string(rune('a'+i))))
		}

		hist, err := fb.RecentHistory(ctx, conv, 50)
		require.NoError(t, err)
		require.Len(t, hist, 12)
		assert.Equal(t, "d", hist[0].Text)

		limited, err := fb.RecentHistory(ctx, conv, 3)
		require.NoError(t, err)
		require.Len(t, limited, 3)
		assert.Equal(t, "m", limited[0].Text)
		assert.Equal(t, "o", limited[2].Text)
	})
}
