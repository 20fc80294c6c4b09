package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app_errors "intellimind/backend/internal/errors"
	mock_llm "intellimind/backend/internal/llm/mocks"
	"intellimind/backend/internal/repository"
	"intellimind/backend/internal/service"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	store, _ := newFileStore(t)
	client := mock_llm.NewMockClient(t)
	registry := service.NewRegistry(store, service.SessionConfig{LLM: client}, time.Minute)

	t.Run("Open, get and close", func(t *testing.T) {
		info, err := registry.OpenSession(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, info.ID)
		assert.Equal(t, service.StateIdle, info.State)

		sess, err := registry.Get(info.ID)
		require.NoError(t, err)
		assert.Equal(t, info.ID, sess.ID())

		require.NoError(t, registry.CloseSession(ctx, info.ID))
		_, err = registry.SessionInfo(ctx, info.ID)
		assert.ErrorIs(t, err, app_errors.ErrNotFound)
		assert.ErrorIs(t, registry.CloseSession(ctx, info.ID), app_errors.ErrNotFound)
	})

	t.Run("Sessions keep separate active chats", func(t *testing.T) {
		a := registry.Open(ctx)
		b := registry.Open(ctx)
		chat, err := store.CreateChat(ctx, "shared")
		require.NoError(t, err)

		require.NoError(t, registry.SwitchTo(ctx, a.ID(), chat.ID))
		assert.Equal(t, chat.ID, a.ActiveChatID())
		assert.NotEqual(t, chat.ID, b.ActiveChatID())

		client.On("Complete", mock.Anything, mock.Anything).Return("hi", nil).Once()
		result, err := registry.Submit(ctx, a.ID(), service.SubmitRequest{Content: "hello"})
		require.NoError(t, err)
		assert.Equal(t, chat.ID, result.Chat.ID)

		require.NoError(t, registry.DeleteChat(ctx, a.ID(), chat.ID))
		info, err := registry.SessionInfo(ctx, a.ID())
		require.NoError(t, err)
		assert.Empty(t, info.ActiveChatID)
		assert.Equal(t, 1, info.Stats.AssistantMessages)
	})

	t.Run("Deleting a chat from the store clears every session pointing at it", func(t *testing.T) {
		chat, err := store.CreateChat(ctx, "doomed")
		require.NoError(t, err)
		a := registry.Open(ctx)
		b := registry.Open(ctx)
		require.Equal(t, chat.ID, a.ActiveChatID())
		require.Equal(t, chat.ID, b.ActiveChatID())

		require.NoError(t, store.DeleteChat(ctx, chat.ID))

		for _, id := range []string{a.ID(), b.ID()} {
			info, err := registry.SessionInfo(ctx, id)
			require.NoError(t, err)
			assert.Empty(t, info.ActiveChatID)
		}
	})

	t.Run("Unknown session", func(t *testing.T) {
		_, err := registry.Submit(ctx, "nope", service.SubmitRequest{Content: "x"})
		assert.ErrorIs(t, err, app_errors.ErrNotFound)
		assert.ErrorIs(t, registry.SwitchTo(ctx, "nope", "c"), app_errors.ErrNotFound)
		assert.ErrorIs(t, registry.RecordFeedback(ctx, "nope", "c", 3, ""), app_errors.ErrNotFound)
	})
}

func TestRegistry_Sweep(t *testing.T) {
	store, _ := newFileStore(t)
	registry := service.NewRegistry(store, service.SessionConfig{LLM: mock_llm.NewMockClient(t)}, time.Minute)

	sess := registry.Open(context.Background())

	assert.Equal(t, 0, registry.Sweep(time.Now()))
	assert.Equal(t, 1, registry.Sweep(time.Now().Add(2*time.Minute)))

	_, err := registry.Get(sess.ID())
	assert.ErrorIs(t, err, app_errors.ErrNotFound)
}

// TestRegistry_ShutdownWaitsForTurns checks that a turn still waiting on the
// model when shutdown starts gets its messages persisted.
func TestRegistry_ShutdownWaitsForTurns(t *testing.T) {
	ctx := context.Background()
	store, path := newFileStore(t)
	client := mock_llm.NewMockClient(t)
	registry := service.NewRegistry(store, service.SessionConfig{LLM: client}, time.Minute)
	sess := registry.Open(ctx)

	started := make(chan struct{})
	release := make(chan struct{})
	client.On("Complete", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return("late answer", nil).Once()

	turnDone := make(chan error, 1)
	go func() {
		_, err := registry.Submit(ctx, sess.ID(), service.SubmitRequest{Content: "still there?"})
		turnDone <- err
	}()
	<-started

	shutdownDone := make(chan struct{})
	go func() {
		registry.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		t.Fatal("Shutdown returned while a turn was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	_, err := registry.Submit(ctx, sess.ID(), service.SubmitRequest{Content: "too late"})
	assert.ErrorIs(t, err, app_errors.ErrInvalidState)

	close(release)
	require.NoError(t, <-turnDone)
	<-shutdownDone

	chats, err := repository.NewJSONFileRepository(path).Load(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	for _, chat := range chats {
		require.Len(t, chat.Messages, 2)
		assert.Equal(t, "late answer", chat.Messages[1].Content)
	}
}
