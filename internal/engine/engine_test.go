// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatsync-tui/internal/api"
	"github.com/jeranaias/chatsync-tui/internal/model"
	"github.com/jeranaias/chatsync-tui/internal/storage"
	"github.com/jeranaias/chatsync-tui/internal/transport"
)

// =============================================================================
// FAKES
// =============================================================================

// fakeRealtime is a scripted stand-in for the WebSocket client.
type fakeRealtime struct {
	mu         sync.Mutex
	connectErr error
	sendErr    error
	connected  bool
	sent       []transport.CreateMessageRequest
}

func (f *fakeRealtime) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeRealtime) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeRealtime) SendCreate(ctx context.Context, req transport.CreateMessageRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return req.CorrelationID, nil
}

func (f *fakeRealtime) lastSent() transport.CreateMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

// fakeBackend is a scripted stand-in for the HTTP clients.
type fakeBackend struct {
	mu          sync.Mutex
	listItems   []model.ChatListItem
	listErr     error
	renameErr   error
	deleteErr   error
	messages    []model.Message
	messagesErr error
	editResult  *api.EditResult
	editErr     error
	searchErr   error

	renamed []string
	deleted []string
}

func (f *fakeBackend) ListChats(ctx context.Context) ([]model.ChatListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listItems, f.listErr
}

func (f *fakeBackend) RenameChat(ctx context.Context, chatID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renamed = append(f.renamed, chatID+"="+title)
	return f.renameErr
}

func (f *fakeBackend) DeleteChat(ctx context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, chatID)
	return f.deleteErr
}

func (f *fakeBackend) GetMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages, f.messagesErr
}

func (f *fakeBackend) EditMessage(ctx context.Context, chatID, messageID, content string) (*api.EditResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editResult, f.editErr
}

func (f *fakeBackend) Search(ctx context.Context, query string, mode model.Mode) (*api.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &api.SearchResult{Answer: "found: " + query}, nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeRealtime, *fakeBackend) {
	t.Helper()
	rt := &fakeRealtime{}
	backend := &fakeBackend{}
	cache, err := storage.NewCacheWithDir(t.TempDir(), true)
	require.NoError(t, err)
	return New(rt, backend, cache), rt, backend
}

// completedFor builds an authoritative completion payload for a turn.
func completedFor(messageID, chatID string, first bool, title string, mode model.Mode) transport.CompletedEvent {
	user := model.Message{
		ID: "srv_u_" + messageID, ChatID: chatID, Role: model.RoleUser, Mode: mode,
		Versions: []model.MessageVersion{{Content: "Hello"}},
	}
	assistant := model.Message{
		ID: "srv_a_" + messageID, ChatID: chatID, Role: model.RoleAssistant, Mode: mode,
		Versions: []model.MessageVersion{{Content: "Hi there"}},
	}
	return transport.CompletedEvent{
		MessageID: messageID,
		Data: &transport.CompletedData{
			ChatID:           chatID,
			UserMessage:      &user,
			AssistantMessage: &assistant,
			IsFirstMessage:   first,
			Title:            title,
		},
	}
}

// =============================================================================
// TURN LIFECYCLE TESTS
// =============================================================================

func TestEngine_SendMessage_FullTurnScenario(t *testing.T) {
	eng, rt, _ := newTestEngine(t)

	// Send "Hello" to a null chat: a temp chat appears with the
	// optimistic user message and typing goes on.
	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))

	snap := eng.Snapshot()
	require.Len(t, snap.Chats, 1)
	tempID := snap.CurrentChatID
	temp := snap.Chats[tempID]
	require.NotNil(t, temp)
	require.True(t, temp.IsTemporary)
	require.Len(t, temp.Messages, 1)
	require.Equal(t, "Hello", temp.Messages[0].Content())
	require.Equal(t, model.StatusTemporary, temp.Messages[0].Status)
	require.True(t, snap.IsAssistantTyping)

	// A new-chat send carries no chat id on the wire.
	require.Nil(t, rt.lastSent().ChatID)

	// Completion promotes the temp session to the server id.
	turnID := rt.lastSent().CorrelationID
	eng.HandleCompleted(completedFor(turnID, "c1", true, "Greeting", model.ModeDefault))

	snap = eng.Snapshot()
	require.NotContains(t, snap.Chats, tempID)
	require.Contains(t, snap.Chats, "c1")
	require.Equal(t, "c1", snap.CurrentChatID)
	require.False(t, snap.IsAssistantTyping)

	chat := snap.Chats["c1"]
	require.Equal(t, "Greeting", chat.Title)
	require.False(t, chat.IsTemporary)
	require.Len(t, chat.Messages, 2)
	require.Equal(t, model.RoleUser, chat.Messages[0].Role)
	require.Equal(t, model.RoleAssistant, chat.Messages[1].Role)
}

func TestEngine_HandleCompleted_Idempotent(t *testing.T) {
	eng, rt, _ := newTestEngine(t)

	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))
	ev := completedFor(rt.lastSent().CorrelationID, "c1", true, "Greeting", model.ModeDefault)

	eng.HandleCompleted(ev)
	once := eng.Snapshot().Chats["c1"].Messages

	eng.HandleCompleted(ev)
	twice := eng.Snapshot().Chats["c1"].Messages

	require.Equal(t, len(once), len(twice))
	require.Len(t, twice, 2)
	for i := range once {
		require.Equal(t, once[i].ID, twice[i].ID)
	}
}

func TestEngine_TempPromotionUniqueness(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	countTemp := func() int {
		n := 0
		for _, s := range eng.Snapshot().Chats {
			if s.IsTemporary {
				n++
			}
		}
		return n
	}

	eng.CreateTempChat()
	require.Equal(t, 1, countTemp())

	// Creating another temp chat replaces the first.
	eng.CreateTempChat()
	require.Equal(t, 1, countTemp())
	require.Len(t, eng.Snapshot().Chats, 1)
}

func TestEngine_StreamingThenCompletionReplace(t *testing.T) {
	eng, rt, _ := newTestEngine(t)

	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))
	turnID := rt.lastSent().CorrelationID

	eng.HandleChunk(transport.ChunkEvent{MessageID: turnID, FullContent: "Hel", ChunkIndex: 0})
	eng.HandleChunk(transport.ChunkEvent{MessageID: turnID, FullContent: "Hello there", ChunkIndex: 1})

	snap := eng.Snapshot()
	require.Equal(t, turnID, snap.StreamingMessageID)
	require.Equal(t, "Hello there", snap.StreamingContent)
	chat := snap.CurrentChat()
	require.NotNil(t, chat)
	idx := chat.FindStreaming()
	require.GreaterOrEqual(t, idx, 0)
	require.Equal(t, "Hello there", chat.Messages[idx].Content())

	// Completion carries a different final assistant id; the placeholder
	// must be gone and exactly one assistant message remain.
	eng.HandleCompleted(completedFor(turnID, "c1", true, "Greeting", model.ModeDefault))

	snap = eng.Snapshot()
	chat = snap.Chats["c1"]
	require.NotNil(t, chat)
	assistants := 0
	for _, m := range chat.Messages {
		require.Equal(t, model.StatusNone, m.Status)
		if m.Role == model.RoleAssistant {
			assistants++
		}
	}
	require.Equal(t, 1, assistants)
	require.Empty(t, snap.StreamingMessageID)
	require.Empty(t, snap.StreamingContent)
}

func TestEngine_ErrorReplacesOptimisticState(t *testing.T) {
	eng, rt, _ := newTestEngine(t)
	rt.sendErr = errors.New("request timeout")

	err := eng.SendMessage(context.Background(), "", "hi")
	require.Error(t, err)

	snap := eng.Snapshot()
	chat := snap.CurrentChat()
	require.NotNil(t, chat)
	require.Len(t, chat.Messages, 1)
	require.True(t, chat.Messages[0].IsErrorBubble())
	for _, m := range chat.Messages {
		require.NotEqual(t, model.StatusTemporary, m.Status)
	}
	require.False(t, snap.IsAssistantTyping)
	require.NotEmpty(t, snap.Error)
}

func TestEngine_ConnectFailureAbortsBeforeSend(t *testing.T) {
	eng, rt, _ := newTestEngine(t)
	rt.connectErr = errors.New("handshake refused")

	err := eng.SendMessage(context.Background(), "", "hi")
	require.Error(t, err)
	require.Empty(t, rt.sent, "backend must not be contacted when the connection fails")

	snap := eng.Snapshot()
	require.True(t, snap.WSError)
	chat := snap.CurrentChat()
	require.NotNil(t, chat)
	require.Len(t, chat.Messages, 1)
	require.True(t, chat.Messages[0].IsErrorBubble())
}

func TestEngine_LateProgressAfterCompletionIsNoOp(t *testing.T) {
	eng, rt, _ := newTestEngine(t)

	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))
	turnID := rt.lastSent().CorrelationID

	eng.HandleProgress(transport.ProgressEvent{MessageID: turnID,
		Details: transport.ProgressDetails{Stage: "retrieval", Title: "Searching"}})
	require.Contains(t, eng.Snapshot().MessageProgress, turnID)

	eng.HandleCompleted(completedFor(turnID, "c1", true, "Greeting", model.ModeDefault))

	// The turn is settled: late progress and chunks must not
	// reintroduce indicator state or resurrect the placeholder.
	eng.HandleProgress(transport.ProgressEvent{MessageID: turnID,
		Details: transport.ProgressDetails{Stage: "generation"}})
	eng.HandleChunk(transport.ChunkEvent{MessageID: turnID, FullContent: "zombie"})

	snap := eng.Snapshot()
	require.NotContains(t, snap.MessageProgress, turnID)
	require.Empty(t, snap.StreamingMessageID)
	require.Equal(t, -1, snap.Chats["c1"].FindStreaming())
}

func TestEngine_ModePropagation(t *testing.T) {
	eng, rt, _ := newTestEngine(t)
	eng.SetMode(model.ModeNews)

	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))
	snap := eng.Snapshot()
	require.Equal(t, model.ModeNews, snap.CurrentChat().Mode)
	require.Equal(t, model.ModeNews, rt.lastSent().Mode)

	// Backend omits the mode on both messages; the session mode wins.
	eng.HandleCompleted(completedFor(rt.lastSent().CorrelationID, "c1", true, "T", ""))

	chat := eng.Snapshot().Chats["c1"]
	require.Equal(t, model.ModeNews, chat.Mode)
	require.Equal(t, model.ModeNews, chat.Messages[0].Mode)
	require.Equal(t, model.ModeNews, chat.Messages[1].Mode)
}

func TestEngine_SendMessage_RemovesPriorErrorBubble(t *testing.T) {
	eng, rt, _ := newTestEngine(t)

	// First turn fails and leaves an error bubble.
	rt.sendErr = errors.New("boom")
	require.Error(t, eng.SendMessage(context.Background(), "", "hi"))
	chatID := eng.Snapshot().CurrentChatID

	// Second attempt must not show the stale bubble alongside the new
	// optimistic insert.
	rt.mu.Lock()
	rt.sendErr = nil
	rt.mu.Unlock()
	require.NoError(t, eng.SendMessage(context.Background(), chatID, "hi again"))

	chat := eng.Snapshot().CurrentChat()
	require.Len(t, chat.Messages, 1)
	require.Equal(t, "hi again", chat.Messages[0].Content())
	require.False(t, chat.Messages[0].IsErrorBubble())
}

func TestEngine_CancelInFlight_CompletionStillAbsorbed(t *testing.T) {
	eng, rt, _ := newTestEngine(t)

	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))
	turnID := rt.lastSent().CorrelationID
	eng.HandleChunk(transport.ChunkEvent{MessageID: turnID, FullContent: "partial"})

	eng.CancelInFlight()
	snap := eng.Snapshot()
	require.False(t, snap.IsAssistantTyping)
	require.Empty(t, snap.StreamingMessageID)

	// Chunks for the cancelled turn are retired...
	eng.HandleChunk(transport.ChunkEvent{MessageID: turnID, FullContent: "more"})
	require.Empty(t, eng.Snapshot().StreamingMessageID)

	// ...but the completion is still absorbed harmlessly.
	eng.HandleCompleted(completedFor(turnID, "c1", true, "Greeting", model.ModeDefault))
	chat := eng.Snapshot().Chats["c1"]
	require.NotNil(t, chat)
	require.Len(t, chat.Messages, 2)
}

func TestEngine_HandleCompleted_MalformedIsNoOp(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	eng.CreateTempChat()
	before := len(eng.Snapshot().Chats)

	eng.HandleCompleted(transport.CompletedEvent{MessageID: "m1"})
	eng.HandleCompleted(transport.CompletedEvent{MessageID: "m1",
		Data: &transport.CompletedData{ChatID: "c1"}})

	require.Equal(t, before, len(eng.Snapshot().Chats))
}

func TestEngine_HandleError_ClearsTurnState(t *testing.T) {
	eng, rt, _ := newTestEngine(t)

	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))
	turnID := rt.lastSent().CorrelationID
	eng.HandleChunk(transport.ChunkEvent{MessageID: turnID, FullContent: "part"})

	eng.HandleError(transport.ErrorEvent{MessageID: turnID,
		Error: &transport.ErrorDetail{Message: "model overloaded"}})

	snap := eng.Snapshot()
	require.Equal(t, "model overloaded", snap.Error)
	require.False(t, snap.IsAssistantTyping)
	require.Empty(t, snap.StreamingMessageID)
	require.NotContains(t, snap.MessageProgress, turnID)

	// The turn is retired: further chunks are dropped.
	eng.HandleChunk(transport.ChunkEvent{MessageID: turnID, FullContent: "late"})
	require.Empty(t, eng.Snapshot().StreamingMessageID)
}

// =============================================================================
// CHAT COMMAND TESTS
// =============================================================================

func TestEngine_RenameChat(t *testing.T) {
	eng, rt, backend := newTestEngine(t)

	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))
	eng.HandleCompleted(completedFor(rt.lastSent().CorrelationID, "c1", true, "Old", model.ModeDefault))

	require.NoError(t, eng.RenameChat(context.Background(), "c1", "New title"))
	require.Equal(t, "New title", eng.Snapshot().Chats["c1"].Title)
	require.Equal(t, []string{"c1=New title"}, backend.renamed)

	// Failure leaves state untouched.
	backend.mu.Lock()
	backend.renameErr = errors.New("denied")
	backend.mu.Unlock()
	require.Error(t, eng.RenameChat(context.Background(), "c1", "Other"))
	require.Equal(t, "New title", eng.Snapshot().Chats["c1"].Title)
	require.NotEmpty(t, eng.Snapshot().Error)
}

func TestEngine_DeleteChat(t *testing.T) {
	eng, rt, backend := newTestEngine(t)

	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))
	eng.HandleCompleted(completedFor(rt.lastSent().CorrelationID, "c1", true, "T", model.ModeDefault))
	require.Equal(t, "c1", eng.Snapshot().CurrentChatID)

	require.NoError(t, eng.DeleteChat(context.Background(), "c1"))
	snap := eng.Snapshot()
	require.NotContains(t, snap.Chats, "c1")
	require.Empty(t, snap.CurrentChatID, "deleting the active chat clears the pointer")
	require.Equal(t, []string{"c1"}, backend.deleted)
}

func TestEngine_DeleteChat_TemporarySkipsBackend(t *testing.T) {
	eng, _, backend := newTestEngine(t)

	tempID := eng.CreateTempChat()
	require.NoError(t, eng.DeleteChat(context.Background(), tempID))
	require.Empty(t, backend.deleted)
	require.NotContains(t, eng.Snapshot().Chats, tempID)
}

func TestEngine_LoadChat_FailureAddsErrorBubble(t *testing.T) {
	eng, _, backend := newTestEngine(t)
	backend.messagesErr = errors.New("server unavailable")

	require.Error(t, eng.LoadChat(context.Background(), "c1"))

	snap := eng.Snapshot()
	require.NotEmpty(t, snap.Error)
	chat := snap.Chats["c1"]
	require.NotNil(t, chat)
	require.Len(t, chat.Messages, 1)
	require.True(t, chat.Messages[0].IsErrorBubble())
}

func TestEngine_LoadChat_ReplacesMessages(t *testing.T) {
	eng, _, backend := newTestEngine(t)
	backend.messages = []model.Message{
		{ID: "m1", ChatID: "c1", Role: model.RoleUser,
			Versions: []model.MessageVersion{{Content: "q"}}},
		{ID: "m2", ChatID: "c1", Role: model.RoleAssistant,
			Versions: []model.MessageVersion{{Content: "a"}}},
	}

	require.NoError(t, eng.LoadChat(context.Background(), "c1"))
	chat := eng.Snapshot().Chats["c1"]
	require.Len(t, chat.Messages, 2)
	require.Equal(t, model.ModeDefault, chat.Messages[0].Mode, "missing modes are filled in")
}

func TestEngine_RefreshHistory(t *testing.T) {
	eng, _, backend := newTestEngine(t)
	backend.listItems = []model.ChatListItem{{ID: "c1", Title: "One"}}

	eng.RefreshHistory(context.Background())
	snap := eng.Snapshot()
	require.True(t, snap.HasHydrated)
	require.Len(t, snap.History, 1)
}

// =============================================================================
// EDIT TESTS
// =============================================================================

func TestEngine_EditMessage(t *testing.T) {
	eng, rt, backend := newTestEngine(t)

	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))
	turnID := rt.lastSent().CorrelationID
	eng.HandleCompleted(completedFor(turnID, "c1", true, "T", model.ModeNews))

	userID := "srv_u_" + turnID
	backend.editResult = &api.EditResult{
		EditedUserMessage: &model.Message{ID: userID, Role: model.RoleUser,
			Versions:            []model.MessageVersion{{Content: "Hello"}, {Content: "Hello, revised"}},
			CurrentVersionIndex: 1},
		NewAssistantMessage: &model.Message{ID: "srv_a2", Role: model.RoleAssistant,
			Versions: []model.MessageVersion{{Content: "Revised answer"}}},
		Sources: []model.Source{{Title: "ref", URL: "https://example.com"}},
	}

	require.NoError(t, eng.EditMessage(context.Background(), userID, "Hello, revised"))

	chat := eng.Snapshot().Chats["c1"]
	require.Len(t, chat.Messages, 2)
	require.Equal(t, "Hello, revised", chat.Messages[0].Content())
	require.Equal(t, "Revised answer", chat.Messages[1].Content())
	require.Equal(t, "srv_a2", chat.Messages[1].ID)
	require.Len(t, chat.Messages[1].Sources, 1)
	// Backend omitted modes; the session mode is inherited.
	require.Equal(t, model.ModeNews, chat.Messages[0].Mode)
	require.Equal(t, model.ModeNews, chat.Messages[1].Mode)
}

func TestEngine_EditMessage_FailureLeavesStateUntouched(t *testing.T) {
	eng, rt, backend := newTestEngine(t)

	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))
	turnID := rt.lastSent().CorrelationID
	eng.HandleCompleted(completedFor(turnID, "c1", true, "T", model.ModeDefault))
	before := eng.Snapshot().Chats["c1"].Messages

	backend.editErr = errors.New("edit rejected")
	require.Error(t, eng.EditMessage(context.Background(), "srv_u_"+turnID, "nope"))

	after := eng.Snapshot().Chats["c1"].Messages
	require.Equal(t, len(before), len(after))
	for i := range before {
		require.Equal(t, before[i].Content(), after[i].Content())
	}
	require.NotEmpty(t, eng.Snapshot().Error)
}

func TestEngine_EditMessage_UnknownMessage(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	err := eng.EditMessage(context.Background(), "ghost", "x")
	require.ErrorIs(t, err, ErrMessageNotFound)
}

// =============================================================================
// STATE COMMAND TESTS
// =============================================================================

func TestEngine_SetMode_Persists(t *testing.T) {
	rt := &fakeRealtime{}
	backend := &fakeBackend{}
	dir := t.TempDir()
	cache, err := storage.NewCacheWithDir(dir, true)
	require.NoError(t, err)

	eng := New(rt, backend, cache)
	eng.SetMode(model.ModeLaw)
	require.Equal(t, model.ModeLaw, eng.ModePreference())

	// A fresh engine over the same cache picks the preference up.
	cache2, err := storage.NewCacheWithDir(dir, true)
	require.NoError(t, err)
	eng2 := New(rt, backend, cache2)
	require.Equal(t, model.ModeLaw, eng2.ModePreference())
}

func TestEngine_ClearError(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	eng.setError("boom")
	require.NotEmpty(t, eng.Snapshot().Error)

	eng.ClearError()
	snap := eng.Snapshot()
	require.Empty(t, snap.Error)
	require.False(t, snap.WSError)
}

func TestEngine_ClearAll(t *testing.T) {
	eng, rt, backend := newTestEngine(t)
	// Keep the async post-completion refresh from hydrating history
	// behind this test's back.
	backend.listErr = errors.New("offline")
	require.NoError(t, eng.SendMessage(context.Background(), "", "Hello"))
	eng.HandleCompleted(completedFor(rt.lastSent().CorrelationID, "c1", true, "T", model.ModeDefault))

	eng.ClearAll()
	snap := eng.Snapshot()
	require.Empty(t, snap.Chats)
	require.Empty(t, snap.CurrentChatID)
	require.Empty(t, snap.History)
	require.False(t, snap.HasHydrated)
}

func TestEngine_ConnectionMetaEvents(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	eng.HandleConnect()
	require.True(t, eng.Connected())

	eng.HandleDisconnect("server going away")
	snap := eng.Snapshot()
	require.False(t, snap.Connected)
	require.True(t, snap.WSError)
}

func TestEngine_OnChangeFires(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	var mu sync.Mutex
	fired := 0
	eng.SetOnChange(func() {
		mu.Lock()
		fired++
		// The callback must be able to read a snapshot without
		// deadlocking.
		_ = eng.Snapshot()
		mu.Unlock()
	})

	eng.CreateTempChat()
	mu.Lock()
	defer mu.Unlock()
	require.Greater(t, fired, 0)
}

func TestEngine_SnapshotIsDeepCopy(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	id := eng.CreateTempChat()

	snap := eng.Snapshot()
	snap.Chats[id].Title = "mutated"
	snap.Chats[id].Messages = append(snap.Chats[id].Messages,
		model.NewUserMessage(id, "sneaky", model.ModeDefault))

	fresh := eng.Snapshot()
	require.Empty(t, fresh.Chats[id].Title)
	require.Empty(t, fresh.Chats[id].Messages)
}

func TestEngine_SendMessage_EmptyContent(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	err := eng.SendMessage(context.Background(), "", "   ")
	require.ErrorIs(t, err, ErrEmptyContent)
	require.Empty(t, eng.Snapshot().Chats)
}

func TestEngine_Search(t *testing.T) {
	eng, _, backend := newTestEngine(t)

	result, err := eng.Search(context.Background(), "generics")
	require.NoError(t, err)
	require.Equal(t, "found: generics", result.Answer)

	backend.mu.Lock()
	backend.searchErr = errors.New("search down")
	backend.mu.Unlock()
	_, err = eng.Search(context.Background(), "x")
	require.Error(t, err)
	require.NotEmpty(t, eng.Snapshot().Error)
}
