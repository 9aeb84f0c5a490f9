// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jeranaias/chatsync-tui/internal/model"
)

// staticToken is a stub token source.
type staticToken string

func (t staticToken) Token() string { return string(t) }

// respond writes a success envelope around data.
func respond(w http.ResponseWriter, data any) {
	raw, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(envelope{Success: true, Message: "ok", Data: raw})
}

// respondError writes a failure envelope with the given status.
func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Message: message})
}

func newTestAPIClient(srv *httptest.Server) *Client {
	return NewClient(&Config{BaseURL: srv.URL}, staticToken("tok123"))
}

// =============================================================================
// ENVELOPE TESTS
// =============================================================================

func TestClient_SetsAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		respond(w, []model.ChatListItem{})
	}))
	defer srv.Close()

	client := newTestAPIClient(srv)
	if _, err := client.ListChats(context.Background()); err != nil {
		t.Fatalf("ListChats() error = %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want Bearer tok123", gotAuth)
	}
}

func TestClient_EnvelopeFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 but success=false must still surface as an error.
		json.NewEncoder(w).Encode(envelope{Success: false, Message: "chat quota exceeded"})
	}))
	defer srv.Close()

	client := newTestAPIClient(srv)
	_, err := client.ListChats(context.Background())
	if err == nil {
		t.Fatal("ListChats() succeeded on success=false envelope")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.Message != "chat quota exceeded" {
		t.Errorf("message = %q, want backend message preserved", apiErr.Message)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, want: ErrUnauthorized},
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, want: ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				respondError(w, tt.status, "nope")
			}))
			defer srv.Close()

			client := newTestAPIClient(srv)
			_, err := client.ListChats(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// =============================================================================
// CHAT CRUD TESTS
// =============================================================================

func TestClient_CreateChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chats" {
			t.Errorf("request = %s %s, want POST /api/chats", r.Method, r.URL.Path)
		}
		var req createChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Mode != model.ModeNews {
			t.Errorf("mode = %q, want news", req.Mode)
		}
		respond(w, model.ChatListItem{ID: "chat_1", Title: req.Title, Mode: req.Mode})
	}))
	defer srv.Close()

	client := newTestAPIClient(srv)
	item, err := client.CreateChat(context.Background(), "Research", model.ModeNews)
	if err != nil {
		t.Fatalf("CreateChat() error = %v", err)
	}
	if item.ID != "chat_1" || item.Title != "Research" {
		t.Errorf("CreateChat() = %+v, want id chat_1 title Research", item)
	}
}

func TestClient_RenameAndDeleteChat(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		respond(w, nil)
	}))
	defer srv.Close()

	client := newTestAPIClient(srv)

	if err := client.RenameChat(context.Background(), "chat_1", "New title"); err != nil {
		t.Fatalf("RenameChat() error = %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/api/chats/chat_1" {
		t.Errorf("rename request = %s %s, want PATCH /api/chats/chat_1", gotMethod, gotPath)
	}

	if err := client.DeleteChat(context.Background(), "chat_1"); err != nil {
		t.Fatalf("DeleteChat() error = %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/chats/chat_1" {
		t.Errorf("delete request = %s %s, want DELETE /api/chats/chat_1", gotMethod, gotPath)
	}
}

func TestClient_GetMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chats/chat_1/messages" {
			t.Errorf("path = %s, want /api/chats/chat_1/messages", r.URL.Path)
		}
		respond(w, []model.Message{
			{ID: "m1", ChatID: "chat_1", Role: model.RoleUser,
				Versions: []model.MessageVersion{{Content: "hi"}}},
			{ID: "m2", ChatID: "chat_1", Role: model.RoleAssistant,
				Versions: []model.MessageVersion{{Content: "hello"}}},
		})
	}))
	defer srv.Close()

	client := newTestAPIClient(srv)
	messages, err := client.GetMessages(context.Background(), "chat_1")
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("GetMessages() = %d messages, want 2", len(messages))
	}
	if messages[1].Content() != "hello" {
		t.Errorf("second message = %q, want hello", messages[1].Content())
	}
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestClient_CreateMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/messages" {
			t.Errorf("path = %s, want /api/messages", r.URL.Path)
		}
		respond(w, TurnResult{
			ChatID:           "chat_9",
			UserMessage:      &model.Message{ID: "u1", Versions: []model.MessageVersion{{Content: "q"}}},
			AssistantMessage: &model.Message{ID: "a1", Versions: []model.MessageVersion{{Content: "ans"}}},
			IsFirstMessage:   true,
			Title:            "Generated title",
		})
	}))
	defer srv.Close()

	client := newTestAPIClient(srv)
	result, err := client.CreateMessage(context.Background(), "q", model.ModeDefault)
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	if result.ChatID != "chat_9" || !result.IsFirstMessage {
		t.Errorf("result = %+v, want chat_9 first message", result)
	}
	if result.AssistantMessage == nil || result.AssistantMessage.Content() != "ans" {
		t.Error("assistant message did not round-trip")
	}
}

func TestClient_EditMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/chats/chat_1/messages/m1" {
			t.Errorf("request = %s %s, want PUT /api/chats/chat_1/messages/m1", r.Method, r.URL.Path)
		}
		var req editMessageRequest
		json.NewDecoder(r.Body).Decode(&req)
		respond(w, EditResult{
			EditedUserMessage: &model.Message{ID: "m1",
				Versions: []model.MessageVersion{{Content: "old"}, {Content: req.Content}},
				CurrentVersionIndex: 1},
			NewAssistantMessage: &model.Message{ID: "m2",
				Versions: []model.MessageVersion{{Content: "new answer"}}},
		})
	}))
	defer srv.Close()

	client := newTestAPIClient(srv)
	result, err := client.EditMessage(context.Background(), "chat_1", "m1", "revised")
	if err != nil {
		t.Fatalf("EditMessage() error = %v", err)
	}
	if result.EditedUserMessage.Content() != "revised" {
		t.Errorf("edited content = %q, want revised", result.EditedUserMessage.Content())
	}
	if result.NewAssistantMessage.Content() != "new answer" {
		t.Errorf("new assistant = %q, want new answer", result.NewAssistantMessage.Content())
	}
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Query != "go generics" || req.Mode != model.ModeLaw {
			t.Errorf("request = %+v, want query with law mode", req)
		}
		respond(w, SearchResult{
			Answer:  "answer text",
			Sources: []model.Source{{Title: "ref", URL: "https://example.com"}},
		})
	}))
	defer srv.Close()

	client := newTestAPIClient(srv)
	result, err := client.Search(context.Background(), "go generics", model.ModeLaw)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Answer != "answer text" || len(result.Sources) != 1 {
		t.Errorf("Search() = %+v, want answer with one source", result)
	}
}

// =============================================================================
// TIMEOUT RELOAD TESTS
// =============================================================================

func TestClient_SetTimeouts_AppliesToLaterRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		respond(w, []model.ChatListItem{})
	}))
	defer srv.Close()

	client := newTestAPIClient(srv)

	client.SetTimeouts(20*time.Millisecond, 0)
	if _, err := client.ListChats(context.Background()); err == nil {
		t.Fatal("ListChats() succeeded under a 20ms timeout against a slow backend")
	}

	client.SetTimeouts(5*time.Second, 0)
	if _, err := client.ListChats(context.Background()); err != nil {
		t.Fatalf("ListChats() error = %v after raising the timeout", err)
	}
}

func TestClient_SetTimeouts_KeepsTransportAndIgnoresZero(t *testing.T) {
	client := NewClient(nil, nil)
	transport := client.crud().Transport
	generation := client.generation()

	client.SetTimeouts(5*time.Second, 0)

	if client.crud().Timeout != 5*time.Second {
		t.Errorf("crud timeout = %v, want 5s", client.crud().Timeout)
	}
	if client.crud().Transport != transport {
		t.Error("crud transport was replaced, want connection pool reuse")
	}
	if client.generation() != generation {
		t.Error("generation client changed on a zero timeout")
	}

	client.SetTimeouts(0, 90*time.Second)
	if client.generation().Timeout != 90*time.Second {
		t.Errorf("generation timeout = %v, want 90s", client.generation().Timeout)
	}
	if client.crud().Timeout != 5*time.Second {
		t.Errorf("crud timeout = %v, want unchanged 5s", client.crud().Timeout)
	}
}
