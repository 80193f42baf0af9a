package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/sky-inn/backend/internal/analysis/emotion"
	"github.com/zhouzirui/sky-inn/backend/internal/analysis/empathy"
	"github.com/zhouzirui/sky-inn/backend/internal/analysis/reply"
	"github.com/zhouzirui/sky-inn/backend/internal/dao"
	chatservice "github.com/zhouzirui/sky-inn/backend/internal/service/chat"
	"github.com/zhouzirui/sky-inn/backend/internal/service/conversation"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	db, err := dao.OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = dao.Close(db) })

	store := chatservice.NewGormStore(db)
	conv, err := conversation.NewService(conversation.Options{
		Store:    store,
		Analyzer: emotion.NewAnalyzer(nil),
		Tracker:  empathy.NewTracker(empathy.DefaultSchedule()),
		Selector: reply.NewSelector(nil, reply.NewRandPicker(1)),
	})
	if err != nil {
		t.Fatalf("conversation service: %v", err)
	}

	r := chi.NewRouter()
	New(store, conv, nil).RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createChat(t *testing.T, r http.Handler) int64 {
	t.Helper()
	if resp := do(t, r, http.MethodPost, "/users", map[string]any{"id": 12345, "username": "alice"}); resp.Code != http.StatusCreated {
		t.Fatalf("add user: expected 201, got %d", resp.Code)
	}

	resp := do(t, r, http.MethodPost, "/chats", map[string]any{"userId": 12345, "title": "t", "scenario": "Вечер на кухне"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create chat: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Greeting string `json:"greeting"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if created.Chat.ID == 0 || created.Greeting == "" {
		t.Fatalf("unexpected create response %s", resp.Body.String())
	}
	return created.Chat.ID
}

func TestTurnLifecycle(t *testing.T) {
	r := setupRouter(t)
	chatID := createChat(t, r)
	base := fmt.Sprintf("/chats/%d", chatID)

	resp := do(t, r, http.MethodPost, base+"/messages", map[string]any{"userId": 12345, "text": "Мне очень грустно"})
	if resp.Code != http.StatusOK {
		t.Fatalf("send: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result conversation.Result
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Source != conversation.SourceFallback || result.Reply == "" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Emotion != emotion.Sadness {
		t.Fatalf("expected sadness, got %q", result.Emotion)
	}

	resp = do(t, r, http.MethodPost, base+"/forget", map[string]any{"text": "Мне очень грустно"})
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"changed":true`)) {
		t.Fatalf("forget: %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, r, http.MethodGet, base+"/messages", nil)
	var visible []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &visible); err != nil || resp.Code != http.StatusOK || len(visible) != 0 {
		t.Fatalf("expected empty visible history, got %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, r, http.MethodGet, base+"/messages?includeIgnored=true", nil)
	var all []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &all); err != nil || len(all) != 1 {
		t.Fatalf("expected one stored message, got %s (%v)", resp.Body.String(), err)
	}
	if all[0]["isIgnored"] != true {
		t.Fatalf("expected ignored flag, got %v", all[0])
	}

	resp = do(t, r, http.MethodPost, base+"/remember", map[string]any{"text": "Мне очень грустно"})
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"changed":true`)) {
		t.Fatalf("remember: %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, r, http.MethodGet, base+"/context", nil)
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte("Вечер на кухне")) {
		t.Fatalf("context: %d %s", resp.Code, resp.Body.String())
	}
}

func TestListAndGetChats(t *testing.T) {
	r := setupRouter(t)
	chatID := createChat(t, r)

	resp := do(t, r, http.MethodGet, "/users/12345/chats", nil)
	var chats []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &chats); err != nil || len(chats) != 1 {
		t.Fatalf("list chats: %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, r, http.MethodGet, fmt.Sprintf("/chats/%d", chatID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get chat: expected 200, got %d", resp.Code)
	}
}

func TestStatusCodes(t *testing.T) {
	r := setupRouter(t)
	chatID := createChat(t, r)
	base := fmt.Sprintf("/chats/%d", chatID)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"user without id", http.MethodPost, "/users", map[string]any{"username": "x"}, http.StatusBadRequest},
		{"chat for unknown user", http.MethodPost, "/chats", map[string]any{"userId": 999}, http.StatusNotFound},
		{"unknown chat", http.MethodGet, "/chats/999", nil, http.StatusNotFound},
		{"bad chat id", http.MethodGet, "/chats/abc", nil, http.StatusBadRequest},
		{"turn in unknown chat", http.MethodPost, "/chats/999/messages", map[string]any{"userId": 12345, "text": "эй"}, http.StatusNotFound},
		{"turn by unknown user", http.MethodPost, base + "/messages", map[string]any{"userId": 777, "text": "эй"}, http.StatusNotFound},
		{"blank turn", http.MethodPost, base + "/messages", map[string]any{"userId": 12345, "text": "  "}, http.StatusBadRequest},
		{"forget without text", http.MethodPost, base + "/forget", map[string]any{}, http.StatusBadRequest},
		{"forget in unknown chat", http.MethodPost, "/chats/999/forget", map[string]any{"text": "x"}, http.StatusNotFound},
		{"bad includeIgnored", http.MethodGet, base + "/messages?includeIgnored=maybe", nil, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, r, tc.method, tc.path, tc.body)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestForgetWithoutMatchIsNoOp(t *testing.T) {
	r := setupRouter(t)
	chatID := createChat(t, r)

	resp := do(t, r, http.MethodPost, fmt.Sprintf("/chats/%d/forget", chatID), map[string]any{"text": "никогда не говорил"})
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"changed":false`)) {
		t.Fatalf("expected no-op, got %d %s", resp.Code, resp.Body.String())
	}
}
