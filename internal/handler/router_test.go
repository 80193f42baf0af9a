package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zhouzirui/sky-inn/backend/internal/analysis/emotion"
	"github.com/zhouzirui/sky-inn/backend/internal/analysis/empathy"
	"github.com/zhouzirui/sky-inn/backend/internal/analysis/reply"
	"github.com/zhouzirui/sky-inn/backend/internal/dao"
	personamodel "github.com/zhouzirui/sky-inn/backend/internal/model/persona"
	chatservice "github.com/zhouzirui/sky-inn/backend/internal/service/chat"
	"github.com/zhouzirui/sky-inn/backend/internal/service/conversation"
)

func TestRouterMountsAPI(t *testing.T) {
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
		Selector: reply.NewSelector(nil, nil),
	})
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	router := NewRouter(personamodel.NewMemoryStore(personamodel.Seed()), store, conv, nil)

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/api/personas", "", http.StatusOK},
		{http.MethodPost, "/api/users", `{"id":1,"username":"bob"}`, http.StatusCreated},
		{http.MethodPost, "/api/chats", `{"userId":1}`, http.StatusCreated},
		{http.MethodGet, "/api/chats/1/context", "", http.StatusOK},
		{http.MethodGet, "/api/chats/1/stream?userId=1&message=hello", "", http.StatusOK},
		{http.MethodGet, "/api/ws/1", "", http.StatusBadRequest},
		{http.MethodOptions, "/api/chats", "", http.StatusNoContent},
		{http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		resp := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
		router.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d: %s", tc.method, tc.path, tc.want, resp.Code, resp.Body.String())
		}
	}
}
