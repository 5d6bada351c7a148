package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func newTestClient(serverURL string) *Client {
	c := NewClient("test-token", &http.Client{}, testLogger())
	c.endpoint = serverURL
	return c
}

// TestGetMe はボット情報の取得とトークン入りパスの構築を検証する。
func TestGetMe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/getMe" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"id":12345,"first_name":"SportBot","username":"sport_bot"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	me, err := client.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe returned error: %v", err)
	}
	if me.ID != 12345 || me.Username != "sport_bot" {
		t.Errorf("me = %+v", me)
	}
}

// TestGetUpdates はロングポーリングのパラメータとデコードを検証する。
func TestGetUpdates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params map[string]string
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Fatalf("failed to decode params: %v", err)
		}
		if params["offset"] != "43" {
			t.Errorf("offset = %q, want %q", params["offset"], "43")
		}
		if params["timeout"] != "30" {
			t.Errorf("timeout = %q, want %q", params["timeout"], "30")
		}
		fmt.Fprint(w, `{"ok":true,"result":[
			{"update_id":43,"message":{"message_id":1,"from":{"id":99},"chat":{"id":99},"text":"/start"}}
		]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	updates, err := client.GetUpdates(context.Background(), 43, 30*time.Second)
	if err != nil {
		t.Fatalf("GetUpdates returned error: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("len(updates) = %d, want 1", len(updates))
	}
	if updates[0].Message.Text != "/start" || updates[0].Message.From.ID != 99 {
		t.Errorf("update = %+v", updates[0])
	}
}

// TestSendMessage は送信パラメータがそのままJSONで渡ることを検証する。
func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var params SendMessageParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Fatalf("failed to decode params: %v", err)
		}
		if params.ChatID != 99 || params.ParseMode != "HTML" {
			t.Errorf("params = %+v", params)
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":77,"chat":{"id":99}}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	sent, err := client.SendMessage(context.Background(), SendMessageParams{
		ChatID:    99,
		Text:      "<b>hello</b>",
		ParseMode: "HTML",
	})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if sent.MessageID != 77 {
		t.Errorf("MessageID = %d, want 77", sent.MessageID)
	}
}

// TestDeleteMessage は削除パラメータの構築を検証する。
func TestDeleteMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/deleteMessage" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var params map[string]int64
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Fatalf("failed to decode params: %v", err)
		}
		if params["chat_id"] != 99 || params["message_id"] != 77 {
			t.Errorf("params = %+v", params)
		}
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if err := client.DeleteMessage(context.Background(), 99, 77); err != nil {
		t.Fatalf("DeleteMessage returned error: %v", err)
	}
}

// TestCall_APIError はok:falseレスポンスがエラーに変換されることを検証する。
func TestCall_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.SendMessage(context.Background(), SendMessageParams{ChatID: 1, Text: "x"})
	if err == nil {
		t.Fatal("expected error for ok:false response")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("error should carry the API description: %v", err)
	}
}
