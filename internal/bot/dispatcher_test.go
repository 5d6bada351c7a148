package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/sportcal/internal/model"
	"github.com/hitoshi/sportcal/internal/telegram"
)

// botAPIMock はBotAPIのモック実装。送信内容を記録する。
type botAPIMock struct {
	mu         sync.Mutex
	sent       []telegram.SendMessageParams
	animations []telegram.SendAnimationParams
	deleted    []int64
	nextMsgID  int64
}

func (m *botAPIMock) GetMe(context.Context) (*telegram.User, error) {
	return &telegram.User{ID: 1, Username: "sport_bot"}, nil
}

func (m *botAPIMock) GetUpdates(context.Context, int64, time.Duration) ([]telegram.Update, error) {
	return nil, nil
}

func (m *botAPIMock) SendMessage(_ context.Context, params telegram.SendMessageParams) (*telegram.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, params)
	m.nextMsgID++
	return &telegram.Message{MessageID: m.nextMsgID, Chat: telegram.Chat{ID: params.ChatID}}, nil
}

func (m *botAPIMock) SendAnimation(_ context.Context, params telegram.SendAnimationParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.animations = append(m.animations, params)
	return nil
}

func (m *botAPIMock) DeleteMessage(_ context.Context, _ int64, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

// regServiceMock はRegistrationServiceのモック実装。
type regServiceMock struct {
	registered   bool
	registerFunc func(ctx context.Context, userID int64, credential string) (*model.Profile, error)
}

func (m *regServiceMock) Token(userID int64) string {
	return "tok-42"
}

func (m *regServiceMock) IsRegistered(context.Context, int64) (bool, error) {
	return m.registered, nil
}

func (m *regServiceMock) Register(ctx context.Context, userID int64, credential string) (*model.Profile, error) {
	return m.registerFunc(ctx, userID, credential)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func newTestDispatcher(api *botAPIMock, reg *regServiceMock) *Dispatcher {
	return NewDispatcher(api, reg, testLogger(), Config{
		BaseURL:     "https://cal.example.com",
		PollTimeout: time.Second,
	})
}

func incomingMessage(text string) telegram.Message {
	return telegram.Message{
		MessageID: 1,
		From:      &telegram.User{ID: 42, FirstName: "Ivan"},
		Chat:      telegram.Chat{ID: 42},
		Text:      text,
	}
}

// TestHandleStart_Unregistered は未登録利用者への/startで登録手順が返ることを検証する。
func TestHandleStart_Unregistered(t *testing.T) {
	api := &botAPIMock{}
	reg := &regServiceMock{registered: false}
	d := newTestDispatcher(api, reg)

	d.handleMessage(context.Background(), incomingMessage("/start"))

	if len(api.sent) != 1 {
		t.Fatalf("len(sent) = %d, want 1", len(api.sent))
	}
	if !strings.Contains(api.sent[0].Text, "authorization process") {
		t.Errorf("unregistered /start should explain the registration steps: %q", api.sent[0].Text)
	}
	if api.sent[0].ParseMode != "HTML" {
		t.Errorf("ParseMode = %q, want HTML", api.sent[0].ParseMode)
	}
}

// TestHandleStart_Registered は登録済み利用者への/startでカレンダーURLが返ることを検証する。
func TestHandleStart_Registered(t *testing.T) {
	api := &botAPIMock{}
	reg := &regServiceMock{registered: true}
	d := newTestDispatcher(api, reg)

	d.handleMessage(context.Background(), incomingMessage("/start"))

	if len(api.sent) != 1 {
		t.Fatalf("len(sent) = %d, want 1", len(api.sent))
	}
	if !strings.Contains(api.sent[0].Text, "https://cal.example.com/iu/sport/tok-42") {
		t.Errorf("registered /start should contain the calendar URL: %q", api.sent[0].Text)
	}
}

// TestHandleCredential_Success は検証成功時にアニメーションとカレンダーURLが
// 送られ、一時メッセージが削除されることを検証する。
func TestHandleCredential_Success(t *testing.T) {
	api := &botAPIMock{}
	reg := &regServiceMock{
		registerFunc: func(_ context.Context, userID int64, credential string) (*model.Profile, error) {
			if userID != 42 || credential != "session-xyz" {
				t.Errorf("Register(%d, %q)", userID, credential)
			}
			return &model.Profile{DisplayName: "Ivan Petrov"}, nil
		},
	}
	d := newTestDispatcher(api, reg)

	d.handleMessage(context.Background(), incomingMessage("session-xyz"))

	if len(api.sent) != 1 || !strings.Contains(api.sent[0].Text, "Checking your credentials") {
		t.Errorf("a checking status message should be sent first: %+v", api.sent)
	}
	if len(api.deleted) != 1 {
		t.Errorf("the status message should be deleted, deleted = %v", api.deleted)
	}
	if len(api.animations) != 1 {
		t.Fatalf("len(animations) = %d, want 1", len(api.animations))
	}
	caption := api.animations[0].Caption
	if !strings.Contains(caption, "Welcome, Ivan Petrov!") {
		t.Errorf("caption should greet by display name: %q", caption)
	}
	if !strings.Contains(caption, "https://cal.example.com/iu/sport/tok-42") {
		t.Errorf("caption should contain the calendar URL: %q", caption)
	}
}

// TestHandleCredential_ValidationFailure は検証失敗時に失敗メッセージのみが
// 送られることを検証する。
func TestHandleCredential_ValidationFailure(t *testing.T) {
	api := &botAPIMock{}
	reg := &regServiceMock{
		registerFunc: func(_ context.Context, _ int64, _ string) (*model.Profile, error) {
			return nil, model.NewValidationFailedError()
		},
	}
	d := newTestDispatcher(api, reg)

	d.handleMessage(context.Background(), incomingMessage("bad-session"))

	if len(api.animations) != 0 {
		t.Error("no animation should be sent on validation failure")
	}
	last := api.sent[len(api.sent)-1]
	if !strings.Contains(last.Text, "Authorization failed") {
		t.Errorf("failure message should be sent: %q", last.Text)
	}
}

// TestHandleMessage_TrimsCredentialWhitespace は前後の空白が除去されて
// 登録フローへ渡ることを検証する。
func TestHandleMessage_TrimsCredentialWhitespace(t *testing.T) {
	var gotCredential string
	api := &botAPIMock{}
	reg := &regServiceMock{
		registerFunc: func(_ context.Context, _ int64, credential string) (*model.Profile, error) {
			gotCredential = credential
			return &model.Profile{DisplayName: "Student"}, nil
		},
	}
	d := newTestDispatcher(api, reg)

	d.handleMessage(context.Background(), incomingMessage("  session-abc \n"))

	if gotCredential != "session-abc" {
		t.Errorf("credential = %q, want %q", gotCredential, "session-abc")
	}
}
