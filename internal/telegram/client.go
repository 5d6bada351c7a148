// Package telegram はTelegram Bot APIのクライアントを提供する。
// ロングポーリングによる更新取得とメッセージ・アニメーション送信を含む。
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// defaultEndpoint はTelegram Bot APIのベースエンドポイント。
const defaultEndpoint = "https://api.telegram.org"

// Update はgetUpdatesが返す1件の更新を表す。
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message は受信メッセージを表す。
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// User はTelegramユーザーを表す。
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat はメッセージが属するチャットを表す。
type Chat struct {
	ID int64 `json:"id"`
}

// apiResponse はBot APIの共通レスポンスエンベロープ。
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// SendMessageParams はsendMessageのパラメータ。
type SendMessageParams struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// SendAnimationParams はsendAnimationのパラメータ。
// AnimationにはURLまたはTelegramのfile_idを指定できる。
type SendAnimationParams struct {
	ChatID    int64  `json:"chat_id"`
	Animation string `json:"animation"`
	Caption   string `json:"caption,omitempty"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Client はTelegram Bot APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	token      string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(token string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		token:      token,
		endpoint:   defaultEndpoint,
	}
}

// GetMe はボット自身の情報を取得する。起動時の疎通確認に使用する。
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	raw, err := c.call(ctx, "getMe", nil)
	if err != nil {
		return nil, err
	}

	var me User
	if err := json.Unmarshal(raw, &me); err != nil {
		return nil, fmt.Errorf("getMeレスポンスのパースに失敗しました: %w", err)
	}
	return &me, nil
}

// GetUpdates はロングポーリングで更新を取得する。
// offsetには最後に処理したupdate_id+1を渡す（確認済み更新の破棄）。
// timeoutの間サーバー側で更新を待つため、httpClientのタイムアウトは
// これより長く設定されている必要がある。
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := map[string]string{
		"offset":  strconv.FormatInt(offset, 10),
		"timeout": strconv.Itoa(int(timeout.Seconds())),
	}

	raw, err := c.call(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("getUpdatesレスポンスのパースに失敗しました: %w", err)
	}
	return updates, nil
}

// SendMessage はテキストメッセージを送信し、送信されたメッセージを返す。
// 返却値は後からDeleteMessageで消す一時メッセージの識別に使用する。
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	raw, err := c.call(ctx, "sendMessage", params)
	if err != nil {
		return nil, err
	}

	var sent Message
	if err := json.Unmarshal(raw, &sent); err != nil {
		return nil, fmt.Errorf("sendMessageレスポンスのパースに失敗しました: %w", err)
	}
	return &sent, nil
}

// DeleteMessage はチャット内のメッセージを削除する。
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	params := map[string]int64{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	_, err := c.call(ctx, "deleteMessage", params)
	return err
}

// SendAnimation はアニメーション（GIF/MP4）を送信する。
func (c *Client) SendAnimation(ctx context.Context, params SendAnimationParams) error {
	_, err := c.call(ctx, "sendAnimation", params)
	return err
}

// call はBot APIメソッドをJSONボディのPOSTで呼び出し、resultフィールドを返す。
// ボットトークンはURLパスに含まれるため、エラーメッセージやログには
// メソッド名のみを残す。
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var body io.Reader
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%sパラメータのエンコードに失敗しました: %w", method, err)
		}
		body = bytes.NewReader(encoded)
	}

	reqURL := fmt.Sprintf("%s/bot%s/%s", c.endpoint, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Bot APIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("Bot API %s の呼び出しに失敗しました: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("Bot API %s のレスポンスのパースに失敗しました: %w", method, err)
	}

	if !envelope.OK {
		c.logger.Error("Bot APIがエラーを返しました",
			slog.String("method", method),
			slog.Int("http_status", resp.StatusCode),
			slog.String("description", envelope.Description),
		)
		return nil, fmt.Errorf("Bot API %s がエラーを返しました: %s", method, envelope.Description)
	}

	return envelope.Result, nil
}
