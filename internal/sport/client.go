// Package sport は上流スポーツサイトAPIのクライアントを提供する。
// 資格情報検証（/profile）、スケジュール取得（/api/calendar/trainings）、
// トレーニング詳細取得（/api/training/{id}）の3エンドポイントを扱う。
// すべてのリクエストはsessionidクッキーで認証される。
package sport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/sportcal/internal/model"
	"github.com/hitoshi/sportcal/internal/security"
)

// sessionCookieName は上流サイトのセッションクッキー名。
const sessionCookieName = "sessionid"

// timeLayout は上流APIが期待する時刻表記（タイムゾーンオフセットなし）。
const timeLayout = "2006-01-02T15:04:05"

// Client は上流スポーツサイトAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にベースURLを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはSSRFガードが生成した安全なクライアントを渡すこと。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ValidateSession は候補資格情報を上流サイトに対して検証する。
// 成功条件は (a) HTTPステータスが2xx、かつ (b) リダイレクト追跡後の最終URLが
// 上流ホストに留まっていること。ステータス200でも外部のログインページへ
// リダイレクトされていた場合は失敗として扱う。
// 成功時はプロフィールから表示名を抽出して返す（抽出失敗時はプレースホルダ）。
// 失敗時は資格情報を一切永続化してはならない。
func (c *Client) ValidateSession(ctx context.Context, credential string) (*model.Profile, error) {
	req, err := c.newRequest(ctx, c.baseURL+"/profile", credential)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("資格情報検証リクエストに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("資格情報検証リクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Info("資格情報が拒否されました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewValidationFailedError()
	}

	// リダイレクト追跡後の最終URLを検証する。
	// 上流が未認証セッションを外部SSOへ303で飛ばすと、最終レスポンスは
	// 200になり得るため、ステータスだけでは成功と判定できない。
	if !c.sameUpstreamHost(resp.Request.URL) {
		c.logger.Warn("検証リクエストが上流ホスト外へリダイレクトされました",
			slog.String("final_url", resp.Request.URL.String()),
		)
		return nil, model.NewValidationFailedError()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの読み取りに失敗しました: %w", err)
	}

	name := security.ExtractDisplayName(string(body))
	return &model.Profile{DisplayName: security.EscapeRichText(name)}, nil
}

// GetTrainings は指定ウィンドウのスケジュールを取得する。
// 返却順は上流の順序を維持する。
func (c *Client) GetTrainings(ctx context.Context, credential string, start, end time.Time, timezone string) ([]Training, error) {
	reqURL, err := url.Parse(c.baseURL + "/api/calendar/trainings")
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("start", start.Format(timeLayout))
	q.Set("end", end.Format(timeLayout))
	q.Set("timeZone", timezone)
	reqURL.RawQuery = q.Encode()

	req, err := c.newRequest(ctx, reqURL.String(), credential)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("スケジュール取得リクエストに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("スケジュール取得リクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("スケジュールAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("スケジュールAPIがステータス %d を返しました", resp.StatusCode)
	}

	var trainings []Training
	if err := json.NewDecoder(resp.Body).Decode(&trainings); err != nil {
		return nil, fmt.Errorf("スケジュールレスポンスのパースに失敗しました: %w", err)
	}

	return trainings, nil
}

// GetTrainingDetail は単一トレーニングの詳細を取得する。
// この呼び出しの失敗はカレンダー構築全体を中断させてはならない（呼び出し元がスキップする）。
func (c *Client) GetTrainingDetail(ctx context.Context, credential string, eventID int64) (*TrainingDetail, error) {
	req, err := c.newRequest(ctx, fmt.Sprintf("%s/api/training/%d", c.baseURL, eventID), credential)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("トレーニング詳細リクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("トレーニング詳細APIがステータス %d を返しました", resp.StatusCode)
	}

	var wire trainingDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("トレーニング詳細レスポンスのパースに失敗しました: %w", err)
	}

	return &TrainingDetail{
		Description: wire.Training.Group.Sport.Description,
		Teachers:    wire.Training.Group.Teachers,
		Accredited:  wire.Training.Group.Accredited,
	}, nil
}

// newRequest はsessionidクッキー付きのGETリクエストを構築する。
func (c *Client) newRequest(ctx context.Context, rawURL, credential string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "sportcal/1.0")
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: credential})
	return req, nil
}

// sameUpstreamHost は最終URLのホストが設定済みベースURLのホストと一致するかを検証する。
func (c *Client) sameUpstreamHost(final *url.URL) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(final.Hostname(), base.Hostname())
}
