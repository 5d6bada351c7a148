// Package bot はTelegramボットの更新ループとメッセージハンドリングを提供する。
// /startコマンドへの案内応答と、任意テキストを資格情報候補として扱う
// 登録フローの2系統を処理する。
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/sportcal/internal/model"
	"github.com/hitoshi/sportcal/internal/telegram"
)

// BotAPI はディスパッチャーが必要とするTelegram APIのインターフェース。
type BotAPI interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	SendAnimation(ctx context.Context, params telegram.SendAnimationParams) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// RegistrationService は登録ユースケースのインターフェース。
type RegistrationService interface {
	Token(userID int64) string
	IsRegistered(ctx context.Context, userID int64) (bool, error)
	Register(ctx context.Context, userID int64, credential string) (*model.Profile, error)
}

// Config はディスパッチャーの設定。
type Config struct {
	BaseURL       string        // カレンダーURLのベース（例: https://ical.example.com）
	PollTimeout   time.Duration // getUpdatesのロングポーリング待機時間
	MaxConcurrent int           // 更新処理の最大並列数
}

// Dispatcher はTelegramの更新ループを回し、メッセージをハンドラーへ振り分ける。
type Dispatcher struct {
	api     BotAPI
	reg     RegistrationService
	logger  *slog.Logger
	config  Config
	baseURL string
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
// MaxConcurrentが0以下の場合はデフォルト値8を使用する。
func NewDispatcher(api BotAPI, reg RegistrationService, logger *slog.Logger, config Config) *Dispatcher {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 8
	}
	return &Dispatcher{
		api:     api,
		reg:     reg,
		logger:  logger,
		config:  config,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
	}
}

// Run はロングポーリングの更新ループを開始する。
// コンテキストのキャンセルで停止し、処理中の更新の完了を待ってから返る。
func (d *Dispatcher) Run(ctx context.Context) error {
	me, err := d.api.GetMe(ctx)
	if err != nil {
		return err
	}
	d.logger.Info("ボットを起動しました",
		slog.String("username", me.Username),
		slog.Int64("bot_id", me.ID),
	)

	sem := make(chan struct{}, d.config.MaxConcurrent)
	var wg sync.WaitGroup
	defer wg.Wait()

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := d.api.GetUpdates(ctx, offset, d.config.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error("更新の取得に失敗しました",
				slog.String("error", err.Error()),
			)
			// APIエラー直後の連続リトライを避ける
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}

			wg.Add(1)
			sem <- struct{}{}
			go func(msg telegram.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				d.handleMessage(ctx, msg)
			}(*update.Message)
		}
	}
}

// handleMessage は1件の受信メッセージを処理する。
func (d *Dispatcher) handleMessage(ctx context.Context, msg telegram.Message) {
	if msg.Text == "/start" {
		d.handleStart(ctx, msg)
		return
	}
	if msg.Text != "" {
		d.handleCredential(ctx, msg)
	}
}

// handleStart は/startコマンドを処理する。
// 登録済みなら既存のカレンダーURLを、未登録なら登録手順を案内する。
func (d *Dispatcher) handleStart(ctx context.Context, msg telegram.Message) {
	registered, err := d.reg.IsRegistered(ctx, msg.From.ID)
	if err != nil {
		d.logger.Error("登録状態の確認に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}

	text := greetingUnregistered
	if registered {
		text = greetingRegistered(d.calendarURL(msg.From.ID))
	}

	d.send(ctx, msg.Chat.ID, text)
}

// handleCredential は任意テキストを資格情報候補として登録フローに流す。
// 検証中は一時メッセージを表示し、結果確定後に削除する。
func (d *Dispatcher) handleCredential(ctx context.Context, msg telegram.Message) {
	status, err := d.api.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:    msg.Chat.ID,
		Text:      checkingCredentials,
		ParseMode: "HTML",
	})
	if err != nil {
		d.logger.Error("一時メッセージの送信に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	profile, regErr := d.reg.Register(ctx, msg.From.ID, strings.TrimSpace(msg.Text))

	if status != nil {
		if err := d.api.DeleteMessage(ctx, msg.Chat.ID, status.MessageID); err != nil {
			d.logger.Warn("一時メッセージの削除に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	if regErr != nil {
		if !model.IsValidationFailed(regErr) {
			d.logger.Error("登録処理に失敗しました",
				slog.String("error", regErr.Error()),
			)
		}
		d.send(ctx, msg.Chat.ID, authorizationFailed)
		return
	}

	err = d.api.SendAnimation(ctx, telegram.SendAnimationParams{
		ChatID:    msg.Chat.ID,
		Animation: welcomeAnimationURL,
		Caption:   welcomeCaption(profile.DisplayName, d.calendarURL(msg.From.ID)),
		ParseMode: "HTML",
	})
	if err != nil {
		d.logger.Error("登録完了メッセージの送信に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// send はHTMLモードのテキストメッセージを送信し、失敗をログに残す。
func (d *Dispatcher) send(ctx context.Context, chatID int64, text string) {
	_, err := d.api.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		d.logger.Error("メッセージの送信に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// calendarURL は利用者のカレンダーURLを組み立てる。
func (d *Dispatcher) calendarURL(userID int64) string {
	return d.baseURL + "/iu/sport/" + d.reg.Token(userID)
}
