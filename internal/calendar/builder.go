// Package calendar はカレンダードキュメントの構築を提供する。
// 上流スケジュールの取得、チェックイン済みエントリの抽出、
// イベント詳細キャッシュ経由の説明文解決、iCalendar形式への組み立てを行う。
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/sportcal/internal/model"
	"github.com/hitoshi/sportcal/internal/repository"
	"github.com/hitoshi/sportcal/internal/sport"
)

// ScheduleClient はカレンダービルダーが必要とする上流APIのインターフェース。
type ScheduleClient interface {
	// GetTrainings は指定ウィンドウのスケジュールを上流の順序のまま返す。
	GetTrainings(ctx context.Context, credential string, start, end time.Time, timezone string) ([]sport.Training, error)
	// GetTrainingDetail は単一トレーニングの詳細を返す。
	GetTrainingDetail(ctx context.Context, credential string, eventID int64) (*sport.TrainingDetail, error)
}

// DescriptionSanitizer は説明文のプレーンテキスト化のインターフェース。
type DescriptionSanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder はビルダーが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordBuildSuccess()
	RecordBuildFailure()
	RecordCacheHit()
	RecordCacheMiss()
	RecordDetailFetchFailure()
	RecordBuildLatency(duration time.Duration)
}

// Config はカレンダービルダーの設定。
type Config struct {
	Timezone      string        // 基準タイムゾーン（ウィンドウ計算と時刻パースに使用）
	WindowDays    int           // スケジュール取得ウィンドウ（日数）
	CacheTTL      time.Duration // イベント詳細キャッシュのTTL
	MaxConcurrent int           // 詳細取得の最大並列数
}

// カレンダーメタデータの既定値。
const (
	calendarName        = "Sport in Innopolis"
	calendarDescription = "Your trainings in Sport Complex by Innopolis University"
	productID           = "Sport Schedule"
)

// Builder はカレンダードキュメントを構築する。
// 同一の上流状態・キャッシュ状態に対しては、生成時刻フィールドを除いて
// 同一のドキュメントを生成する（冪等）。
type Builder struct {
	client    ScheduleClient
	cache     repository.EventCacheRepository
	sanitizer DescriptionSanitizer
	metrics   MetricsRecorder
	logger    *slog.Logger
	config    Config
	loc       *time.Location
	now       func() time.Time // テスト用に差し替え可能
}

// NewBuilder はBuilderの新しいインスタンスを生成する。
// MaxConcurrentが0以下の場合はデフォルト値4を使用する。
// タイムゾーン名が不正な場合はエラーを返す（設定ミスの早期検出）。
func NewBuilder(
	client ScheduleClient,
	cache repository.EventCacheRepository,
	sanitizer DescriptionSanitizer,
	metrics MetricsRecorder,
	logger *slog.Logger,
	config Config,
) (*Builder, error) {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar timezone %q: %w", config.Timezone, err)
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}
	return &Builder{
		client:    client,
		cache:     cache,
		sanitizer: sanitizer,
		metrics:   metrics,
		logger:    logger,
		config:    config,
		loc:       loc,
		now:       time.Now,
	}, nil
}

// Build は資格情報のスケジュールからカレンダードキュメントを構築し、
// iCalendar形式にシリアライズして返す。
// スケジュール取得自体の失敗はUPSTREAM_UNAVAILABLEとして呼び出し元に伝播する。
// 個別イベントの詳細取得失敗はそのイベントのスキップに留め、構築は継続する。
func (b *Builder) Build(ctx context.Context, credential string) ([]byte, error) {
	buildStart := time.Now()

	start, end := b.window()

	trainings, err := b.client.GetTrainings(ctx, credential, start, end, b.config.Timezone)
	if err != nil {
		b.metrics.RecordBuildFailure()
		b.logger.Error("スケジュールの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamUnavailableError(err.Error())
	}

	// チェックイン済みエントリのみを残す。未確定の予定はカレンダーに載せない。
	checkedIn := make([]sport.Training, 0, len(trainings))
	for _, tr := range trainings {
		if tr.ExtendedProps.CheckedIn {
			checkedIn = append(checkedIn, tr)
		}
	}

	events := b.assembleEvents(ctx, credential, checkedIn)

	doc := &model.CalendarDocument{
		Name:        calendarName,
		Timezone:    b.config.Timezone,
		Description: calendarDescription,
		GeneratedAt: b.generationStamp(),
		Events:      events,
	}

	serialized := Serialize(doc)

	b.metrics.RecordBuildSuccess()
	b.metrics.RecordBuildLatency(time.Since(buildStart))
	b.logger.Info("カレンダードキュメントを構築しました",
		slog.Int("entries_total", len(trainings)),
		slog.Int("entries_checked_in", len(checkedIn)),
		slog.Int("events_included", len(events)),
		slog.Float64("duration_ms", float64(time.Since(buildStart).Milliseconds())),
	)

	return serialized, nil
}

// window はリクエストウィンドウを計算する。
// 基準タイムゾーンでの当日0時から、WindowDays日後の0時まで（両端を含む）。
func (b *Builder) window() (time.Time, time.Time) {
	now := b.now().In(b.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, b.loc)
	end := start.AddDate(0, 0, b.config.WindowDays)
	return start, end
}

// generationStamp はDTSTAMPに使用する生成時刻を返す。
// 当日0時に丸めることで、同日内の再構築でドキュメントがバイト単位で一致する。
func (b *Builder) generationStamp() time.Time {
	now := b.now().In(b.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, b.loc)
}

// assembleEvents は各エントリの説明文を解決し、カレンダーイベントの列を組み立てる。
// 詳細取得はsemaphoreパターンで並列実行するが、結果はインデックスで書き戻すため、
// 出力順は取得の完了順に関わらず上流の順序と一致する。
func (b *Builder) assembleEvents(ctx context.Context, credential string, trainings []sport.Training) []model.CalendarEvent {
	descriptions := make([]string, len(trainings))
	resolved := make([]bool, len(trainings))

	sem := make(chan struct{}, b.config.MaxConcurrent)
	var wg sync.WaitGroup

	for i, tr := range trainings {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(idx int, t sport.Training) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			desc, err := b.resolveDescription(ctx, credential, t.ExtendedProps.ID)
			if err != nil {
				// スキップ方針: 失敗したイベントは除外し、キャッシュも汚さない
				b.metrics.RecordDetailFetchFailure()
				b.logger.Warn("イベント詳細の取得に失敗したためスキップします",
					slog.Int64("event_id", t.ExtendedProps.ID),
					slog.String("error", err.Error()),
				)
				return
			}
			descriptions[idx] = desc
			resolved[idx] = true
		}(i, tr)
	}

	wg.Wait()

	events := make([]model.CalendarEvent, 0, len(trainings))
	for i, tr := range trainings {
		if !resolved[i] {
			continue
		}

		start, err := b.parseLocalTime(tr.Start)
		if err != nil {
			b.logger.Warn("開始時刻のパースに失敗したためスキップします",
				slog.Int64("event_id", tr.ExtendedProps.ID),
				slog.String("start", tr.Start),
			)
			continue
		}
		end, err := b.parseLocalTime(tr.End)
		if err != nil {
			end = start
		}

		events = append(events, model.CalendarEvent{
			EventID:     tr.ExtendedProps.ID,
			Title:       tr.Title,
			Start:       start,
			End:         end,
			Location:    tr.ExtendedProps.TrainingClass,
			Description: descriptions[i],
		})
	}

	return events
}

// resolveDescription はイベント説明文をキャッシュ経由で解決する。
// キャッシュミス時は上流から詳細を取得して合成し、TTL付きで書き込んでから返す。
// 詳細取得に失敗した場合はキャッシュに何も書かずエラーを返す（all-or-nothing）。
func (b *Builder) resolveDescription(ctx context.Context, credential string, eventID int64) (string, error) {
	entry, err := b.cache.GetDescription(ctx, eventID)
	if err != nil {
		return "", fmt.Errorf("キャッシュの参照に失敗しました: %w", err)
	}
	if entry != nil {
		b.metrics.RecordCacheHit()
		return entry.Description, nil
	}

	b.metrics.RecordCacheMiss()

	detail, err := b.client.GetTrainingDetail(ctx, credential, eventID)
	if err != nil {
		b.logger.Debug("上流詳細APIの呼び出しに失敗しました",
			slog.Int64("event_id", eventID),
			slog.String("error", err.Error()),
		)
		return "", model.NewDetailFetchFailedError(eventID)
	}

	description := b.composeDescription(detail)

	if err := b.cache.PutDescription(ctx, eventID, description, b.config.CacheTTL); err != nil {
		// キャッシュ書き込み失敗はイベントをスキップする理由にはならない
		b.logger.Warn("キャッシュへの書き込みに失敗しました",
			slog.Int64("event_id", eventID),
			slog.String("error", err.Error()),
		)
	}

	return description, nil
}

// composeDescription はトレーニング詳細から複数行の説明文を合成する。
// 形式: スポーツ説明 + 空行 + 講師一覧（氏名とメール） + 認定可否の行。
func (b *Builder) composeDescription(detail *sport.TrainingDetail) string {
	teachers := make([]string, 0, len(detail.Teachers))
	for _, t := range detail.Teachers {
		teachers = append(teachers, fmt.Sprintf("%s %s %s", t.FirstName, t.LastName, t.Email))
	}

	accredited := "No"
	if detail.Accredited {
		accredited = "Yes"
	}

	return b.sanitizer.Sanitize(detail.Description) +
		"\n\nTeacher(-s): " + strings.Join(teachers, ", ") +
		"\nAccredited: " + accredited
}

// parseLocalTime は上流の時刻表記をパースする。
// オフセット付き表記（RFC 3339）を優先し、オフセットなしの場合は基準タイムゾーンを適用する。
func (b *Builder) parseLocalTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", value, b.loc)
}
