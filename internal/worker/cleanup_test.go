package worker

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// deleterMock はExpiredEntryDeleterのモック実装。
type deleterMock struct {
	deleteFunc func(ctx context.Context) (int64, error)
	calls      int
}

func (m *deleterMock) DeleteExpired(ctx context.Context) (int64, error) {
	m.calls++
	return m.deleteFunc(ctx)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

// TestRunOnce_DeletesExpiredEntries は削除が1回実行されることを検証する。
func TestRunOnce_DeletesExpiredEntries(t *testing.T) {
	deleter := &deleterMock{
		deleteFunc: func(_ context.Context) (int64, error) {
			return 7, nil
		},
	}
	j := NewCacheJanitor(deleter, testLogger())

	if err := j.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if deleter.calls != 1 {
		t.Errorf("calls = %d, want 1", deleter.calls)
	}
}

// TestRunOnce_PropagatesError は削除失敗がエラーとして返ることを検証する。
func TestRunOnce_PropagatesError(t *testing.T) {
	deleter := &deleterMock{
		deleteFunc: func(_ context.Context) (int64, error) {
			return 0, errors.New("deadlock detected")
		},
	}
	j := NewCacheJanitor(deleter, testLogger())

	if err := j.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error from RunOnce")
	}
}

// TestStart_InvalidSchedule は不正なcron式でエラーが返ることを検証する。
func TestStart_InvalidSchedule(t *testing.T) {
	j := NewCacheJanitor(&deleterMock{}, testLogger())

	if _, err := j.Start(context.Background(), "not a cron spec"); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

// TestStart_ValidSchedule は正しいcron式でスケジューラが起動することを検証する。
func TestStart_ValidSchedule(t *testing.T) {
	j := NewCacheJanitor(&deleterMock{
		deleteFunc: func(_ context.Context) (int64, error) { return 0, nil },
	}, testLogger())

	c, err := j.Start(context.Background(), "@hourly")
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer c.Stop()

	if len(c.Entries()) != 1 {
		t.Errorf("len(Entries()) = %d, want 1", len(c.Entries()))
	}
}
