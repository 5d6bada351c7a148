package sport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/sportcal/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

// TestValidateSession_Success は有効な資格情報で表示名が抽出されることを検証する。
func TestValidateSession_Success(t *testing.T) {
	var gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profile" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if c, err := r.Cookie("sessionid"); err == nil {
			gotCookie = c.Value
		}
		fmt.Fprint(w, `<html><body><h1 class="card-title">Ivan &amp; Co</h1></body></html>`)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), testLogger())

	profile, err := client.ValidateSession(context.Background(), "my-session")
	if err != nil {
		t.Fatalf("ValidateSession returned error: %v", err)
	}
	if gotCookie != "my-session" {
		t.Errorf("sessionid cookie = %q, want %q", gotCookie, "my-session")
	}
	// 抽出されたテキストはHTMLトークナイザでデコードされた後、再エスケープされる
	if profile.DisplayName != "Ivan &amp; Co" {
		t.Errorf("DisplayName = %q, want %q", profile.DisplayName, "Ivan &amp; Co")
	}
}

// TestValidateSession_NameFallback は表示名が見つからない場合にプレースホルダを返すことを検証する。
func TestValidateSession_NameFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>no name here</p></body></html>`)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), testLogger())

	profile, err := client.ValidateSession(context.Background(), "s")
	if err != nil {
		t.Fatalf("ValidateSession returned error: %v", err)
	}
	if profile.DisplayName != "Student" {
		t.Errorf("DisplayName = %q, want %q", profile.DisplayName, "Student")
	}
}

// TestValidateSession_RejectedStatus は非2xxステータスで検証失敗になることを検証する。
func TestValidateSession_RejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), testLogger())

	_, err := client.ValidateSession(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected error for rejected credential")
	}
	if !model.IsValidationFailed(err) {
		t.Errorf("expected VALIDATION_FAILED, got: %v", err)
	}
}

// TestValidateSession_RedirectedOffHost はステータス200でも最終URLが
// 上流ホスト外であれば検証失敗になることを検証する。
func TestValidateSession_RedirectedOffHost(t *testing.T) {
	var redirectTo string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/profile" {
			// 127.0.0.1へのリダイレクト。クライアント設定のlocalhostホスト名と一致しない
			http.Redirect(w, r, redirectTo, http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "login page")
	}))
	defer server.Close()
	redirectTo = server.URL + "/sso-login"

	// ベースURLのホスト名をlocalhostに書き換える。リダイレクト先は127.0.0.1のまま
	// なので、ステータス200でも最終ホストが一致しない。
	port := strings.TrimPrefix(server.URL, "http://127.0.0.1:")
	client := NewClient("http://localhost:"+port, &http.Client{}, testLogger())

	_, err := client.ValidateSession(context.Background(), "session")
	if err == nil {
		t.Fatal("expected error when redirected off the upstream host")
	}
	if !model.IsValidationFailed(err) {
		t.Errorf("expected VALIDATION_FAILED, got: %v", err)
	}
}

// TestGetTrainings はスケジュール取得のクエリ構築とデコードを検証する。
func TestGetTrainings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/calendar/trainings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("start") != "2026-03-01T00:00:00" {
			t.Errorf("start = %q", q.Get("start"))
		}
		if q.Get("end") != "2026-03-15T00:00:00" {
			t.Errorf("end = %q", q.Get("end"))
		}
		if q.Get("timeZone") != "Europe/Moscow" {
			t.Errorf("timeZone = %q", q.Get("timeZone"))
		}
		fmt.Fprint(w, `[
			{"title":"Yoga","start":"2026-03-02T18:00:00","end":"2026-03-02T19:30:00",
			 "extendedProps":{"id":101,"checked_in":true,"training_class":"Hall A"}},
			{"title":"Boxing","start":"2026-03-03T10:00:00","end":"2026-03-03T11:00:00",
			 "extendedProps":{"id":102,"checked_in":false,"training_class":"Hall B"}}
		]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), testLogger())

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	trainings, err := client.GetTrainings(context.Background(), "s", start, end, "Europe/Moscow")
	if err != nil {
		t.Fatalf("GetTrainings returned error: %v", err)
	}
	if len(trainings) != 2 {
		t.Fatalf("len(trainings) = %d, want 2", len(trainings))
	}
	if trainings[0].ExtendedProps.ID != 101 || !trainings[0].ExtendedProps.CheckedIn {
		t.Errorf("first training = %+v", trainings[0])
	}
	if trainings[1].ExtendedProps.CheckedIn {
		t.Errorf("second training should not be checked in")
	}
}

// TestGetTrainings_UpstreamError は上流エラー時にエラーが返ることを検証する。
func TestGetTrainings_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), testLogger())

	_, err := client.GetTrainings(context.Background(), "s", time.Now(), time.Now(), "UTC")
	if err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

// TestGetTrainingDetail はネストしたワイヤーフォーマットの正規化を検証する。
func TestGetTrainingDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/training/101" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"training":{"group":{
			"sport":{"description":"Hatha yoga basics"},
			"teachers":[{"first_name":"Jane","last_name":"Doe","email":"jane@x"}],
			"accredited":true
		}}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), testLogger())

	detail, err := client.GetTrainingDetail(context.Background(), "s", 101)
	if err != nil {
		t.Fatalf("GetTrainingDetail returned error: %v", err)
	}
	if detail.Description != "Hatha yoga basics" {
		t.Errorf("Description = %q", detail.Description)
	}
	if len(detail.Teachers) != 1 || detail.Teachers[0].Email != "jane@x" {
		t.Errorf("Teachers = %+v", detail.Teachers)
	}
	if !detail.Accredited {
		t.Error("Accredited should be true")
	}
}
