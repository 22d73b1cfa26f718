package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"standup-agent/project/infrastructure/config"
	"standup-agent/project/service"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendar は service.CalendarPort の Google Calendar API 実装です
type GoogleCalendar struct {
	svc        *calendar.Service
	calendarID string
	timezone   string
}

// NewGoogleCalendar は保存済みのOAuthトークンからカレンダークライアントを初期化します。
// 初回認可（ブラウザでの同意フロー）はデプロイ前に済ませておき、
// 取得したトークンを CalendarTokenFile に配置する運用です
func NewGoogleCalendar(ctx context.Context, cfg *config.Config) (*GoogleCalendar, error) {
	credBytes, err := os.ReadFile(cfg.CalendarCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("calendar: 認証情報ファイル読み込み失敗 (%s): %w", cfg.CalendarCredentialsFile, err)
	}

	oauthCfg, err := google.ConfigFromJSON(credBytes, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("calendar: OAuth設定の解析失敗: %w", err)
	}

	tokenBytes, err := os.ReadFile(cfg.CalendarTokenFile)
	if err != nil {
		return nil, fmt.Errorf("calendar: トークンファイル読み込み失敗 (%s): %w", cfg.CalendarTokenFile, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenBytes, &token); err != nil {
		return nil, fmt.Errorf("calendar: トークンの解析失敗: %w", err)
	}

	// リフレッシュトークンによる更新はクライアントが自動で行う
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("calendar: サービス初期化失敗: %w", err)
	}

	return &GoogleCalendar{
		svc:        svc,
		calendarID: cfg.CalendarID,
		timezone:   cfg.CalendarTimezone,
	}, nil
}

// dayWindow は今日からdaysOffset日後の1日分のUTC境界をRFC3339で返します
func dayWindow(daysOffset int) (string, string) {
	target := time.Now().UTC().AddDate(0, 0, daysOffset)
	start := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(target.Year(), target.Month(), target.Day(), 23, 59, 59, 0, time.UTC)
	return start.Format(time.RFC3339), end.Format(time.RFC3339)
}

// listDay は指定日のイベントを開始時刻順に取得します
func (gc *GoogleCalendar) listDay(ctx context.Context, daysOffset int) ([]*calendar.Event, error) {
	dayStart, dayEnd := dayWindow(daysOffset)

	result, err := gc.svc.Events.List(gc.calendarID).
		TimeMin(dayStart).
		TimeMax(dayEnd).
		SingleEvents(true). // 繰り返しイベントは個別の回に展開する
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: イベント一覧取得失敗: %w", err)
	}

	return result.Items, nil
}

// ListEvents は指定日のイベント一覧を返します
func (gc *GoogleCalendar) ListEvents(ctx context.Context, daysOffset int) ([]service.CalendarEvent, error) {
	items, err := gc.listDay(ctx, daysOffset)
	if err != nil {
		return nil, err
	}

	events := make([]service.CalendarEvent, 0, len(items))
	for _, item := range items {
		events = append(events, service.CalendarEvent{
			ID:      item.Id,
			Summary: item.Summary,
			Start:   eventStart(item),
		})
	}

	return events, nil
}

// CreateEvent はイベントを作成し、参加者に招待を送信します
func (gc *GoogleCalendar) CreateEvent(ctx context.Context, in *service.CalendarEventInput) (string, error) {
	duration := in.DurationMinutes
	if duration <= 0 {
		duration = 60
	}
	end := in.Start.Add(time.Duration(duration) * time.Minute)

	event := &calendar.Event{
		Summary: in.Summary,
		Start: &calendar.EventDateTime{
			DateTime: in.Start.Format(time.RFC3339),
			TimeZone: gc.timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: gc.timezone,
		},
	}

	// 参加者を指定すると Google 側から招待メールが送信される
	for _, email := range in.AttendeeEmails {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	created, err := gc.svc.Events.Insert(gc.calendarID, event).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("calendar: イベント作成失敗: %w", err)
	}

	return created.HtmlLink, nil
}

// DeleteEventByTitle はタイトル部分一致（大文字小文字を区別しない）で
// イベントを検索し、一致が1件の場合のみ削除します。
// 複数一致の場合は誤削除を避けるため削除せず候補を返します
func (gc *GoogleCalendar) DeleteEventByTitle(ctx context.Context, title string, daysOffset int) (bool, []service.CalendarEvent, error) {
	items, err := gc.listDay(ctx, daysOffset)
	if err != nil {
		return false, nil, err
	}

	lowerTitle := strings.ToLower(title)
	var matches []service.CalendarEvent
	var matchedItems []*calendar.Event
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Summary), lowerTitle) {
			matches = append(matches, service.CalendarEvent{
				ID:      item.Id,
				Summary: item.Summary,
				Start:   eventStart(item),
			})
			matchedItems = append(matchedItems, item)
		}
	}

	if len(matchedItems) != 1 {
		return false, matches, nil
	}

	err = gc.svc.Events.Delete(gc.calendarID, matchedItems[0].Id).
		SendUpdates("all"). // 参加者にキャンセル通知を送信
		Context(ctx).
		Do()
	if err != nil {
		return false, matches, fmt.Errorf("calendar: イベント削除失敗 (id=%s): %w", matchedItems[0].Id, err)
	}

	return true, matches, nil
}

// eventStart は開始時刻を返します。終日イベントは日付のみになります
func eventStart(item *calendar.Event) string {
	if item.Start == nil {
		return ""
	}
	if item.Start.DateTime != "" {
		return item.Start.DateTime
	}
	return item.Start.Date
}
