package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"standup-agent/project/domain"
)

// Assistant はDM応答・ボット宛メンション応答・朝会プロンプト送信を担当します
type Assistant interface {
	// HandleDirectMessage はDMを解析してカレンダー操作またはAI応答を返します
	HandleDirectMessage(ctx context.Context, ev *MessageEvent) error

	// HandleAppMention はボット宛メンションにスレッド内で即時応答します
	HandleAppMention(ctx context.Context, ev *MentionEvent) error

	// SendDailyStandup は登録済みオーナーへ朝会プロンプトをDM送信します
	SendDailyStandup(ctx context.Context) error
}

// assistant は Assistant の実装です
type assistant struct {
	tr  domain.TenantRepository
	sp  SlackPort
	ai  AIPort
	cal CalendarPort

	// standupTeamID は朝会プロンプトの送信先ワークスペースのID
	standupTeamID string

	// now はテストで時刻を固定するためのフックです
	now func() time.Time
}

// NewAssistant はアシスタントサービスを作成します
func NewAssistant(tr domain.TenantRepository, sp SlackPort, ai AIPort, cal CalendarPort, standupTeamID string) Assistant {
	return &assistant{
		tr:            tr,
		sp:            sp,
		ai:            ai,
		cal:           cal,
		standupTeamID: standupTeamID,
		now:           time.Now,
	}
}

// deletionRequest はAIが抽出したイベント削除の詳細です
type deletionRequest struct {
	EventTitle  string `json:"event_title"`
	DateContext string `json:"date_context"` // "today" / "tomorrow" / 空
}

// creationRequest はAIが抽出したイベント作成の詳細です
type creationRequest struct {
	Title     string   `json:"title"`
	Date      string   `json:"date"` // YYYY-MM-DD
	Time      string   `json:"time"` // HH:MM（24時間表記）
	Duration  int      `json:"duration"`
	Attendees []string `json:"attendees"`
}

// HandleDirectMessage はDM本文を3種類のリクエストに分類して処理します。
// 優先順位: 1. イベント削除 2. イベント作成 3. カレンダー文脈つき一般質問
func (a *assistant) HandleDirectMessage(ctx context.Context, ev *MessageEvent) error {
	lower := strings.ToLower(ev.Text)

	// --- 分岐1: イベント削除 ---
	if containsAny(lower, "delete", "cancel", "remove") && containsAny(lower, "meeting", "event", "call") {
		return a.handleEventDeletion(ctx, ev)
	}

	// --- 分岐2: イベント作成 ---
	if strings.Contains(lower, "schedule") && containsAny(lower, "meeting", "call", "event") {
		return a.handleEventCreation(ctx, ev)
	}

	// --- 分岐3: 一般質問（必要ならカレンダー文脈を付与） ---
	return a.handleGeneralQuery(ctx, ev, lower)
}

// handleEventDeletion はAIでタイトルと日付を抽出してカレンダーから削除します
func (a *assistant) handleEventDeletion(ctx context.Context, ev *MessageEvent) error {
	prompt := fmt.Sprintf(`Extract the event deletion details from this message: %q

Return ONLY a JSON object with these fields:
- event_title: the name/partial name of the event to delete
- date_context: "today", "tomorrow", or null for today

Example: "Delete the Product Sync meeting tomorrow" -> {"event_title": "Product Sync", "date_context": "tomorrow"}`, ev.Text)

	raw, err := a.ai.Complete(ctx, prompt, 500)
	if err != nil {
		return a.reply(ctx, ev, "削除リクエストの解析に失敗しました。もう一度お試しください。")
	}

	var req deletionRequest
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &req); err != nil {
		return a.reply(ctx, ev, "削除リクエストをうまく理解できませんでした。イベント名を具体的に指定してください。")
	}
	if req.EventTitle == "" {
		return a.reply(ctx, ev, "削除するイベント名を指定してください。")
	}

	days := 0
	if req.DateContext == "tomorrow" {
		days = 1
	}

	deleted, matches, err := a.cal.DeleteEventByTitle(ctx, req.EventTitle, days)
	if err != nil {
		return a.reply(ctx, ev, fmt.Sprintf("イベント削除に失敗しました: %v", err))
	}
	if deleted {
		return a.reply(ctx, ev, fmt.Sprintf("イベントを削除しました: %s\n参加者にキャンセル通知を送信しました。", req.EventTitle))
	}
	if len(matches) == 0 {
		return a.reply(ctx, ev, fmt.Sprintf("「%s」に一致するイベントが見つかりませんでした。", req.EventTitle))
	}

	// 複数一致: 誤削除を避けるため候補を提示して絞り込みを依頼
	var b strings.Builder
	fmt.Fprintf(&b, "「%s」に一致するイベントが複数見つかりました:\n", req.EventTitle)
	for _, m := range matches {
		fmt.Fprintf(&b, "- %s (%s)\n", m.Summary, m.Start)
	}
	b.WriteString("\nイベント名をもう少し具体的に指定してください。")
	return a.reply(ctx, ev, b.String())
}

// handleEventCreation はAIでイベント詳細を抽出してカレンダーに登録します
func (a *assistant) handleEventCreation(ctx context.Context, ev *MessageEvent) error {
	prompt := fmt.Sprintf(`Extract the event details from this message: %q

Return ONLY a JSON object with these fields:
- title: the event name/summary
- date: YYYY-MM-DD format
- time: HH:MM format in 24-hour time
- duration: number of minutes (default 60)
- attendees: array of email addresses

Today's date is %s`, ev.Text, a.now().Format("2006-01-02"))

	raw, err := a.ai.Complete(ctx, prompt, 500)
	if err != nil {
		return a.reply(ctx, ev, "予定作成リクエストの解析に失敗しました。もう一度お試しください。")
	}

	var req creationRequest
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &req); err != nil {
		return a.reply(ctx, ev, "予定作成リクエストをうまく理解できませんでした。日時とタイトルを含めてください。")
	}
	if req.Title == "" || req.Date == "" || req.Time == "" {
		return a.reply(ctx, ev, "イベントの詳細（タイトル・日付・時刻）をすべて読み取れませんでした。")
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", fmt.Sprintf("%s %s", req.Date, req.Time), a.now().Location())
	if err != nil {
		return a.reply(ctx, ev, fmt.Sprintf("日時の形式が不正です: %v", err))
	}

	link, err := a.cal.CreateEvent(ctx, &CalendarEventInput{
		Summary:         req.Title,
		Start:           start,
		DurationMinutes: req.Duration,
		AttendeeEmails:  req.Attendees,
	})
	if err != nil {
		return a.reply(ctx, ev, fmt.Sprintf("イベント作成に失敗しました: %v", err))
	}

	text := fmt.Sprintf("イベントを作成しました: %s（%s）", req.Title, start.Format("2006-01-02 15:04"))
	if link != "" {
		text += fmt.Sprintf("\nリンク: %s", link)
	}
	if len(req.Attendees) > 0 {
		text += fmt.Sprintf("\n\n招待を送信しました: %s", strings.Join(req.Attendees, ", "))
	}
	return a.reply(ctx, ev, text)
}

// handleGeneralQuery は一般質問に応答します。
// 本文がカレンダーに言及している場合は該当日の予定を文脈として付与します
func (a *assistant) handleGeneralQuery(ctx context.Context, ev *MessageEvent, lower string) error {
	calendarInfo := ""
	daysOffset := -1
	if strings.Contains(lower, "tomorrow") {
		daysOffset = 1
	} else if containsAny(lower, "today", "calendar", "meeting") {
		daysOffset = 0
	}

	if daysOffset >= 0 {
		events, err := a.cal.ListEvents(ctx, daysOffset)
		if err != nil {
			// カレンダー取得失敗はAI応答を妨げない
			log.Printf("アシスタント: カレンダー取得失敗 (team=%s): %v", ev.TeamID, err)
		} else {
			calendarInfo = fmt.Sprintf("\n\nCalendar information:\n%s", formatEventList(events, daysOffset))
		}
	}

	answer, err := a.ai.Complete(ctx, ev.Text+calendarInfo, 1000)
	if err != nil {
		return fmt.Errorf("HandleDirectMessage: AI応答失敗: %w", err)
	}
	return a.reply(ctx, ev, answer)
}

// HandleAppMention はボット宛メンションへスレッド内で即時応答します
func (a *assistant) HandleAppMention(ctx context.Context, ev *MentionEvent) error {
	clean := stripMentionTags(ev.Text)
	if clean == "" {
		// メンションタグのみのメッセージ: 既定のあいさつプロンプトにフォールバック
		clean = "Someone mentioned you. Greet them and let them know what you can help with."
	}

	prompt := fmt.Sprintf(
		"You are a personal AI assistant in a Slack channel. Someone just asked: %q. "+
			"Respond helpfully and concisely. If you don't have enough context to fully answer, say so and offer to help further.",
		clean,
	)

	answer, err := a.ai.Complete(ctx, prompt, 500)
	if err != nil {
		log.Printf("アシスタント: ボット宛メンション応答失敗 (team=%s): %v", ev.TeamID, err)
		// AI失敗時も利用者には短い謝罪を返す
		return a.sp.PostThreadMessage(ctx, ev.TeamID, ev.ChannelID, ev.ThreadTS,
			"申し訳ありません、メッセージの処理中に問題が発生しました。もう一度お試しください。")
	}

	return a.sp.PostThreadMessage(ctx, ev.TeamID, ev.ChannelID, ev.ThreadTS, answer)
}

// SendDailyStandup は当日の予定つき朝会プロンプトをオーナーにDM送信します
func (a *assistant) SendDailyStandup(ctx context.Context) error {
	ownerUserID, err := a.tr.GetRegisteredOwner(ctx, a.standupTeamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// オーナー未登録なら何もしない
			return nil
		}
		return fmt.Errorf("SendDailyStandup: オーナー取得失敗: %w", err)
	}

	calendarInfo := ""
	events, err := a.cal.ListEvents(ctx, 0)
	if err != nil {
		log.Printf("アシスタント: 朝会用カレンダー取得失敗: %v", err)
		calendarInfo = "（カレンダーを取得できませんでした）"
	} else {
		calendarInfo = formatEventList(events, 0)
	}

	message := fmt.Sprintf("おはようございます！今日は何に取り組みますか？\n\n今日の予定:\n%s", calendarInfo)
	if err := a.sp.PostDM(ctx, a.standupTeamID, ownerUserID, message); err != nil {
		return fmt.Errorf("SendDailyStandup: DM送信失敗: %w", err)
	}
	return nil
}

// reply はDMの送信元チャンネルへ応答を投稿します
func (a *assistant) reply(ctx context.Context, ev *MessageEvent, text string) error {
	return a.sp.PostChannelMessage(ctx, ev.TeamID, ev.ChannelID, text)
}

// formatEventList はイベント一覧を「- タイトル at 開始時刻」形式に整形します
func formatEventList(events []CalendarEvent, daysOffset int) string {
	if len(events) == 0 {
		day := "today"
		if daysOffset == 1 {
			day = "tomorrow"
		} else if daysOffset > 1 {
			day = fmt.Sprintf("in %d days", daysOffset)
		}
		return fmt.Sprintf("No events scheduled for %s.", day)
	}

	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("- %s at %s", ev.Summary, ev.Start))
	}
	return strings.Join(lines, "\n")
}

// containsAny は s に候補語のいずれかが含まれるかを返します
func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
