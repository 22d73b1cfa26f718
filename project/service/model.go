package service

import "time"

// MessageEvent はSlackから受信した1件のメッセージイベントを表します
type MessageEvent struct {
	// TeamID はSlackワークスペースのID
	TeamID string

	// ChannelID はメッセージが投稿されたチャンネルのID
	ChannelID string

	// ChannelType はチャンネル種別（"im" = DM）
	ChannelType string

	// MessageTS はメッセージ自身のタイムスタンプ
	MessageTS string

	// ThreadTS はスレッドルートのタイムスタンプ（スレッド外の場合は空）
	ThreadTS string

	// UserID はメッセージ送信者のユーザーID
	UserID string

	// Text はメッセージ本文
	Text string

	// IsBot はBot投稿（自分自身のエコーを含む）かどうか
	IsBot bool

	// SubType はメッセージのサブタイプ（編集・削除通知など。通常投稿は空）
	SubType string

	// NowUnix はイベント処理時刻（Unix秒）
	NowUnix int64
}

// ThreadRootTS はスレッドルートのTSを返します。
// スレッド外のメッセージは自身のTSがルートになります
func (ev *MessageEvent) ThreadRootTS() string {
	if ev.ThreadTS != "" {
		return ev.ThreadTS
	}
	return ev.MessageTS
}

// MentionEvent はボット宛の app_mention イベントを表します
type MentionEvent struct {
	// TeamID はSlackワークスペースのID
	TeamID string

	// ChannelID はメンションが投稿されたチャンネルのID
	ChannelID string

	// ThreadTS は返信先スレッドのタイムスタンプ
	ThreadTS string

	// UserID はメンションを投稿したユーザーID
	UserID string

	// Text はメッセージ本文（<@BOT> タグを含む）
	Text string
}

// HistoryMessage は検索で取得した過去メッセージ1件を表します
type HistoryMessage struct {
	// Text はメッセージ本文
	Text string

	// Timestamp はメッセージのタイムスタンプ
	Timestamp string
}

// CalendarEvent はカレンダー上のイベント1件を表します
type CalendarEvent struct {
	// ID はプロバイダー側のイベントID
	ID string

	// Summary はイベントのタイトル
	Summary string

	// Start はイベントの開始時刻（終日イベントは日付のみ）
	Start string
}

// CalendarEventInput はイベント作成の入力を表します
type CalendarEventInput struct {
	// Summary はイベントのタイトル
	Summary string

	// Start はイベントの開始時刻
	Start time.Time

	// DurationMinutes はイベントの長さ（分）。0の場合は60分
	DurationMinutes int

	// AttendeeEmails は招待する参加者のメールアドレス一覧
	AttendeeEmails []string
}
