package service

import "context"

// SlackPort は Slack API 呼び出しのポートです
type SlackPort interface {
	// PostThreadMessage はスレッドにメッセージを投稿します
	PostThreadMessage(ctx context.Context, teamID, channelID, threadTS, text string) error

	// PostChannelMessage はチャンネル（DMチャンネルを含む）にメッセージを投稿します
	PostChannelMessage(ctx context.Context, teamID, channelID, text string) error

	// PostDM は指定されたユーザーにDMを送信します
	PostDM(ctx context.Context, teamID, userID, text string) error

	// GetPresence は指定ユーザーのプレゼンス（"active" / "away"）を返します
	GetPresence(ctx context.Context, teamID, userID string) (string, error)

	// SearchMessages はクエリに一致する過去メッセージを最大limit件返します
	// 自動応答のコンテキスト収集に使用します
	SearchMessages(ctx context.Context, teamID, query string, limit int) ([]HistoryMessage, error)
}

// AIPort は生成AIサービス呼び出しのポートです
type AIPort interface {
	// Complete はプロンプトを1回だけ送信し、生成されたテキストを返します
	// ストリーミングやリトライは行いません
	Complete(ctx context.Context, prompt string, maxTokens int64) (string, error)
}

// CalendarPort はカレンダープロバイダー呼び出しのポートです
type CalendarPort interface {
	// ListEvents は今日からdaysOffset日後の1日分のイベントを開始時刻順に返します
	ListEvents(ctx context.Context, daysOffset int) ([]CalendarEvent, error)

	// CreateEvent はイベントを作成し、参加者に招待を送信します
	// 戻り値は作成されたイベントのリンクURL（取得できない場合は空文字列）
	CreateEvent(ctx context.Context, ev *CalendarEventInput) (string, error)

	// DeleteEventByTitle はタイトル部分一致でイベントを検索して削除します
	// 一致が複数ある場合は削除せず候補一覧を返します（deleted=false）
	DeleteEventByTitle(ctx context.Context, title string, daysOffset int) (deleted bool, matches []CalendarEvent, err error)
}
