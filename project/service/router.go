package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"standup-agent/project/domain"
)

// EventRouter は受信メッセージイベントを分類して振り分けるサービスです
type EventRouter interface {
	// OnMessage は message イベント受信時に呼ばれ、
	// DM応答・メンション監視登録・監視キャンセルのいずれかを実行します
	OnMessage(ctx context.Context, ev *MessageEvent) error

	// OnAppMention は app_mention イベント受信時に呼ばれ、即時応答します
	OnAppMention(ctx context.Context, ev *MentionEvent) error
}

// eventRouter は EventRouter の実装です
type eventRouter struct {
	tr        domain.TenantRepository
	registry  *MentionRegistry
	assistant Assistant

	// startWatcher は監視ゴルーチンを起動します。テストでは同期実行に差し替えます
	startWatcher func(m *domain.PendingMention, ownerUserID string)
}

// NewEventRouter はルーターを作成します
func NewEventRouter(tr domain.TenantRepository, registry *MentionRegistry, watcher *MentionWatcher, assistant Assistant) EventRouter {
	return &eventRouter{
		tr:        tr,
		registry:  registry,
		assistant: assistant,
		startWatcher: func(m *domain.PendingMention, ownerUserID string) {
			go watcher.Watch(context.Background(), m, ownerUserID)
		},
	}
}

// OnMessage はメッセージイベントを分類して処理します
func (r *eventRouter) OnMessage(ctx context.Context, ev *MessageEvent) error {
	// Bot投稿（自分自身のエコーを含む）は無視
	if ev.IsBot {
		return nil
	}

	// 編集・削除などの二次通知は無視。人間の新規投稿のみ処理する
	if ev.SubType != "" {
		return nil
	}

	// DMはレジストリを経由せず同期応答
	if ev.ChannelType == "im" {
		return r.assistant.HandleDirectMessage(ctx, ev)
	}

	// チャンネルメッセージ: 登録済みオーナーを取得
	ownerUserID, err := r.tr.GetRegisteredOwner(ctx, ev.TeamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// オーナー未登録のワークスペースは監視対象外
			return nil
		}
		return fmt.Errorf("OnMessage: オーナー取得失敗: %w", err)
	}

	threadTS := ev.ThreadRootTS()
	key := domain.MentionKey(ev.TeamID, ev.ChannelID, threadTS)

	// オーナー本人の投稿: 同一スレッドの監視があればキャンセル
	if ev.UserID == ownerUserID {
		if r.registry.Resolve(key) {
			log.Printf("ルーター: オーナーが返信したため自動応答をキャンセル (key=%s)", key)
		}
		return nil
	}

	// 他者によるオーナーメンション: 監視登録してウォッチャーを起動
	if !hasMentionToUser(ev.Text, ownerUserID) {
		return nil
	}

	m := &domain.PendingMention{
		TeamID:    ev.TeamID,
		ChannelID: ev.ChannelID,
		ThreadTS:  threadTS,
		Text:      ev.Text,
		CreatedAt: ev.NowUnix,
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("OnMessage: メンション検証失敗: %w", err)
	}

	// 同一スレッドで複数メンションが来た場合は上書き登録となり、
	// 起動済みウォッチャーのうち1つだけが Resolve に成功する
	r.registry.Register(m)
	r.startWatcher(m, ownerUserID)

	log.Printf("ルーター: メンションを監視登録 (key=%s)", key)
	return nil
}

// OnAppMention はボット宛メンションへの即時応答をアシスタントに委譲します
func (r *eventRouter) OnAppMention(ctx context.Context, ev *MentionEvent) error {
	return r.assistant.HandleAppMention(ctx, ev)
}

// hasMentionToUser は text 内に特定ユーザーへの @メンション があるか判定します
func hasMentionToUser(text, userID string) bool {
	if text == "" || userID == "" {
		return false
	}
	// Slack メンション形式: <@USERID>
	return containsMentionTag(text, userID)
}
