package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"standup-agent/project/domain"
)

// contextSearchLimit は自動応答のコンテキストに含める過去メッセージの上限です
const contextSearchLimit = 3

// actionTimeout は起床後の外部API呼び出し（プレゼンス・検索・AI・投稿）全体の
// タイムアウトです。ネットワーク障害でウォッチャーが固まるのを防ぎます
const actionTimeout = 60 * time.Second

// MentionWatcher はメンション1件のライフサイクルを所有するウォッチャーです。
// 監視対象1件につき Watch を1つのゴルーチンで実行します。
// ウォッチャー同士はレジストリのアトミック操作以外で状態を共有しません
type MentionWatcher struct {
	wait     time.Duration
	registry *MentionRegistry
	gate     *ReplyGate
	sp       SlackPort
	ai       AIPort
}

// NewMentionWatcher はウォッチャーを作成します。
// wait は起床までの待機時間です（運用既定は5分）
func NewMentionWatcher(wait time.Duration, registry *MentionRegistry, gate *ReplyGate, sp SlackPort, ai AIPort) *MentionWatcher {
	return &MentionWatcher{
		wait:     wait,
		registry: registry,
		gate:     gate,
		sp:       sp,
		ai:       ai,
	}
}

// Watch は待機 → 判定 → （条件を満たせば）自動応答投稿を実行します。
//
// 起床後の最初の動作は必ず Resolve です。エントリが既に消えていれば
// オーナーが返信済みなので何もせず終了します。Resolve が成功した時点で
// エントリの削除は完了しており、以降ゲートで抑止されても投稿に失敗しても
// 二重削除・二重投稿は起こりません。
//
// ウォッチャー内の失敗はすべてこの関数内で完結し、他のウォッチャーや
// レジストリには波及しません
func (w *MentionWatcher) Watch(ctx context.Context, m *domain.PendingMention, ownerUserID string) {
	// 待機フェーズ。この間は何もしない（ポーリングもしない）
	select {
	case <-time.After(w.wait):
	case <-ctx.Done():
		// プロセス終了。投稿前なので何もせず抜ける
		return
	}

	key := m.Key()

	// 判定フェーズ: アトミックに削除を試みる。ここが唯一の判定点
	if !w.registry.Resolve(key) {
		// オーナーが先に返信済み（または別ウォッチャーが処理済み）
		return
	}

	// 起床後の外部呼び出しは親コンテキストから切り離す。
	// Resolve 通過後は中断せず完了まで実行する設計のため
	actx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	// ゲートフェーズ: どちらかに該当すれば投稿せず終了（エントリは削除済み）
	if w.gate.ContainsSensitiveTopic(m.Text) {
		log.Printf("ウォッチャー: センシティブな話題のため自動応答をスキップ (key=%s)", key)
		return
	}
	if w.gate.OwnerActive(actx, m.TeamID, ownerUserID) {
		log.Printf("ウォッチャー: オーナーがアクティブのため自動応答をスキップ (key=%s)", key)
		return
	}

	// 応答フェーズ: AI呼び出しと投稿。失敗してもリトライしない（ベストエフォート）
	if err := w.respond(actx, m, ownerUserID); err != nil {
		log.Printf("ウォッチャー: 自動応答失敗 (key=%s): %v", key, err)
		return
	}

	log.Printf("ウォッチャー: 自動応答を投稿しました (key=%s)", key)
}

// respond はコンテキストを収集してAIに問い合わせ、スレッドに返信を投稿します
func (w *MentionWatcher) respond(ctx context.Context, m *domain.PendingMention, ownerUserID string) error {
	prompt := w.buildPrompt(ctx, m, ownerUserID)

	completion, err := w.ai.Complete(ctx, prompt, 500)
	if err != nil {
		return fmt.Errorf("AI呼び出し失敗: %w", err)
	}

	reply := fmt.Sprintf(
		"👋 こんにちは！<@%s> さんのAIアシスタントです。本人がまだ返信できていないため、代わりにお答えします。\n\n%s\n\n_<@%s> さんが確認でき次第、あらためて返信します。_",
		ownerUserID,
		completion,
		ownerUserID,
	)

	if err := w.sp.PostThreadMessage(ctx, m.TeamID, m.ChannelID, m.ThreadTS, reply); err != nil {
		return fmt.Errorf("スレッド投稿失敗: %w", err)
	}

	return nil
}

// buildPrompt は元のメンション本文と、検索で得た関連メッセージから
// AIへのプロンプトを組み立てます。検索失敗時はコンテキストなしで続行します
func (w *MentionWatcher) buildPrompt(ctx context.Context, m *domain.PendingMention, ownerUserID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Someone asked: %q\n", m.Text)

	// 検索クエリは本文の先頭100文字まで
	query := truncateRunes(m.Text, 100)
	history, err := w.sp.SearchMessages(ctx, m.TeamID, query, contextSearchLimit)
	if err != nil {
		// コンテキストなしで続行（自動応答自体は中断しない）
		log.Printf("ウォッチャー: 履歴検索失敗、コンテキストなしで続行 (team=%s): %v", m.TeamID, err)
	} else if len(history) > 0 {
		b.WriteString("\nRelevant past messages:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "- %s\n", truncateRunes(msg.Text, 200))
		}
	}

	fmt.Fprintf(&b, `
You are the AI assistant of Slack user <@%s>, who has not responded yet. Provide a helpful reply that:
1. Acknowledges you are the assistant
2. Provides useful information if possible
3. Asks clarifying questions if needed
4. Mentions the owner will follow up

Keep it brief and professional.`, ownerUserID)

	return b.String()
}
