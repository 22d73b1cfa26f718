package domain

import (
	"fmt"
	"strings"
)

// ワークスペース（Slackチーム）ごとの設定。
// firestoreタグはストアの書き込みキーと一致させること —
// ずれるとDataToが復元できず常にゼロ値が返ります
type Tenant struct {
	// TeamID はSlackワークスペースのID
	TeamID string `firestore:"team_id"`

	// OwnerUserID は代理応答の対象となるオーナーのSlackユーザーID。
	// nilの場合はオーナー未登録を表します
	OwnerUserID *string `firestore:"owner_user_id"`

	// BotTokenSecretName はSecret Managerに保存されたBotトークンのシークレット名
	BotTokenSecretName string `firestore:"bot_token_secret_name"`

	// CreatedAt はレコードの作成日時（Unix秒）
	CreatedAt int64 `firestore:"created_at"`
}

// 自動応答待ちの監視対象メンション構造体。
// レジストリへの登録時に作成され、更新されることはありません（登録と削除のみ）
type PendingMention struct {
	// TeamID はSlackワークスペースのID
	TeamID string

	// ChannelID はメンションが発生したチャンネルのID
	ChannelID string

	// ThreadTS はスレッドルートメッセージのタイムスタンプ。
	// スレッド外のメッセージの場合はメッセージ自身のTSがルートになります
	ThreadTS string

	// Text はオーナーをメンションしたメッセージの本文（そのまま保持）
	Text string

	// CreatedAt はレコードの作成日時（Unix秒）
	CreatedAt int64
}

// MentionKey は監視対象メンションの一意キーを生成します
// 形式: "team:channel:thread_ts" — 1スレッドにつき同時に1件のみ
func MentionKey(teamID, channelID, threadTS string) string {
	return fmt.Sprintf("%s:%s:%s", teamID, channelID, threadTS)
}

// Key は PendingMention 自身の一意キーを返します
func (p PendingMention) Key() string {
	return MentionKey(p.TeamID, p.ChannelID, p.ThreadTS)
}

// Validate はTenantの必須項目を検証します
func (t Tenant) Validate() error {
	if strings.TrimSpace(t.TeamID) == "" {
		return fmt.Errorf("%w: TeamIDは必須項目です", ErrInvalid)
	}
	if strings.TrimSpace(t.BotTokenSecretName) == "" {
		return fmt.Errorf("%w: BotTokenSecretNameは必須項目です", ErrInvalid)
	}
	if t.CreatedAt <= 0 {
		return fmt.Errorf("%w: CreatedAtは0より大きい必要があります", ErrInvalid)
	}
	return nil
}

// Validate はPendingMentionの必須項目を検証します
func (p PendingMention) Validate() error {
	if strings.TrimSpace(p.TeamID) == "" {
		return fmt.Errorf("%w: TeamIDは必須項目です", ErrInvalid)
	}
	if strings.TrimSpace(p.ChannelID) == "" {
		return fmt.Errorf("%w: ChannelIDは必須項目です", ErrInvalid)
	}
	if strings.TrimSpace(p.ThreadTS) == "" {
		return fmt.Errorf("%w: ThreadTSは必須項目です", ErrInvalid)
	}
	if p.CreatedAt <= 0 {
		return fmt.Errorf("%w: CreatedAtは0より大きい必要があります", ErrInvalid)
	}
	return nil
}
