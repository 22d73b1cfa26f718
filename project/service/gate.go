package service

import (
	"context"
	"log"
	"strings"
)

// SensitivePolicy はメッセージ本文から自動応答を抑止すべきかを判定する
// ポリシーです。判定方法を差し替えてもウォッチャー側は変わりません
type SensitivePolicy interface {
	// ContainsSensitiveTopic は本文にセンシティブな話題が含まれるかを返します
	ContainsSensitiveTopic(text string) bool
}

// KeywordPolicy は固定の拒否リストによる大文字小文字を区別しない
// 部分一致判定です
type KeywordPolicy struct {
	keywords []string
}

// DefaultSensitiveKeywords は自動応答を抑止するキーワード一覧です
var DefaultSensitiveKeywords = []string{
	"personal", "private", "confidential", "sensitive", "1:1", "one-on-one",
}

// NewKeywordPolicy はキーワード拒否リストのポリシーを作成します。
// keywordsが空の場合は DefaultSensitiveKeywords を使用します
func NewKeywordPolicy(keywords []string) *KeywordPolicy {
	if len(keywords) == 0 {
		keywords = DefaultSensitiveKeywords
	}
	return &KeywordPolicy{keywords: keywords}
}

// ContainsSensitiveTopic は拒否リストのいずれかが本文に含まれるかを返します
func (p *KeywordPolicy) ContainsSensitiveTopic(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range p.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ReplyGate は自動応答を実際に送るべきかを判定するゲートです。
// プレゼンス確認とセンシティブ判定のみを行い、レジストリは操作しません
type ReplyGate struct {
	sp     SlackPort
	policy SensitivePolicy

	// presenceFailOpen が true の場合、プレゼンス確認の失敗を
	// 「不在」として扱い自動応答を継続します（観測された既存動作）。
	// false の場合は失敗時に自動応答を抑止します
	presenceFailOpen bool
}

// NewReplyGate はゲートを作成します
func NewReplyGate(sp SlackPort, policy SensitivePolicy, presenceFailOpen bool) *ReplyGate {
	return &ReplyGate{
		sp:               sp,
		policy:           policy,
		presenceFailOpen: presenceFailOpen,
	}
}

// OwnerActive はオーナーが現在アクティブかを返します。
// プレゼンスAPIの失敗時の扱いは presenceFailOpen の設定に従います
func (g *ReplyGate) OwnerActive(ctx context.Context, teamID, ownerUserID string) bool {
	presence, err := g.sp.GetPresence(ctx, teamID, ownerUserID)
	if err != nil {
		log.Printf("ゲート: プレゼンス確認失敗 (team=%s, user=%s): %v", teamID, ownerUserID, err)
		if g.presenceFailOpen {
			// 不在扱い = 自動応答は抑止しない
			return false
		}
		// 在席扱い = 自動応答を抑止する
		return true
	}
	return presence == "active"
}

// ContainsSensitiveTopic は本文のセンシティブ判定をポリシーに委譲します
func (g *ReplyGate) ContainsSensitiveTopic(text string) bool {
	return g.policy.ContainsSensitiveTopic(text)
}
