package service

import (
	"sync"

	"standup-agent/project/domain"
)

// MentionRegistry は未応答メンションの共有台帳です。
// ルーターと各ウォッチャーが同一キーを同時に操作するため、
// すべての操作は内部ミューテックスで直列化されます。
// 「まだ未応答かどうか」の判定と削除は Resolve の1回のロック区間で
// 同時に行われ、check-then-act の隙間は存在しません
type MentionRegistry struct {
	mu      sync.Mutex
	pending map[string]*domain.PendingMention
}

// NewMentionRegistry はレジストリを初期化します
func NewMentionRegistry() *MentionRegistry {
	return &MentionRegistry{
		pending: make(map[string]*domain.PendingMention),
	}
}

// Register は監視対象メンションを登録します。
// 同一キーの既存エントリがある場合は上書きします（last-write-wins）
func (r *MentionRegistry) Register(m *domain.PendingMention) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[m.Key()] = m
}

// Resolve はエントリが存在すれば削除し、存在したかどうかを返します。
// オーナー返信によるキャンセルとウォッチャーの起床後チェックの両方が
// この操作を通るため、同一キーに対して true を返すのは常に1回だけです
func (r *MentionRegistry) Resolve(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[key]; !ok {
		return false
	}
	delete(r.pending, key)
	return true
}

// Contains はエントリの存在だけを確認します（診断用）。
// 動作判定には使わないこと — 判定と削除が分離すると競合します
func (r *MentionRegistry) Contains(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[key]
	return ok
}

// Len は現在の監視対象件数を返します（診断用）
func (r *MentionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
