package slack

import (
	"context"
	"fmt"
	"sync"

	"standup-agent/project/infrastructure/secret"
	"standup-agent/project/service"

	"github.com/slack-go/slack"
)

// SlackClient は service.SlackPort の Slack SDK 実装です。
// ウォッチャーのゴルーチンから並行に呼ばれるため、トークンキャッシュは
// ミューテックスで保護します
type SlackClient struct {
	secretMgr         *secret.Manager
	secretTokenPrefix string

	mu         sync.Mutex
	tokenCache map[string]*slack.Client // teamID -> SlackClient
}

// NewSlackClient は Slack クライアントを初期化します
func NewSlackClient(secretMgr *secret.Manager, secretTokenPrefix string) *SlackClient {
	return &SlackClient{
		secretMgr:         secretMgr,
		secretTokenPrefix: secretTokenPrefix,
		tokenCache:        make(map[string]*slack.Client),
	}
}

// getSlackClient は teamID に対応する Slack API クライアントを取得します
// シークレット名から Slack Bot トークンを取得してクライアントを作成
func (sc *SlackClient) getSlackClient(ctx context.Context, teamID string) (*slack.Client, error) {
	// キャッシュを確認
	sc.mu.Lock()
	if cli, exists := sc.tokenCache[teamID]; exists {
		sc.mu.Unlock()
		return cli, nil
	}
	sc.mu.Unlock()

	// Secret Manager からトークンを取得
	secretName := fmt.Sprintf("%s%s", sc.secretTokenPrefix, teamID)
	token, err := sc.secretMgr.GetSecret(ctx, secretName)
	if err != nil {
		return nil, fmt.Errorf("slack: トークン取得失敗 (teamID=%s): %w", teamID, err)
	}

	cli := slack.New(token)

	sc.mu.Lock()
	sc.tokenCache[teamID] = cli
	sc.mu.Unlock()

	return cli, nil
}

// PostThreadMessage はスレッドにメッセージを投稿します
func (sc *SlackClient) PostThreadMessage(ctx context.Context, teamID, channelID, threadTS, text string) error {
	cli, err := sc.getSlackClient(ctx, teamID)
	if err != nil {
		return err
	}

	_, _, err = cli.PostMessageContext(
		ctx,
		channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		return fmt.Errorf("slack: スレッドメッセージ投稿失敗 (channel=%s, ts=%s): %w", channelID, threadTS, err)
	}

	return nil
}

// PostChannelMessage はチャンネル（DMチャンネルを含む）にメッセージを投稿します
func (sc *SlackClient) PostChannelMessage(ctx context.Context, teamID, channelID, text string) error {
	cli, err := sc.getSlackClient(ctx, teamID)
	if err != nil {
		return err
	}

	_, _, err = cli.PostMessageContext(
		ctx,
		channelID,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("slack: チャンネルメッセージ投稿失敗 (channel=%s): %w", channelID, err)
	}

	return nil
}

// PostDM はユーザーに DM を送信します
func (sc *SlackClient) PostDM(ctx context.Context, teamID, userID, text string) error {
	cli, err := sc.getSlackClient(ctx, teamID)
	if err != nil {
		return err
	}

	// ユーザーとの DM チャンネルを開く
	dmCh, _, _, err := cli.OpenConversationContext(
		ctx,
		&slack.OpenConversationParameters{
			Users: []string{userID},
		},
	)
	if err != nil {
		return fmt.Errorf("slack: DM チャンネル作成失敗 (user=%s): %w", userID, err)
	}

	_, _, err = cli.PostMessageContext(
		ctx,
		dmCh.ID,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("slack: DM 送信失敗 (user=%s): %w", userID, err)
	}

	return nil
}

// GetPresence は users.getPresence で指定ユーザーのプレゼンスを取得します
// 戻り値は "active" または "away"
func (sc *SlackClient) GetPresence(ctx context.Context, teamID, userID string) (string, error) {
	cli, err := sc.getSlackClient(ctx, teamID)
	if err != nil {
		return "", err
	}

	presence, err := cli.GetUserPresenceContext(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("slack: プレゼンス取得失敗 (user=%s): %w", userID, err)
	}

	return presence.Presence, nil
}

// SearchMessages は search.messages でクエリに一致する過去メッセージを取得します
func (sc *SlackClient) SearchMessages(ctx context.Context, teamID, query string, limit int) ([]service.HistoryMessage, error) {
	cli, err := sc.getSlackClient(ctx, teamID)
	if err != nil {
		return nil, err
	}

	params := slack.NewSearchParameters()
	params.Count = limit

	result, err := cli.SearchMessagesContext(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("slack: メッセージ検索失敗 (query=%q): %w", query, err)
	}

	messages := make([]service.HistoryMessage, 0, limit)
	for _, match := range result.Matches {
		if len(messages) >= limit {
			break
		}
		messages = append(messages, service.HistoryMessage{
			Text:      match.Text,
			Timestamp: match.Timestamp,
		})
	}

	return messages, nil
}

// GetUserID はユーザー名またはメールアドレスからユーザー ID を取得します
func (sc *SlackClient) GetUserID(ctx context.Context, teamID, userNameOrEmail string) (string, error) {
	cli, err := sc.getSlackClient(ctx, teamID)
	if err != nil {
		return "", fmt.Errorf("slack: クライアント取得失敗: %w", err)
	}

	// ユーザー名で検索（@ を除去）
	userName := userNameOrEmail
	if len(userName) > 0 && userName[0] == '@' {
		userName = userName[1:]
	}

	users, err := cli.GetUsersContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack: ユーザー一覧取得失敗: %w", err)
	}

	for _, u := range users {
		if u.Name == userName || u.RealName == userName || u.Profile.Email == userNameOrEmail {
			return u.ID, nil
		}
	}

	return "", fmt.Errorf("slack: ユーザーが見つかりません: %s", userNameOrEmail)
}

// ClearCache はトークンキャッシュをクリアします（テスト用）
func (sc *SlackClient) ClearCache() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.tokenCache = make(map[string]*slack.Client)
}
