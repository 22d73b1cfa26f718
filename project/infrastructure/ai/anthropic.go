package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultModel は応答生成に使用するモデルです
const defaultModel = anthropic.Model("claude-sonnet-4-20250514")

// Client は service.AIPort の Anthropic SDK 実装です。
// 自動応答はベストエフォートのため、リトライは行いません
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClient は Anthropic クライアントを初期化します
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: APIキーが設定されていません")
	}

	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  defaultModel,
	}, nil
}

// Complete はプロンプトを1回だけ送信し、最初のテキストブロックを返します
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: メッセージ生成失敗: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("anthropic: 応答にコンテンツブロックがありません")
	}

	content := message.Content[0]
	if content.Type != "text" {
		return "", fmt.Errorf("anthropic: 応答がテキストブロックではありません (type=%s)", content.Type)
	}

	return content.Text, nil
}
