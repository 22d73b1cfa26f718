package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Config は環境変数から読み込まれるアプリケーション設定を表します
type Config struct {
	// 基本設定
	AppBaseURL string
	GcpProject string

	// Firestore設定
	FirestoreProjectID string
	CollectionTenants  string

	// OAuth設定
	OAuthRedirectURL string
	OAuthStateSecret string // Secret Manager から読み込み

	// Slack API設定
	SlackClientID      string // Secret Manager から読み込み
	SlackClientSecret  string // Secret Manager から読み込み
	SlackSigningSecret string // Secret Manager から読み込み
	SecretTokenPrefix  string

	// Anthropic API設定
	AnthropicAPIKey string // Secret Manager から読み込み

	// 自動応答設定
	AutoReplyAfter   time.Duration
	PresenceFailOpen bool

	// 朝会設定
	StandupCron   string
	StandupTeamID string

	// カレンダー設定
	CalendarID              string
	CalendarTimezone        string
	CalendarCredentialsFile string
	CalendarTokenFile       string
}

// NewConfig は環境変数から設定を読み込み、Config構造体を返します
// センシティブな情報（Slack認証情報・AnthropicのAPIキーなど）はSecret Managerから取得します
func NewConfig(ctx context.Context) (*Config, error) {
	gcpProject := mustGetEnv("GCP_PROJECT")

	// Secret Manager クライアントを初期化
	secretClient, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Secret Manager クライアント初期化失敗: %v", err)
	}
	defer secretClient.Close()

	autoReplyAfter := os.Getenv("AUTO_REPLY_AFTER")
	if autoReplyAfter == "" {
		autoReplyAfter = "5m" // デフォルト値
	}
	autoReplyDuration, err := time.ParseDuration(autoReplyAfter)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_REPLY_AFTER format: %v", err)
	}

	// プレゼンス確認失敗時のポリシー。
	// true（既定）: 失敗を「不在」として扱い自動応答を継続する
	presenceFailOpen := true
	if v := os.Getenv("PRESENCE_FAIL_OPEN"); v != "" {
		presenceFailOpen, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PRESENCE_FAIL_OPEN format: %v", err)
		}
	}

	standupCron := os.Getenv("STANDUP_CRON")
	if standupCron == "" {
		standupCron = "0 9 * * *" // 毎朝9:00
	}

	calendarID := os.Getenv("CALENDAR_ID")
	if calendarID == "" {
		calendarID = "primary"
	}

	calendarTimezone := os.Getenv("CALENDAR_TIMEZONE")
	if calendarTimezone == "" {
		calendarTimezone = "UTC"
	}

	calendarCredentialsFile := os.Getenv("CALENDAR_CREDENTIALS_FILE")
	if calendarCredentialsFile == "" {
		calendarCredentialsFile = "credentials.json"
	}

	calendarTokenFile := os.Getenv("CALENDAR_TOKEN_FILE")
	if calendarTokenFile == "" {
		calendarTokenFile = "token.json"
	}

	// Secret Manager から認証情報を取得
	slackSigningSecret, err := getSecretFromManager(ctx, secretClient, gcpProject, "slack-signing-secret")
	if err != nil {
		return nil, fmt.Errorf("SLACK_SIGNING_SECRET 取得失敗: %v", err)
	}

	slackClientID, err := getSecretFromManager(ctx, secretClient, gcpProject, "slack-client-id")
	if err != nil {
		return nil, fmt.Errorf("SLACK_CLIENT_ID 取得失敗: %v", err)
	}

	slackClientSecret, err := getSecretFromManager(ctx, secretClient, gcpProject, "slack-client-secret")
	if err != nil {
		return nil, fmt.Errorf("SLACK_CLIENT_SECRET 取得失敗: %v", err)
	}

	oauthStateSecret, err := getSecretFromManager(ctx, secretClient, gcpProject, "oauth-state-secret")
	if err != nil {
		return nil, fmt.Errorf("OAUTH_STATE_SECRET 取得失敗: %v", err)
	}

	anthropicAPIKey, err := getSecretFromManager(ctx, secretClient, gcpProject, "anthropic-api-key")
	if err != nil {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY 取得失敗: %v", err)
	}

	config := &Config{
		// 基本設定
		AppBaseURL: mustGetEnv("APP_BASE_URL"),
		GcpProject: gcpProject,

		// Firestore設定
		FirestoreProjectID: mustGetEnv("FIRESTORE_PROJECT_ID"),
		CollectionTenants:  mustGetEnv("FS_COLLECTION_TENANTS"),

		// OAuth設定
		OAuthRedirectURL: mustGetEnv("OAUTH_REDIRECT_URL"),
		OAuthStateSecret: oauthStateSecret,

		// Slack API設定（Secret Manager から取得）
		SlackClientID:      slackClientID,
		SlackClientSecret:  slackClientSecret,
		SlackSigningSecret: slackSigningSecret,
		SecretTokenPrefix:  mustGetEnv("SECRET_TOKEN_PREFIX"),

		// Anthropic API設定
		AnthropicAPIKey: anthropicAPIKey,

		// 自動応答設定
		AutoReplyAfter:   autoReplyDuration,
		PresenceFailOpen: presenceFailOpen,

		// 朝会設定
		StandupCron:   standupCron,
		StandupTeamID: mustGetEnv("STANDUP_TEAM_ID"),

		// カレンダー設定
		CalendarID:              calendarID,
		CalendarTimezone:        calendarTimezone,
		CalendarCredentialsFile: calendarCredentialsFile,
		CalendarTokenFile:       calendarTokenFile,
	}

	return config, nil
}

// getSecretFromManager は Secret Manager から指定されたシークレットを取得します
func getSecretFromManager(ctx context.Context, client *secretmanager.Client, projectID, secretName string) (string, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secretName)

	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	}

	result, err := client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("Secret Manager からの取得失敗 (name=%s): %w", secretName, err)
	}

	secret := string(result.Payload.Data)
	if secret == "" {
		return "", fmt.Errorf("Secret Manager のシークレット値が空です (name=%s)", secretName)
	}

	return secret, nil
}

// mustGetEnv は環境変数を取得し、存在しない場合はパニックします
func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable not set: %s", key))
	}
	return value
}
