package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"standup-agent/project/handler"
	"standup-agent/project/infrastructure/ai"
	"standup-agent/project/infrastructure/calendar"
	"standup-agent/project/infrastructure/config"
	"standup-agent/project/infrastructure/sched"
	"standup-agent/project/infrastructure/secret"
	slackinfra "standup-agent/project/infrastructure/slack"
	"standup-agent/project/infrastructure/store"
	"standup-agent/project/service"
)

func main() {
	ctx := context.Background()

	// 1. 設定を読み込む
	cfg, err := config.NewConfig(ctx)
	if err != nil {
		log.Fatalf("設定読み込み失敗: %v", err)
	}

	// 2. 依存関係を初期化
	// Secret Manager
	secretMgr, err := secret.NewManager(ctx, cfg.GcpProject)
	if err != nil {
		log.Fatalf("Secret Manager 初期化失敗: %v", err)
	}
	defer secretMgr.Close()

	// Firestore リポジトリ
	repo, err := store.NewFirestoreRepo(ctx, cfg)
	if err != nil {
		log.Fatalf("Firestore 初期化失敗: %v", err)
	}
	defer repo.Close()

	// Slack API ポート実装
	slackClient := slackinfra.NewSlackClient(secretMgr, cfg.SecretTokenPrefix)

	// Anthropic クライアント
	aiClient, err := ai.NewClient(cfg.AnthropicAPIKey)
	if err != nil {
		log.Fatalf("Anthropic クライアント初期化失敗: %v", err)
	}

	// Google Calendar クライアント
	calClient, err := calendar.NewGoogleCalendar(ctx, cfg)
	if err != nil {
		log.Fatalf("Google Calendar 初期化失敗: %v", err)
	}

	// 3. サービス層を初期化
	registry := service.NewMentionRegistry()
	gate := service.NewReplyGate(slackClient, service.NewKeywordPolicy(nil), cfg.PresenceFailOpen)
	watcher := service.NewMentionWatcher(cfg.AutoReplyAfter, registry, gate, slackClient, aiClient)
	assistant := service.NewAssistant(repo, slackClient, aiClient, calClient, cfg.StandupTeamID)
	router := service.NewEventRouter(repo, registry, watcher, assistant)

	// 4. 朝会スケジューラーを起動
	scheduler := sched.NewScheduler(cfg.StandupCron, assistant.SendDailyStandup)
	if !scheduler.Valid() {
		log.Fatalf("不正な STANDUP_CRON 式: %q", cfg.StandupCron)
	}
	go scheduler.Run(ctx)

	// 5. HTTP ハンドラーを設定
	mux := http.NewServeMux()

	// Slack イベント受信
	mux.Handle("/slack/events", handler.NewEventsHandler(cfg.SlackSigningSecret, router))

	// Slack スラッシュコマンド
	mux.Handle("/slack/commands", handler.NewCommandsHandler(cfg.SlackSigningSecret, repo, slackClient))

	// OAuth コールバック
	mux.Handle("/slack/oauth_redirect", handler.NewOAuthHandler(cfg, repo, secretMgr))

	// ヘルスチェック
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// 6. サーバー起動
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	addr := fmt.Sprintf(":%s", port)
	log.Printf("サーバー起動: %s (自動応答待機: %s, 朝会: %q)", addr, cfg.AutoReplyAfter, cfg.StandupCron)

	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Fatalf("サーバーエラー: %v", err)
	}
}
