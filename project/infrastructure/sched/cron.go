package sched

import (
	"context"
	"log"
	"time"

	"github.com/adhocore/gronx"
)

// Scheduler はcron式で指定された時刻にジョブを実行するループです。
// 1分ごとに式を評価し、該当する分に1回だけジョブを起動します
type Scheduler struct {
	expr string
	job  func(ctx context.Context) error
	gron *gronx.Gronx

	// tick はテストで間隔を短縮するためのフックです
	tick time.Duration
}

// NewScheduler はスケジューラーを作成します
// expr は標準的な5フィールドのcron式（例: "0 9 * * *" = 毎朝9:00）
func NewScheduler(expr string, job func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		expr: expr,
		job:  job,
		gron: gronx.New(),
		tick: time.Minute,
	}
}

// Valid はcron式が妥当かどうかを返します
func (s *Scheduler) Valid() bool {
	return s.gron.IsValid(s.expr)
}

// Run はコンテキストがキャンセルされるまでスケジュールループを実行します。
// ジョブの失敗はログに記録するだけでループは継続します
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	// 同一分内での二重実行を防ぐ
	lastFired := ""

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			minute := now.Format("2006-01-02 15:04")
			if minute == lastFired {
				continue
			}

			due, err := s.gron.IsDue(s.expr, now)
			if err != nil {
				log.Printf("スケジューラー: cron式評価失敗 (expr=%q): %v", s.expr, err)
				continue
			}
			if !due {
				continue
			}

			lastFired = minute
			if err := s.job(ctx); err != nil {
				log.Printf("スケジューラー: ジョブ実行失敗: %v", err)
			}
		}
	}
}
