// Package cleanup は失効済みセッションの掃除ジョブを提供する。
// revoked_sessionsのうち、トークン自体の有効期限を過ぎたレコードを削除する。
// 期限切れのトークンは署名検証で拒否されるため、失効リストに残す必要がない。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Recorder は削除件数の記録先。metrics.Collectorが実装する。
type Recorder interface {
	ObserveRevocationsPurged(n int64)
}

// CleanupJob は期限切れの失効レコードを削除するジョブ。
// 冪等な削除処理のため、何度実行しても安全。
type CleanupJob struct {
	db           Executor
	logger       *slog.Logger
	recorder     Recorder
	GraceMinutes int // 有効期限後に残しておく分数（デフォルト: 60）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:           db,
		logger:       logger,
		GraceMinutes: 60,
	}
}

// SetRecorder は削除件数の記録先を設定する。
func (j *CleanupJob) SetRecorder(r Recorder) {
	j.recorder = r
}

// Run はexpires_atがGraceMinutes分以上前の失効レコードを削除する。
// 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d minutes", j.GraceMinutes)

	query := `DELETE FROM revoked_sessions WHERE expires_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("失効セッションの掃除に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("grace_minutes", j.GraceMinutes),
		)
		return fmt.Errorf("失効セッションの掃除に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	if j.recorder != nil {
		j.recorder.ObserveRevocationsPurged(deletedCount)
	}

	j.logger.Info("失効セッションの掃除が完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("grace_minutes", j.GraceMinutes),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。
// ctxがキャンセルされるまでブロックする。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	j.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *CleanupJob) runLogged(ctx context.Context) {
	// エラー詳細はRun内でログ出力済み
	_ = j.Run(ctx)
}
