package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/kakeibo/internal/auth"
	"github.com/hitoshi/kakeibo/internal/config"
	"github.com/hitoshi/kakeibo/internal/database"
	"github.com/hitoshi/kakeibo/internal/handler"
	"github.com/hitoshi/kakeibo/internal/logger"
	"github.com/hitoshi/kakeibo/internal/metrics"
	"github.com/hitoshi/kakeibo/internal/middleware"
	"github.com/hitoshi/kakeibo/internal/repository"
	"github.com/hitoshi/kakeibo/internal/session"
	"github.com/hitoshi/kakeibo/internal/token"
	"github.com/hitoshi/kakeibo/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("unknown LOG_LEVEL, falling back to info", slog.String("log_level", cfg.LogLevel))
	}
	logger.SetupDefault(w, level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("app_env", cfg.AppEnv),
		slog.String("port", cfg.ServerPort),
		slog.String("session_revocation", cfg.SessionRevocation),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openDatabase はDB接続プールを開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newRevoker はSESSION_REVOCATIONに応じた失効リストを生成する。
// 返り値のcloseは終了時に呼び出す。
func newRevoker(ctx context.Context, cfg *config.Config, db *sql.DB) (session.Revoker, func() error, error) {
	noop := func() error { return nil }

	mode, err := session.ParseMode(cfg.SessionRevocation)
	if err != nil {
		return nil, noop, err
	}

	switch mode {
	case session.ModeRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return session.NewRedisDenylist(client), client.Close, nil
	case session.ModePostgres:
		return repository.NewPostgresRevocationRepo(db), noop, nil
	default:
		return session.NoRevocation{}, noop, nil
	}
}

// newRegistry はアプリケーションメトリクスとランタイムメトリクスを登録したレジストリを返す。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// buildRouter は設定と依存関係からHTTPハンドラーを組み立てる。
func buildRouter(cfg *config.Config, db *sql.DB, revoker session.Revoker, reg *prometheus.Registry, collector *metrics.Collector, rl *middleware.RateLimiter) (http.Handler, error) {
	codec, err := token.NewCodec([]byte(cfg.SessionSecret), cfg.SessionMaxAge)
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	cookies := session.NewCookieStore(session.CookieConfig{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
		MaxAge: cfg.SessionMaxAge,
	})
	sessions := session.NewService(codec, cookies, revoker)
	sessions.SetObserver(collector)

	userRepo := repository.NewPostgresUserRepo(db)
	authService := auth.NewService(userRepo, auth.ServiceConfig{})

	var webRoot fs.FS
	if cfg.WebRoot != "" {
		webRoot = os.DirFS(cfg.WebRoot)
	}

	return handler.NewRouter(&handler.RouterDeps{
		AuthService:       authService,
		Sessions:          sessions,
		RateLimiter:       rl,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		HSTS:              cfg.IsProduction(),
		Logger:            slog.Default(),
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),
		DB:                db,
		RouteTable:        middleware.DefaultRouteTable(),
		WebRoot:           webRoot,
	}), nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. 失効リスト
	revoker, closeRevoker, err := newRevoker(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeRevoker()

	// 3. メトリクスとレート制限
	reg, collector := newRegistry()
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig().
		WithGeneralPerMinute(cfg.RateLimitGeneral).
		WithAuthPerMinute(cfg.RateLimitLogin))
	defer rl.Stop()

	// 4. ルーターの構築
	router, err := buildRouter(cfg, db, revoker, reg, collector, rl)
	if err != nil {
		return err
	}

	// 5. PostgreSQL失効リストの場合は期限切れレコードを定期削除
	if cfg.SessionRevocation == config.RevocationPostgres {
		job := cleanup.NewCleanupJob(db, slog.Default())
		job.SetRecorder(collector)
		go job.Start(ctx, cfg.RevocationCleanupInterval)
	}

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 失効済みセッションの期限切れレコードを定期的に削除する。
// SESSION_REVOCATION=postgres以外では削除対象が無いためエラーを返す。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.SessionRevocation != config.RevocationPostgres {
		return fmt.Errorf("worker requires SESSION_REVOCATION=%s, got %q", config.RevocationPostgres, cfg.SessionRevocation)
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.RevocationCleanupInterval),
	)

	cleanup.NewCleanupJob(db, slog.Default()).Start(ctx, cfg.RevocationCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
