package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/bitmeme/internal/account"
	"github.com/hitoshi/bitmeme/internal/auth"
	"github.com/hitoshi/bitmeme/internal/config"
	"github.com/hitoshi/bitmeme/internal/content"
	"github.com/hitoshi/bitmeme/internal/database"
	"github.com/hitoshi/bitmeme/internal/feed"
	"github.com/hitoshi/bitmeme/internal/graph"
	"github.com/hitoshi/bitmeme/internal/handler"
	"github.com/hitoshi/bitmeme/internal/logger"
	"github.com/hitoshi/bitmeme/internal/mail"
	"github.com/hitoshi/bitmeme/internal/media"
	"github.com/hitoshi/bitmeme/internal/metrics"
	"github.com/hitoshi/bitmeme/internal/middleware"
	"github.com/hitoshi/bitmeme/internal/repository"
	"github.com/hitoshi/bitmeme/internal/security"
	"github.com/hitoshi/bitmeme/internal/token"
	"github.com/hitoshi/bitmeme/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込み、JSON構造化ログをセットアップしてから環境変数の設定を読み込む。
func Init(w io.Writer) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
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
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, migrateAction(args))
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// server はAPIサーバーの構成要素。
type server struct {
	handler     http.Handler
	rateLimiter *middleware.RateLimiter
}

// buildServer はリポジトリ・サービス・ハンドラーをワイヤリングする。
func buildServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (*server, error) {
	// 1. リポジトリ
	accountRepo := repository.NewPostgresAccountRepo(db)
	relationshipRepo := repository.NewPostgresRelationshipRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)

	// 2. 外部協調者
	var mailer mail.Sender = mail.LogSender{}
	if cfg.MailEnabled() {
		mailer = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.MailServer,
			Port:     cfg.MailPort,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
			From:     cfg.MailDefaultSender,
			UseSSL:   cfg.MailUseSSL,
			Timeout:  cfg.MailTimeout,
		})
	} else {
		slog.Warn("MAIL_SERVER is not set; activation links are logged instead of mailed")
	}

	storage, err := media.NewStorage(cfg.MediaRoot)
	if err != nil {
		return nil, err
	}

	// 3. ドメインサービス
	accountService := account.NewService(accountRepo, token.NewIssuer(cfg.SecretKey), mailer, account.ServiceConfig{
		BaseURL:          cfg.BaseURL,
		ActivationMaxAge: cfg.ActivationMaxAge,
		BcryptCost:       cfg.BcryptCost,
	})
	graphService := graph.NewService(accountRepo, relationshipRepo)
	contentService := content.NewService(postRepo, commentRepo, security.NewTextSanitizer(), storage)
	feedService := feed.NewService(graphService, postRepo, commentRepo)
	authService := auth.NewService(accountService, accountRepo, sessionRepo, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
	})

	// 4. メトリクス
	collector := metrics.NewCollector(reg)

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	csrfConfig := middleware.CSRFConfig{
		CookieSecure: cfg.CookieSecure,
		CookieDomain: cfg.CookieDomain,
	}

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig:        csrfConfig,
		RateLimiter:       rateLimiter,
		RequestObserver:   collector,

		DB:             db,
		MetricsHandler: metrics.Handler(reg),
		Metrics:        collector,

		AccountService: accountService,
		AccountFinder:  accountService,
		AuthService:    authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		GraphService:    graphService,
		TimelineService: feedService,
		ContentService:  contentService,
		AccountLister:   accountRepo,

		MediaStore: storage,
		MediaRoot:  storage.Root(),
		PostConfig: handler.PostHandlerConfig{MaxUploadSize: cfg.MediaMaxSize},
	})

	return &server{handler: router, rateLimiter: rateLimiter}, nil
}

// rateLimiterConfig はreq/min単位の設定値をreq/secのリミッター設定に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlc := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rlc.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rlc.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitAuth > 0 {
		rlc.AuthRate = rate.Limit(float64(cfg.RateLimitAuth) / 60.0)
		rlc.AuthBurst = cfg.RateLimitAuth
	}
	return rlc
}

// newRegistry はGoランタイムとプロセスのコレクターを登録したレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	srv, err := buildServer(cfg, db, newRegistry())
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}
	defer srv.rateLimiter.Stop()

	// 画像アップロードを受けるため書き込みタイムアウトは長めにとる
	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの定期削除を行い、SIGINTまたはSIGTERMで停止する。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("worker starting",
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
	)

	job := cleanup.NewSessionCleanupJob(db, slog.Default(), nil)
	job.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// migrateAction はmigrateサブコマンドの操作名を返す。省略時は"up"。
func migrateAction(args []string) string {
	if len(args) < 2 {
		return "up"
	}
	return args[1]
}

// runMigrate はデータベースマイグレーションを実行する。
// actionは"up"・"down"（1段階戻す）・"version"のいずれか。
func runMigrate(cfg *config.Config, action string) error {
	slog.Info("running database migrations",
		slog.String("action", action),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch action {
	case "up":
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case "down":
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
	case "version":
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		slog.Info("current migration version",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
		return nil
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or version)", action)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
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
