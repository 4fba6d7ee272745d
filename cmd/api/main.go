// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/yourusername/useradmin/internal/auth"
	"github.com/yourusername/useradmin/internal/config"
	"github.com/yourusername/useradmin/internal/db"
	"github.com/yourusername/useradmin/internal/session"
	"github.com/yourusername/useradmin/internal/storage"
	"github.com/yourusername/useradmin/internal/users"
	"github.com/yourusername/useradmin/internal/web"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx := context.Background()

	// PostgreSQL接続とマイグレーション
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	// セッションストアの選択（Redis設定が無ければインメモリ）
	var store session.Store
	if cfg.SessionRedisURL != "" {
		opt, err := redis.ParseURL(cfg.SessionRedisURL)
		if err != nil {
			log.Fatalf("Failed to parse redis url: %v", err)
		}
		store = session.NewRedisStore(redis.NewClient(opt))
	} else {
		store = session.NewMemoryStore()
		logger.Warn("using in-memory session store; sessions are lost on restart")
	}
	sessions := session.NewManager(store)

	// アバター画像の保存先
	avatars, err := storage.NewLocal(cfg.AvatarDir)
	if err != nil {
		log.Fatalf("Failed to init avatar storage: %v", err)
	}

	// サービスの組み立て
	repo := users.NewPostgresRepository(conn)
	directory := users.NewDirectory(repo, logger)
	authService := auth.NewService(repo, sessions, logger)

	// admin が1人も居ない空のデータベースを救済する
	if err := directory.EnsureBootstrapAdmin(ctx,
		cfg.BootstrapAdminUsername, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		log.Fatalf("Failed to ensure bootstrap admin: %v", err)
	}

	handlers := web.NewHandlers(authService, sessions, directory, avatars, cfg.AvatarMaxBytes, logger)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()
	router.LoadHTMLGlob("web/templates/*.html")

	// CORSミドルウェアの設定（JSONサブAPI用）
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"X-CSRF-Token", // CSRF保護用ヘッダー
	}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	setupRoutes(router, handlers, sessions)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRoutes はページとAPIの配線を行います。
func setupRoutes(router *gin.Engine, h *web.Handlers, sessions *session.Manager) {
	// 誰でも叩けるエンドポイント
	router.GET("/health", h.Health)
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, "/login")
	})

	// ログイン前でもアクセスできるページ
	router.GET("/login", h.ShowLogin)
	router.POST("/login", h.HandleLogin)
	router.GET("/register", h.ShowRegister)
	router.POST("/register", h.HandleRegister)

	// ログイン必須のページ。状態変更はすべてCSRF検証を通す
	protected := router.Group("")
	protected.Use(auth.RequireLogin(sessions), auth.VerifyCSRF())
	{
		protected.GET("/dashboard", h.Dashboard)
		protected.POST("/logout", h.HandleLogout)

		protected.GET("/profile", h.ShowProfile)
		protected.POST("/profile", h.HandleProfileUpdate)
		protected.POST("/profile/avatar", h.HandleAvatarUpload)
		protected.GET("/avatars/:name", h.Avatar)

		protected.GET("/users/:id", h.ViewUser)

		admin := protected.Group("")
		admin.Use(auth.RequireAdmin())
		{
			admin.GET("/users/new", h.ShowCreateUser)
			admin.POST("/users/new", h.HandleCreateUser)
			admin.GET("/users/:id/delete", h.ShowDeleteUser)
			admin.POST("/users/:id/delete", h.HandleDeleteUser)
		}
	}

	// JSONサブAPI
	api := router.Group("/api")
	api.Use(auth.RequireLogin(sessions), auth.VerifyCSRF())
	{
		api.GET("/users", h.ListUsersJSON)
		api.GET("/users/:id", h.GetUserJSON)
	}
}
