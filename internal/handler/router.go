package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/jobboard/internal/middleware"
)

// Pinger はヘルスチェックでDB疎通を確認するためのインターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver   middleware.SessionResolver
	GateMetrics       middleware.GateMetrics
	HTTPMetrics       middleware.HTTPMetrics
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 求人
	JobService JobServiceInterface

	// 運用
	MetricsHandler http.Handler
	DB             Pinger
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Gate
//
// ゲートはバイパスパス（/health, /metrics, OAuthコールバック等）を素通しし、
// それ以外の全ルートで入場判定とキャッシュ抑止を行う。
// 状態変更エンドポイントにはさらにCSRF検証とレート制限が適用される。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := slog.Default()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPMetrics))
	r.Use(middleware.NewGateMiddleware(deps.SessionResolver, deps.GateMetrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	jobHandler := NewJobHandler(deps.JobService)

	csrfMW := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// --- 運用エンドポイント（ゲートのバイパス対象） ---

	r.Get("/health", newHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 公開ルート ---

	r.Get("/", jobHandler.ListJobs)
	r.Get("/jobs", jobHandler.ListJobs)
	r.Get("/jobs/{id}", jobHandler.GetJob)

	// --- 認証ルート ---

	r.Route("/auth", func(r chi.Router) {
		r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		// パスワード認証（認証入口。認証済みはゲートが/dashboardへ転送する）
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)

		// OAuthフロー（コールバックはゲートのバイパス対象）
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)

		// セッション管理
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- ゲートが保護するページルート ---

	r.Get("/dashboard", jobHandler.Dashboard)
	r.Get("/jobs/new", jobHandler.NewJobForm)
	r.Get("/jobs/edit/{id}", jobHandler.EditJobForm)

	// --- 状態変更ルート ---
	// ミドルウェアスタック: CSRF → RateLimit(General)。
	// 所有権と認証はサービス層が記録単位で再検証する。
	r.Group(func(r chi.Router) {
		r.Use(csrfMW)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// POST /jobs - 求人作成（投稿専用レート制限を追加）
		r.With(deps.RateLimiter.PostJobMiddleware()).Post("/jobs", jobHandler.CreateJob)

		r.Patch("/jobs/{id}", jobHandler.UpdateJob)
		r.Delete("/jobs/{id}", jobHandler.DeleteJob)
	})

	return r
}

// newHealthHandler はDB疎通を含むヘルスチェックハンドラーを返す。
func newHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "unhealthy",
					"reason": "database unreachable",
				})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
