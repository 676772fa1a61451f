package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/penguin2121/catalogOnline/internal/metrics"
	"github.com/penguin2121/catalogOnline/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	SessionManager    middleware.SessionManager
	CSRFConfig        middleware.CSRFConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HSTS              bool

	// 運用
	HealthCheckers map[string]HealthChecker
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	// ドメイン
	AuthService      AuthServiceInterface
	CatalogService   CatalogServiceInterface
	RecentItemsLimit int
	ItemConfig       ItemHandlerConfig
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Logging → Recovery → Metrics → SecurityHeaders → CORS
//	  ├ /health, /metrics, JSONエンドポイント
//	  └ Session
//	      ├ /login/, /gconnect(LoginRateLimit), /gdisconnect
//	      └ CSRF → MutationRateLimit → カタログのページとフォーム
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	catalogHandler := NewCatalogHandler(deps.CatalogService, deps.RecentItemsLimit)
	itemHandler := NewItemHandler(deps.CatalogService, collector, deps.ItemConfig)
	authHandler := NewAuthHandler(deps.AuthService, collector)

	// --- セッション不要のルート ---

	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthCheckers))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Get("/catalog/{category}/JSON", catalogHandler.CategoryJSON)
	r.Get("/catalog/{category}/items/JSON", catalogHandler.CategoryJSON)
	r.Get("/catalog/{category}/{item}/JSON", catalogHandler.ItemJSON)

	// --- セッションを使うルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionManager))

		// サインイン（/gconnectはstateで検証するためCSRFトークンは不要）
		r.Get("/login/", authHandler.Login)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/gconnect", authHandler.Connect)
		r.Get("/gdisconnect", authHandler.Disconnect)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
			r.Use(deps.RateLimiter.MutationMiddleware())

			r.Get("/", catalogHandler.Home)
			r.Get("/catalog/", catalogHandler.Home)

			r.Get("/catalog/{category}/", catalogHandler.Category)
			r.Get("/catalog/{category}/items/", catalogHandler.Category)

			r.Get("/catalog/{category}/add/", itemHandler.AddForm)
			r.Post("/catalog/{category}/add/", itemHandler.Add)

			r.Get("/catalog/{category}/{item}/", catalogHandler.Item)
			r.Get("/catalog/{category}/{item}/edit/", itemHandler.EditForm)
			r.Post("/catalog/{category}/{item}/edit/", itemHandler.Edit)
			r.Get("/catalog/{category}/{item}/delete/", itemHandler.DeleteForm)
			r.Post("/catalog/{category}/{item}/delete/", itemHandler.Delete)
		})
	})

	return r
}
