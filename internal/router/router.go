package router

import (
	"net/http"
	"time"

	"creddit/internal/handlers"
	"creddit/internal/middleware"
	"creddit/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Options configures the session cookie.
type Options struct {
	SessionName   string
	SessionSecret string
	SessionTTL    time.Duration
	Secure        bool
}

type Deps struct {
	Identity *services.Identity
	Posts    *services.PostService
	Feed     *services.Feed
	Ledger   *services.Ledger
	Checks   map[string]handlers.Check
	Registry *prometheus.Registry
	Log      *logrus.Logger
}

// New builds the engine with sessions, middleware and every route.
func New(opts Options, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(deps.Log))
	r.Use(middleware.Metrics(deps.Registry))

	store := cookie.NewStore([]byte(opts.SessionSecret))
	r.Use(middleware.Sessions(opts.SessionName, store, sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}))
	r.Use(middleware.LoadUser(deps.Identity, deps.Log))

	RegisterRoutes(r, deps)
	return r
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	// Handlers
	authHandler := handlers.NewAuthHandler(deps.Identity, deps.Log)
	storyHandler := handlers.NewStoryHandler(deps.Posts, deps.Feed, deps.Log)
	voteHandler := handlers.NewVoteHandler(deps.Ledger, deps.Log)
	healthHandler := handlers.NewHealthHandler(deps.Checks, deps.Log)

	r.GET("/healthz", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")

	// 公共路由 (Public Routes)
	api.GET("/posts", storyHandler.List)        // 文章列表
	api.GET("/posts/:id", storyHandler.Detail)  // 文章详情
	api.GET("/me", authHandler.Me)              // 当前用户
	api.POST("/register", authHandler.Register) // 注册
	api.POST("/login", authHandler.Login)       // 登录
	api.POST("/logout", authHandler.Logout)     // 退出登录
	api.POST("/forgot-password", authHandler.ForgotPassword)
	api.POST("/change-password", authHandler.ChangePassword)

	// 受保护路由 (Protected Routes)
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts", storyHandler.Create)       // 发布文章
		authorized.PATCH("/posts/:id", storyHandler.Update)  // 修改标题
		authorized.DELETE("/posts/:id", storyHandler.Delete) // 删除文章
		authorized.POST("/posts/:id/vote", voteHandler.Vote) // 投票
	}
}
