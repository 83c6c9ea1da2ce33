package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gatherly/gatherly/internal/auth"
	authdomain "github.com/gatherly/gatherly/internal/auth/domain"
	"github.com/gatherly/gatherly/internal/auth/session"
	"github.com/gatherly/gatherly/internal/config"
	"github.com/gatherly/gatherly/internal/event"
	eventdomain "github.com/gatherly/gatherly/internal/event/domain"
	"github.com/gatherly/gatherly/internal/observability"
	"github.com/gatherly/gatherly/internal/participation"
	participationdomain "github.com/gatherly/gatherly/internal/participation/domain"
	"github.com/gatherly/gatherly/internal/payment"
	paymentdomain "github.com/gatherly/gatherly/internal/payment/domain"
	"github.com/gatherly/gatherly/internal/ratelimit"
	"github.com/gatherly/gatherly/internal/review"
	reviewdomain "github.com/gatherly/gatherly/internal/review/domain"
	"github.com/gatherly/gatherly/internal/user"
	userdomain "github.com/gatherly/gatherly/internal/user/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	session.Module,
	auth.Module,
	user.Module,
	event.Module,
	participation.Module,
	payment.Module,
	review.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log))
	r.Use(observability.Metrics())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine           *gin.Engine
	cfg              config.Config
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	sessions         *session.Manager
	authSvc          authdomain.Service
	userSvc          userdomain.Service
	eventSvc         eventdomain.Service
	participationSvc participationdomain.Service
	paymentSvc       paymentdomain.Service
	reviewSvc        reviewdomain.Service
	joinLimiter      *ratelimit.TokenBucket
}

type ServerParams struct {
	fx.In

	Gin              *gin.Engine
	Cfg              config.Config
	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Sessions         *session.Manager
	AuthSvc          authdomain.Service
	UserSvc          userdomain.Service
	EventSvc         eventdomain.Service
	ParticipationSvc participationdomain.Service
	PaymentSvc       paymentdomain.Service
	ReviewSvc        reviewdomain.Service
	JoinLimiter      *ratelimit.TokenBucket `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		db:               p.DB,
		log:              p.Log.Named("http"),
		genID:            p.GenID,
		sessions:         p.Sessions,
		authSvc:          p.AuthSvc,
		userSvc:          p.UserSvc,
		eventSvc:         p.EventSvc,
		participationSvc: p.ParticipationSvc,
		paymentSvc:       p.PaymentSvc,
		reviewSvc:        p.ReviewSvc,
		joinLimiter:      p.JoinLimiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// The webhook stays outside /api/v1 and outside auth: the provider
	// signs the raw body instead of carrying a session.
	s.engine.POST("/webhook", s.handlePaymentWebhook)

	api := s.engine.Group("/api/v1")

	api.POST("/users", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/logout", s.handleLogout)
	api.GET("/auth/me", s.AuthRequired(), s.handleMe)
	api.PATCH("/users/me", s.AuthRequired(), s.handleUpdateProfile)

	api.GET("/events", s.handleListEvents)
	api.GET("/events/:id", s.handleGetEvent)
	api.POST("/events", s.AuthRequired(), s.handleCreateEvent)
	api.POST("/events/:id/join", s.AuthRequired(), s.handleJoinEvent)

	api.GET("/payments/:id/receipt", s.AuthRequired(), s.handleDownloadReceipt)

	api.GET("/categories", s.handleListCategories)
	api.POST("/categories", s.AuthRequired(), s.handleCreateCategory)

	api.GET("/events/:id/reviews", s.handleListReviews)
	api.POST("/events/:id/reviews", s.AuthRequired(), s.handleCreateReview)
}
