package server

import (
	"context"
	"net/http"
	"time"

	"tutorslot/internal/auth"
	"tutorslot/internal/availability"
	"tutorslot/internal/booking"
	"tutorslot/internal/bundle"
	"tutorslot/internal/config"
	"tutorslot/internal/dispute"
	"tutorslot/internal/user"
	"tutorslot/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// Handlers bundles every route handler the server mounts.
type Handlers struct {
	User         *user.Handler
	Availability *availability.Handler
	Booking      *booking.Handler
	Wallet       *wallet.Handler
	Bundle       *bundle.Handler
	Dispute      *dispute.Handler
}

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	config *config.Config
	http   *http.Server
}

func New(db *sqlx.DB, cfg *config.Config, h Handlers) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	public := router.Group("/auth")
	{
		public.POST("/register", h.User.Register)
		public.POST("/login", h.User.Login)
		public.POST("/refresh", h.User.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", h.User.GetMe)

		protected.GET("/teachers/:teacherID/slots", h.Availability.ListSlots)

		protected.GET("/bookings", h.Booking.List)
		protected.GET("/bookings/:bookingID", h.Booking.Get)
		protected.POST("/bookings/:bookingID/cancel", h.Booking.Cancel)
		protected.POST("/bookings/:bookingID/dispute", h.Dispute.Raise)

		protected.GET("/wallet", h.Wallet.GetBalance)
		protected.GET("/wallet/transactions", h.Wallet.ListTransactions)
		protected.POST("/wallet/deposits", h.Wallet.Deposit)
		protected.POST("/wallet/withdrawals", h.Wallet.Withdraw)

		// Static /bundles/tiers would collide with the /bundles/:bundleID
		// wildcard, so tiers get their own prefix.
		protected.GET("/tiers", h.Bundle.ListTiers)
	}

	parent := router.Group("/")
	parent.Use(authMiddleware, auth.RequireRole(auth.RoleParent))
	{
		parent.POST("/bookings", h.Booking.Request)
		parent.POST("/bookings/:bookingID/payment", h.Booking.SubmitPayment)
		parent.POST("/bookings/:bookingID/confirm", h.Booking.Confirm)

		parent.GET("/bundles", h.Bundle.ListMine)
		parent.POST("/bundles", h.Bundle.Purchase)
		parent.GET("/bundles/:bundleID", h.Bundle.Get)
		parent.POST("/bundles/:bundleID/sessions", h.Bundle.ScheduleNext)
	}

	// Teacher self-management lives under /me: a static /teachers/me segment
	// would collide with the /teachers/:teacherID wildcard in gin's router.
	teacher := router.Group("/me")
	teacher.Use(authMiddleware, auth.RequireRole(auth.RoleTeacher))
	{
		teacher.GET("/profile", h.User.GetMyProfile)
		teacher.PUT("/profile", h.User.UpdateMyProfile)

		teacher.GET("/availability/rules", h.Availability.ListMyRules)
		teacher.POST("/availability/rules", h.Availability.CreateRule)
		teacher.DELETE("/availability/rules/:ruleID", h.Availability.DeleteRule)
		teacher.POST("/availability/exceptions", h.Availability.CreateException)
		teacher.DELETE("/availability/exceptions/:exceptionID", h.Availability.DeleteException)
	}

	teacherBookings := router.Group("/bookings")
	teacherBookings.Use(authMiddleware, auth.RequireRole(auth.RoleTeacher))
	{
		teacherBookings.POST("/:bookingID/approve", h.Booking.Approve)
		teacherBookings.POST("/:bookingID/reject", h.Booking.Reject)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/bookings", h.Booking.ListByStatus)
		admin.POST("/bookings/:bookingID/approve-payment", h.Booking.ApprovePayment)
		admin.GET("/reviews", h.Wallet.ListPendingReview)
		admin.POST("/reviews/:txID", h.Wallet.ReviewTransaction)
		admin.GET("/disputes", h.Dispute.ListOpen)
		admin.POST("/disputes/:disputeID/resolve", h.Dispute.Resolve)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
