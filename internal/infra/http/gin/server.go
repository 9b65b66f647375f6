package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"github.com/Eliezelg/villasaas-sub004/internal/infra/config"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/obs"
)

type QuoteHTTP interface {
	Quote(c *gin.Context)
}

type AvailabilityHTTP interface {
	Check(c *gin.Context)
	Calendar(c *gin.Context)
	CreateBlock(c *gin.Context)
	DeleteBlock(c *gin.Context)
}

type BookingHTTP interface {
	Request(c *gin.Context)
	Get(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	Complete(c *gin.Context)
	NoShow(c *gin.Context)
}

type PromoHTTP interface {
	Validate(c *gin.Context)
}

type CalendarHTTP interface {
	Export(c *gin.Context)
	PublicFeed(c *gin.Context)
	Publish(c *gin.Context)
	Import(c *gin.Context)
	ListSubscriptions(c *gin.Context)
	CreateSubscription(c *gin.Context)
	DeleteSubscription(c *gin.Context)
}

type Handlers struct {
	Quote            QuoteHTTP
	Availability     AvailabilityHTTP
	Booking          BookingHTTP
	Promo            PromoHTTP
	Calendar         CalendarHTTP
	TenantMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter registers every route. Routes of a nil handler group are skipped.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", TenantHeader, UserHeader, IdempotencyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.TenantMiddleware != nil {
		router.Use(h.TenantMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	if h.Calendar != nil {
		router.GET("/feeds/:tenantId/:propertyId/:token", h.Calendar.PublicFeed)
	}

	api := router.Group("/api/v1")
	props := api.Group("/properties/:propertyId")
	if h.Quote != nil {
		props.GET("/quote", h.Quote.Quote)
		props.POST("/quote", h.Quote.Quote)
	}
	if h.Availability != nil {
		props.GET("/availability", h.Availability.Check)
		props.GET("/calendar", h.Availability.Calendar)
		props.POST("/blocks", h.Availability.CreateBlock)
		props.DELETE("/blocks/:blockId", h.Availability.DeleteBlock)
	}
	if h.Booking != nil {
		props.POST("/bookings", h.Booking.Request)
		props.GET("/bookings/:id", h.Booking.Get)
		props.POST("/bookings/:id/confirm", h.Booking.Confirm)
		props.POST("/bookings/:id/cancel", h.Booking.Cancel)
		props.POST("/bookings/:id/complete", h.Booking.Complete)
		props.POST("/bookings/:id/no-show", h.Booking.NoShow)
	}
	if h.Calendar != nil {
		props.GET("/calendar.ics", h.Calendar.Export)
		props.POST("/calendar/publish", h.Calendar.Publish)
		props.POST("/calendar/import", h.Calendar.Import)
		props.GET("/subscriptions", h.Calendar.ListSubscriptions)
		props.POST("/subscriptions", h.Calendar.CreateSubscription)
		props.DELETE("/subscriptions/:subscriptionId", h.Calendar.DeleteSubscription)
	}
	if h.Promo != nil {
		api.POST("/promo-codes/validate", h.Promo.Validate)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
