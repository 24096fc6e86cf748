package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/biodash/vitals-api/internal/config"
	analysishandler "github.com/biodash/vitals-api/internal/handler/analysis"
	authhandler "github.com/biodash/vitals-api/internal/handler/auth"
	doctorhandler "github.com/biodash/vitals-api/internal/handler/doctor"
	measurementhandler "github.com/biodash/vitals-api/internal/handler/measurement"
	patienthandler "github.com/biodash/vitals-api/internal/handler/patient"
	"github.com/biodash/vitals-api/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth        *authhandler.Handler
	Doctor      *doctorhandler.Handler
	Patient     *patienthandler.Handler
	Measurement *measurementhandler.Handler
	Analysis    *analysishandler.Handler
}

// New assembles the gin engine with the full middleware chain. Token issuance
// and doctor registration are the only unauthenticated API routes.
func New(cfg *config.Config, log *zerolog.Logger, authMW *middleware.AuthMiddleware, h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.CORS(middleware.DefaultCORSConfig()),
		limiter.RateLimit(),
		middleware.Timeout(cfg.Server.WriteTimeout),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := engine.Group("")
	h.Auth.RegisterRoutes(public)
	h.Doctor.RegisterPublicRoutes(public)

	authed := engine.Group("", authMW.Authenticate())
	h.Doctor.RegisterRoutes(authed)
	h.Patient.RegisterRoutes(authed)
	h.Patient.RegisterSelfRoutes(authed)
	h.Measurement.RegisterRoutes(authed)
	h.Measurement.RegisterSelfRoutes(authed)
	h.Analysis.RegisterRoutes(authed)
	h.Analysis.RegisterSelfRoutes(authed)

	return engine
}
