package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	appointmenthandler "github.com/medifollow/care-api/internal/handler/appointment"
	healthhandler "github.com/medifollow/care-api/internal/handler/health"
	recordhandler "github.com/medifollow/care-api/internal/handler/record"
	schedulehandler "github.com/medifollow/care-api/internal/handler/schedule"
	timelinehandler "github.com/medifollow/care-api/internal/handler/timeline"
	treatmenthandler "github.com/medifollow/care-api/internal/handler/treatment"
	"github.com/medifollow/care-api/internal/middleware"
	"github.com/medifollow/care-api/internal/model"
)

type Handlers struct {
	Health      *healthhandler.Handler
	Appointment *appointmenthandler.Handler
	Schedule    *schedulehandler.Handler
	Treatment   *treatmenthandler.Handler
	Timeline    *timelinehandler.Handler
	Record      *recordhandler.Handler
}

type Config struct {
	RateLimit     rate.Limit
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	MetricsPrefix string
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	middleware.RegisterValidators()

	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		metrics:  initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
	)
	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")

	health := api.Group("/health")
	{
		health.GET("/live", r.handlers.Health.HealthCheck)
		health.GET("/ready", r.handlers.Health.ReadyCheck)
	}

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	r.setupAppointmentRoutes(protected)
	r.setupScheduleRoutes(protected)
	r.setupTreatmentRoutes(protected)
	r.setupPatientRoutes(protected)
	r.setupRecordRoutes(protected)
}

func (r *Router) setupAppointmentRoutes(rg *gin.RouterGroup) {
	appointments := rg.Group("/appointments")
	{
		appointments.POST("", r.handlers.Appointment.Book)
		appointments.GET("", r.handlers.Appointment.List)
		appointments.GET("/tree", r.handlers.Appointment.Tree)
		appointments.POST("/follow-up", r.handlers.Appointment.ScheduleFollowUp)
		appointments.GET("/:id", r.handlers.Appointment.Get)
		appointments.DELETE("/:id", r.handlers.Appointment.Cancel)
		appointments.PATCH("/:id/status", r.handlers.Appointment.UpdateStatus)
		appointments.POST("/:id/complete", r.handlers.Appointment.Complete)
	}

	requests := rg.Group("/appointment-requests")
	{
		requests.POST("", r.handlers.Appointment.CreateRequest)
		requests.GET("", r.handlers.Appointment.ListRequests)
		requests.POST("/:id/approve", r.handlers.Appointment.ApproveRequest)
		requests.POST("/:id/reject", r.handlers.Appointment.RejectRequest)
	}
}

func (r *Router) setupScheduleRoutes(rg *gin.RouterGroup) {
	doctors := rg.Group("/doctors")
	{
		doctors.GET("", r.handlers.Schedule.ListDoctors)
		doctors.GET("/:doctorId/schedule", r.handlers.Schedule.DoctorSchedule)
		doctors.GET("/:doctorId/slots", r.handlers.Schedule.AvailableSlots)
		doctors.GET("/:doctorId/sessions", r.handlers.Schedule.ListSessions)
	}

	schedule := rg.Group("/schedule")
	schedule.Use(r.auth.RequireRole(model.RoleDoctor))
	{
		schedule.PUT("", r.handlers.Schedule.BulkUpdateSchedule)
		schedule.PATCH("/:id", r.handlers.Schedule.UpdateScheduleEntry)
	}

	sessions := rg.Group("/sessions")
	{
		sessions.POST("", r.auth.RequireRole(model.RoleDoctor), r.handlers.Schedule.CreateSession)
		sessions.GET("/:id/slots", r.handlers.Schedule.SessionSlots)
		sessions.DELETE("/:id", r.auth.RequireRole(model.RoleDoctor), r.handlers.Schedule.CancelSession)
	}
}

func (r *Router) setupTreatmentRoutes(rg *gin.RouterGroup) {
	diagnoses := rg.Group("/diagnoses")
	{
		diagnoses.GET("", r.handlers.Treatment.ListDiagnoses)
		diagnoses.GET("/search", r.handlers.Treatment.SearchDiagnoses)
		diagnoses.GET("/:id/templates", r.handlers.Treatment.ListTemplates)

		admin := diagnoses.Group("")
		admin.Use(r.auth.RequireRole(model.RoleAdmin))
		{
			admin.POST("", r.handlers.Treatment.CreateDiagnosis)
			admin.PUT("/:id", r.handlers.Treatment.UpdateDiagnosis)
			admin.DELETE("/:id", r.handlers.Treatment.DeleteDiagnosis)
		}
	}

	templates := rg.Group("/templates")
	templates.Use(r.auth.RequireRole(model.RoleAdmin))
	{
		templates.POST("", r.handlers.Treatment.CreateTemplate)
		templates.DELETE("/:id", r.handlers.Treatment.DeleteTemplate)
		templates.POST("/steps", r.handlers.Treatment.AddTemplateStep)
		templates.DELETE("/steps/:id", r.handlers.Treatment.DeleteTemplateStep)
	}

	rg.POST("/treatment-plans", r.auth.RequireRole(model.RoleDoctor), r.handlers.Treatment.AssignPlan)
}

func (r *Router) setupPatientRoutes(rg *gin.RouterGroup) {
	patients := rg.Group("/patients/:patientId")
	{
		patients.GET("/timeline", r.handlers.Timeline.PatientTimeline)
		patients.GET("/treatment-plans", r.handlers.Treatment.PatientPlans)
		patients.GET("/records", r.handlers.Record.ListForPatient)
		patients.GET("/record-versions", r.handlers.Record.ListVersionsForPatient)
	}
}

func (r *Router) setupRecordRoutes(rg *gin.RouterGroup) {
	records := rg.Group("/records")
	{
		records.POST("", r.handlers.Record.Create)
		records.GET("/:id", r.handlers.Record.Get)
		records.PATCH("/:id", r.handlers.Record.UpdateContent)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
