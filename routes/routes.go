package routes

import (
	"shiftbook-backend/config"
	"shiftbook-backend/controllers"
	"shiftbook-backend/events"
	"shiftbook-backend/services"
	"shiftbook-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config    config.Config
	DB        *gorm.DB
	Scheduler *services.ShiftScheduler
	Logs      *services.ReminderLogStore
	Events    events.Publisher
}

var defaultOrigins = []string{"http://localhost:3000"}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	origins := deps.Config.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger(deps.Config.SlowRequestThreshold))

	health := &controllers.HealthController{DB: deps.DB}
	r.GET("/healthz", health.Healthz)

	authController := &controllers.AuthController{
		DB:       deps.DB,
		Secret:   deps.Config.JWTSecret,
		TokenTTL: deps.Config.TokenTTL(),
	}
	requireAuth := utils.AuthMiddleware(deps.Config.JWTSecret)

	auth := r.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)

		auth.Use(requireAuth)
		auth.POST("/logout", authController.Logout)
		auth.GET("/me", authController.Me)
	}

	api := r.Group("/api")
	{
		// Booking intake is public
		bookingController := &controllers.BookingController{
			DB:        deps.DB,
			Scheduler: deps.Scheduler,
			Logs:      deps.Logs,
			Events:    deps.Events,
		}
		bookings := api.Group("/bookings")
		{
			bookings.POST("", bookingController.CreateBooking)
			bookings.GET("", bookingController.GetBookings)
			bookings.GET("/:id", bookingController.GetBooking)
			bookings.DELETE("/:id/reminder", bookingController.CancelReminder)
		}

		todoController := &controllers.TodoController{DB: deps.DB}
		todos := api.Group("/todos", requireAuth)
		{
			todos.POST("", todoController.CreateTodo)
			todos.GET("", todoController.GetTodos)
			todos.GET("/:id", todoController.GetTodo)
			todos.PUT("/:id", todoController.UpdateTodo)
			todos.DELETE("/:id", todoController.DeleteTodo)
		}
	}

	return r
}
