package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yeremiapane/cleanshift/controllers"
	"github.com/yeremiapane/cleanshift/hub"
	"github.com/yeremiapane/cleanshift/middlewares"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/services"
	"gorm.io/gorm"
)

// Deps is everything the route table needs. Monitor, Hub, Gatherer and
// RateLimiter are optional.
type Deps struct {
	DB            *gorm.DB
	Tasks         *services.TaskService
	Availability  *services.AvailabilityService
	Monitor       *services.AckMonitor
	Hub           *hub.Hub
	Gatherer      prometheus.Gatherer
	RateLimiter   *middlewares.RateLimiter
	AllowedOrigin string
}

func SetupRouter(d Deps) *gin.Engine {
	if d.Tasks == nil {
		d.Tasks = services.NewTaskService(d.DB)
	}
	if d.Availability == nil {
		d.Availability = services.NewAvailabilityService(d.DB)
	}
	if d.Hub == nil {
		d.Hub = hub.New()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.AllowedOrigin))
	r.Use(middlewares.LoggerMiddleware())
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.RateLimit())
	}

	userCtrl := controllers.NewUserController(d.DB)
	adminCtrl := controllers.NewAdminController(d.DB, d.Monitor, d.Hub)
	clientCtrl := controllers.NewClientController(d.DB)
	workerCtrl := controllers.NewWorkerController(d.DB, d.Tasks, d.Availability, d.Hub)
	propertyCtrl := controllers.NewPropertyController(d.DB, d.Tasks, d.Hub)
	taskCtrl := controllers.NewTaskController(d.DB, d.Tasks, d.Hub)
	notificationCtrl := controllers.NewNotificationController(d.DB)
	hubCtrl := controllers.NewHubController(d.Hub, d.AllowedOrigin)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}
	r.POST("/logout", middlewares.AuthMiddleware(), userCtrl.Logout)

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware(), middlewares.RequireRole(models.RoleAdmin))

	admin.GET("/profile", userCtrl.GetProfile)
	admin.GET("/users", userCtrl.GetAllUsers)

	admin.GET("/admins", adminCtrl.GetAllAdmins)
	admin.GET("/admins/:admin_id", adminCtrl.GetAdminByID)
	admin.PATCH("/admins/:admin_id", adminCtrl.UpdateAdmin)

	// CLIENTS
	admin.GET("/clients", clientCtrl.GetAllClients)
	admin.POST("/clients", clientCtrl.CreateClient)
	admin.GET("/clients/:client_id", clientCtrl.GetClientByID)
	admin.PATCH("/clients/:client_id", clientCtrl.UpdateClient)
	admin.DELETE("/clients/:client_id", clientCtrl.DeleteClient)

	// PROPERTIES
	admin.GET("/properties", propertyCtrl.GetAllProperties)
	admin.POST("/properties", propertyCtrl.CreateProperty)
	admin.GET("/properties/:property_id", propertyCtrl.GetPropertyByID)
	admin.PATCH("/properties/:property_id", propertyCtrl.UpdateProperty)
	admin.DELETE("/properties/:property_id", propertyCtrl.DeleteProperty)

	// WORKERS
	admin.GET("/workers", workerCtrl.GetAllWorkers)
	admin.GET("/workers/available", workerCtrl.GetAvailableWorkers)
	admin.POST("/workers", workerCtrl.CreateWorker)
	admin.GET("/workers/:worker_id", workerCtrl.GetWorkerByID)
	admin.PATCH("/workers/:worker_id", workerCtrl.UpdateWorker)
	admin.DELETE("/workers/:worker_id", workerCtrl.DeleteWorker)
	admin.PATCH("/workers/:worker_id/deployment", workerCtrl.SetDeployment)
	admin.PATCH("/workers/:worker_id/availability", workerCtrl.SetAvailability)
	admin.GET("/workers/:worker_id/availability", workerCtrl.CheckAvailability)

	// TASKS
	admin.GET("/tasks", taskCtrl.GetAllTasks)
	admin.POST("/tasks", taskCtrl.CreateTask)
	admin.GET("/tasks/:task_id", taskCtrl.GetTaskByID)
	admin.DELETE("/tasks/:task_id", taskCtrl.DeleteTask)
	admin.POST("/tasks/:task_id/assign", taskCtrl.AssignTask)
	admin.POST("/tasks/:task_id/unassign", taskCtrl.UnassignTask)
	admin.POST("/tasks/:task_id/complete", taskCtrl.CompleteTask)

	// ESCALATIONS & NOTIFICATIONS
	admin.GET("/escalations", adminCtrl.GetEscalations)
	admin.GET("/notifications", notificationCtrl.GetAllNotifications)
	admin.PATCH("/notifications/:notif_id/read", notificationCtrl.MarkAsRead)
	admin.DELETE("/notifications/:notif_id", notificationCtrl.DeleteNotification)

	// MONITOR & DASHBOARD
	admin.GET("/monitor", adminCtrl.GetMonitorStatus)
	admin.POST("/monitor/sweep", adminCtrl.TriggerSweep)
	admin.GET("/dashboard/stats", adminCtrl.GetDashboardStats)

	// ----------------------------------------------------------------
	//                      WORKER ROUTES
	// ----------------------------------------------------------------
	worker := r.Group("/worker")
	worker.Use(middlewares.AuthMiddleware(), middlewares.RequireRole(models.RoleWorker))

	worker.GET("/profile", userCtrl.GetProfile)
	worker.GET("/tasks", taskCtrl.GetMyTasks)
	worker.POST("/tasks/:task_id/acknowledge", taskCtrl.AcknowledgeTask)
	worker.POST("/tasks/:task_id/complete", taskCtrl.WorkerCompleteTask)

	// WebSocket, token in the query string
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("/:role", hubCtrl.Connect)
	}

	return r
}
