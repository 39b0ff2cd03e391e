package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cleanshift/hub"
	"github.com/yeremiapane/cleanshift/models"
	"github.com/yeremiapane/cleanshift/services"
	"github.com/yeremiapane/cleanshift/utils"
	"gorm.io/gorm"
)

var ErrNoWorkerProfile = errors.New("no worker profile linked to this user")

type TaskController struct {
	DB    *gorm.DB
	Tasks *services.TaskService
	Hub   *hub.Hub
}

func NewTaskController(db *gorm.DB, tasks *services.TaskService, h *hub.Hub) *TaskController {
	return &TaskController{DB: db, Tasks: tasks, Hub: h}
}

// CreateTask opens a task for a property. With worker_id, date and shift it is
// scheduled in the same step and the worker's availability is checked.
func (tc *TaskController) CreateTask(c *gin.Context) {
	type reqBody struct {
		PropertyID uint   `json:"property_id" binding:"required"`
		WorkerID   uint   `json:"worker_id"`
		Date       string `json:"date"`
		Shift      string `json:"shift"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var (
		task *models.CleaningTask
		err  error
	)
	if body.WorkerID == 0 {
		task, err = tc.Tasks.CreateTask(c.Request.Context(), body.PropertyID)
	} else {
		date, shift, ok := parseDateShift(c, body.Date, body.Shift)
		if !ok {
			return
		}
		task, err = tc.Tasks.ScheduleTask(c.Request.Context(), body.PropertyID, body.WorkerID, date, shift)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	tc.Hub.BroadcastTaskUpdate(task)
	utils.InfoLogger.Printf("Cleaning task %d created for property %d (status=%s)", task.ID, task.PropertyID, task.Status)
	utils.RespondJSON(c, http.StatusCreated, "Cleaning task created", task)
}

// AssignTask -> body {"worker_id", "date", "shift"}
func (tc *TaskController) AssignTask(c *gin.Context) {
	id, ok := paramID(c, "task_id")
	if !ok {
		return
	}
	type reqBody struct {
		WorkerID uint   `json:"worker_id" binding:"required"`
		Date     string `json:"date" binding:"required"`
		Shift    string `json:"shift" binding:"required"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	date, shift, ok := parseDateShift(c, body.Date, body.Shift)
	if !ok {
		return
	}

	task, err := tc.Tasks.AssignTask(c.Request.Context(), id, body.WorkerID, date, shift)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	tc.Hub.BroadcastTaskUpdate(task)
	utils.InfoLogger.Printf("Cleaning task %d assigned to worker %d (%s %s)", task.ID, body.WorkerID, body.Date, shift)
	utils.RespondJSON(c, http.StatusOK, "Cleaning task assigned", task)
}

func (tc *TaskController) UnassignTask(c *gin.Context) {
	id, ok := paramID(c, "task_id")
	if !ok {
		return
	}
	task, err := tc.Tasks.UnassignTask(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	tc.Hub.BroadcastTaskUpdate(task)
	utils.RespondJSON(c, http.StatusOK, "Cleaning task unassigned", task)
}

// CompleteTask lets an admin close an acknowledged task.
func (tc *TaskController) CompleteTask(c *gin.Context) {
	id, ok := paramID(c, "task_id")
	if !ok {
		return
	}
	task, err := tc.Tasks.CompleteTask(c.Request.Context(), id, 0)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	tc.Hub.BroadcastTaskUpdate(task)
	utils.RespondJSON(c, http.StatusOK, "Cleaning task completed", task)
}

// GetAllTasks -> optional ?status=, ?worker_id=, ?property_id=, ?admin_id=, ?date=
func (tc *TaskController) GetAllTasks(c *gin.Context) {
	var f services.TaskFilter
	if v := c.Query("status"); v != "" {
		f.Status = models.TaskStatus(v)
	}
	for key, dst := range map[string]*uint{
		"worker_id":   &f.WorkerID,
		"property_id": &f.PropertyID,
		"admin_id":    &f.AdminID,
	} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid "+key))
			return
		}
		*dst = uint(n)
	}
	if v := c.Query("date"); v != "" {
		d, err := services.ParseDate(v)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		f.Date = &d
	}

	tasks, err := tc.Tasks.ListTasks(c.Request.Context(), f)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All cleaning tasks", tasks)
}

func (tc *TaskController) GetTaskByID(c *gin.Context) {
	id, ok := paramID(c, "task_id")
	if !ok {
		return
	}
	task, err := tc.Tasks.GetTask(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cleaning task detail", task)
}

func (tc *TaskController) DeleteTask(c *gin.Context) {
	id, ok := paramID(c, "task_id")
	if !ok {
		return
	}
	if err := tc.Tasks.DeleteTask(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cleaning task deleted", gin.H{"task_id": id})
}

// currentWorker is the Worker profile linked to the logged-in user.
func (tc *TaskController) currentWorker(c *gin.Context) (*models.Worker, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, ErrNoUserID)
		return nil, false
	}
	var worker models.Worker
	if err := tc.DB.Where("user_id = ?", userID).First(&worker).Error; err != nil {
		utils.RespondError(c, http.StatusForbidden, ErrNoWorkerProfile)
		return nil, false
	}
	return &worker, true
}

// AcknowledgeTask -> the worker confirms arrival at the property
func (tc *TaskController) AcknowledgeTask(c *gin.Context) {
	id, ok := paramID(c, "task_id")
	if !ok {
		return
	}
	worker, ok := tc.currentWorker(c)
	if !ok {
		return
	}

	task, err := tc.Tasks.AcknowledgeTask(c.Request.Context(), id, worker.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	tc.Hub.BroadcastTaskUpdate(task)
	utils.InfoLogger.Printf("Worker %d acknowledged arrival for task %d", worker.ID, task.ID)
	utils.RespondJSON(c, http.StatusOK, "Arrival confirmed", task)
}

// WorkerCompleteTask -> the worker marks its own task done
func (tc *TaskController) WorkerCompleteTask(c *gin.Context) {
	id, ok := paramID(c, "task_id")
	if !ok {
		return
	}
	worker, ok := tc.currentWorker(c)
	if !ok {
		return
	}

	task, err := tc.Tasks.CompleteTask(c.Request.Context(), id, worker.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	tc.Hub.BroadcastTaskUpdate(task)
	utils.RespondJSON(c, http.StatusOK, "Cleaning task completed", task)
}

// GetMyTasks -> tasks of the logged-in worker, optional ?status=
func (tc *TaskController) GetMyTasks(c *gin.Context) {
	worker, ok := tc.currentWorker(c)
	if !ok {
		return
	}
	f := services.TaskFilter{WorkerID: worker.ID}
	if v := c.Query("status"); v != "" {
		f.Status = models.TaskStatus(v)
	}
	tasks, err := tc.Tasks.ListTasks(c.Request.Context(), f)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "My cleaning tasks", tasks)
}

func parseDateShift(c *gin.Context, rawDate, rawShift string) (time.Time, models.Shift, bool) {
	date, err := services.ParseDate(rawDate)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return time.Time{}, "", false
	}
	shift, err := services.ParseShift(rawShift)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return time.Time{}, "", false
	}
	return date, shift, true
}
