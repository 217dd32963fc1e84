package controllers

import (
	"errors"
	"net/http"

	"shiftbook-backend/models"
	"shiftbook-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TodoController struct {
	DB *gorm.DB
}

// CreateTodoInput defines the expected JSON structure for creating a todo
type CreateTodoInput struct {
	Title string `json:"title" binding:"required,max=200"`
}

// UpdateTodoInput defines the expected JSON structure for updating a todo
type UpdateTodoInput struct {
	Title *string `json:"title" binding:"omitempty,max=200"`
	Done  *bool   `json:"done"`
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(utils.ContextUser)
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return uuid.Nil, false
	}
	userUUID, err := uuid.Parse(userID.(string))
	if err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userUUID, true
}

// findTodo loads a todo owned by the user, answering the request itself on failure
func (tc *TodoController) findTodo(c *gin.Context, userUUID uuid.UUID) (*models.Todo, bool) {
	todoUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid todo ID format")
		return nil, false
	}

	var todo models.Todo
	if err := tc.DB.Where("user_id = ? AND id = ?", userUUID, todoUUID).First(&todo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Todo not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &todo, true
}

func (tc *TodoController) CreateTodo(c *gin.Context) {
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	var input CreateTodoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	todo := models.Todo{UserID: userUUID, Title: input.Title}
	if err := tc.DB.Create(&todo).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create todo")
		return
	}

	c.JSON(http.StatusCreated, todo)
}

func (tc *TodoController) GetTodos(c *gin.Context) {
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	var todos []models.Todo
	if err := tc.DB.Where("user_id = ?", userUUID).Order("created_at ASC").Find(&todos).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve todos")
		return
	}

	c.JSON(http.StatusOK, todos)
}

func (tc *TodoController) GetTodo(c *gin.Context) {
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}
	todo, ok := tc.findTodo(c, userUUID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, todo)
}

func (tc *TodoController) UpdateTodo(c *gin.Context) {
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	var input UpdateTodoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	todo, ok := tc.findTodo(c, userUUID)
	if !ok {
		return
	}

	if input.Title != nil {
		todo.Title = *input.Title
	}
	if input.Done != nil {
		todo.Done = *input.Done
	}

	if err := tc.DB.Save(todo).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update todo")
		return
	}

	c.JSON(http.StatusOK, todo)
}

// DeleteTodo soft deletes a todo
func (tc *TodoController) DeleteTodo(c *gin.Context) {
	userUUID, ok := currentUser(c)
	if !ok {
		return
	}

	todoUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid todo ID format")
		return
	}

	result := tc.DB.Where("user_id = ? AND id = ?", userUUID, todoUUID).Delete(&models.Todo{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete todo")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Todo not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Todo deleted successfully"})
}
