package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/services"
	"github.com/KERD-ORG/Bornomala-Updated/internal/utils"
)

type HandlerManager struct {
	questionHandler *QuestionHandler
	lookupHandler   *LookupHandler
	authMiddleware  *CasdoorAuthMiddleware
	health          func(ctx context.Context) error
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
) *HandlerManager {
	return &HandlerManager{
		questionHandler: NewQuestionHandler(serviceManager.Question(), serviceManager.ImportExport(), logger),
		lookupHandler:   NewLookupHandler(serviceManager.Lookup(), logger),
		authMiddleware:  authMiddleware,
		health:          serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck(hm.health))

	editors := hm.authMiddleware.RequireRoleMiddleware(models.RoleEditor, models.RoleAdmin)

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		questions := v1.Group("/questions")
		{
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/export", hm.questionHandler.ExportQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)

			questions.POST("", editors, hm.questionHandler.CreateQuestion)
			questions.POST("/import", editors, hm.questionHandler.ImportQuestions)
			questions.PATCH("/:id", editors, hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", editors, hm.questionHandler.DeleteQuestion)
		}

		// One static group per lookup kind
		for _, kind := range models.AllLookupKinds() {
			lookups := v1.Group("/"+string(kind), WithKind(kind))
			{
				lookups.GET("", hm.lookupHandler.ListLookups)
				lookups.GET("/:id", hm.lookupHandler.GetLookup)

				lookups.POST("", editors, hm.lookupHandler.CreateLookup)
				lookups.PATCH("/:id", editors, hm.lookupHandler.UpdateLookup)
				lookups.DELETE("/:id", editors, hm.lookupHandler.DeleteLookup)
			}
		}
	}
}

// HealthCheck reports the service and database status
func HealthCheck(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		body := gin.H{
			"service":   "question-catalog",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
				body["error"] = err.Error()
			}
		}
		body["status"] = status
		c.JSON(code, body)
	}
}
