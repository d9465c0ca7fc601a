package services

import (
	"context"
	"encoding/json"
	"io"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type CreateLookupRequest = validator.LookupCreateRequest
type UpdateLookupRequest = validator.LookupUpdateRequest

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuestionsRequest carries the query string of GET /questions
type ListQuestionsRequest struct {
	QuestionType       string `form:"question_type"`
	TargetSubject      *uint  `form:"target_subject"`
	Topic              *uint  `form:"topic"`
	SubTopic           *uint  `form:"sub_topic"`
	SubSubTopic        *uint  `form:"sub_sub_topic"`
	DifficultyLevel    *uint  `form:"difficulty_level"`
	QuestionStatus     *uint  `form:"question_status"`
	TargetGroup        *uint  `form:"target_group"`
	QuestionLevel      *uint  `form:"question_level"`
	TargetOrganization *uint  `form:"target_organization"`
	ExamReference      *uint  `form:"exam_reference"`
	Page               int    `form:"page"`
	PageSize           int    `form:"page_size"`
	SortBy             string `form:"sort_by"`
	SortOrder          string `form:"sort_order"`
}

type QuestionListResponse struct {
	Items []models.QuestionEnvelope `json:"items"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Size  int                       `json:"size"`
}

// ListLookupsRequest carries the query string of GET /:kind
type ListLookupsRequest struct {
	Name     string `form:"name"`
	Parent   *uint  `form:"parent"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type LookupListResponse struct {
	Items []models.Lookup `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

// ===== IMPORT/EXPORT DTOs =====

type ImportRowError struct {
	Row          int              `json:"row"`
	QuestionType string           `json:"question_type,omitempty"`
	Error        string           `json:"error"`
	Details      ValidationErrors `json:"details,omitempty"`
}

type ImportReport struct {
	TotalRows   int              `json:"total_rows"`
	SuccessRows int              `json:"success_rows"`
	FailedRows  int              `json:"failed_rows"`
	CreatedIDs  []uint           `json:"created_ids"`
	Errors      []ImportRowError `json:"errors"`
}

// ===== SERVICE INTERFACES =====

type QuestionService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateQuestionRequest, actorID string) (*models.QuestionRecord, error)
	GetByID(ctx context.Context, id uint) (json.RawMessage, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest, actorID string) (*models.QuestionRecord, error)
	Delete(ctx context.Context, id uint, actorID string) error

	// Listing
	List(ctx context.Context, req *ListQuestionsRequest) (*QuestionListResponse, error)
}

type LookupService interface {
	Create(ctx context.Context, kind models.LookupKind, req *CreateLookupRequest, actorID string) (models.Lookup, error)
	GetByID(ctx context.Context, kind models.LookupKind, id uint) (models.Lookup, error)
	Update(ctx context.Context, kind models.LookupKind, id uint, req *UpdateLookupRequest, actorID string) (models.Lookup, error)
	Delete(ctx context.Context, kind models.LookupKind, id uint, actorID string) error
	List(ctx context.Context, kind models.LookupKind, req *ListLookupsRequest) (*LookupListResponse, error)
}

type ImportExportService interface {
	ExportQuestions(ctx context.Context, req *ListQuestionsRequest) ([]byte, error)
	ImportQuestions(ctx context.Context, r io.Reader, actorID string) (*ImportReport, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Question() QuestionService
	Lookup() LookupService

	// Additional service getters
	ImportExport() ImportExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// normalizePage applies the default and maximum page size and returns the
// limit and offset for the repository
func normalizePage(page, size int) (int, int, int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size, size, (page - 1) * size
}
