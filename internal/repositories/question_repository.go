package repositories

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
)

// QuestionRepository stores base rows, variant rows and their children
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, record *models.QuestionRecord) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionRecord, error)
	GetEncoded(ctx context.Context, tx *gorm.DB, id uint) (json.RawMessage, error)
	// Update saves the base and variant rows and replaces the named child sets
	Update(ctx context.Context, tx *gorm.DB, record *models.QuestionRecord, replace []string) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filter QuestionFilter) (*QuestionPage, error)
	ListRecords(ctx context.Context, tx *gorm.DB, filter QuestionFilter) ([]models.QuestionRecord, int64, error)

	// CountHierarchyMismatches counts questions that reference the SubTopic or
	// SubSubTopic id together with a parent other than parentID
	CountHierarchyMismatches(ctx context.Context, tx *gorm.DB, kind models.LookupKind, id, parentID uint) (int64, error)

	// InvalidateCache drops the cached record and cached pages. An id of 0
	// drops pages only. Call it after the writing transaction commits.
	InvalidateCache(ctx context.Context, id uint)

	// Associations
	SetExamReferences(ctx context.Context, tx *gorm.DB, question *models.Question, refs []models.ExamReference) error
	SetExplanations(ctx context.Context, tx *gorm.DB, question *models.Question, explanations []models.Explanation) error
}

// ExplanationRepository stores deduplicated explanations
type ExplanationRepository interface {
	// ResolveOrCreate returns the row with this content, inserting it if needed
	ResolveOrCreate(ctx context.Context, tx *gorm.DB, level models.ExplanationLevel, text, videoURL *string) (*models.Explanation, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Explanation, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}
