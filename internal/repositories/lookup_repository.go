package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
)

// LookupRepository serves every lookup kind through one interface
type LookupRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entity models.Lookup) error
	GetByID(ctx context.Context, tx *gorm.DB, kind models.LookupKind, id uint) (models.Lookup, error)
	GetExamReferences(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.ExamReference, error)
	Update(ctx context.Context, tx *gorm.DB, entity models.Lookup) error
	// Delete removes the row and its descendants and clears question
	// references. It returns the ids of every removed row by kind.
	Delete(ctx context.Context, tx *gorm.DB, kind models.LookupKind, id uint) (map[models.LookupKind][]uint, error)
	List(ctx context.Context, tx *gorm.DB, kind models.LookupKind, filter LookupFilter) ([]models.Lookup, int64, error)

	// Validation and checks
	ExistsByName(ctx context.Context, tx *gorm.DB, kind models.LookupKind, name string, excludeID *uint) (bool, error)

	// InvalidateCache drops cached rows and every cached question. Call it
	// after the writing transaction commits.
	InvalidateCache(ctx context.Context, kind models.LookupKind, ids ...uint)

	// Question type rows mirror the variant tags
	EnsureQuestionTypes(ctx context.Context, tx *gorm.DB) error
	GetQuestionTypeID(ctx context.Context, tx *gorm.DB, variant models.QuestionVariant) (*uint, error)
}
