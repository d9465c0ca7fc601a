package repositories

import (
	"errors"

	"gorm.io/gorm"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type LookupFilter struct {
	Name     string `json:"name"`      // case-insensitive contains
	ParentID *uint  `json:"parent_id"` // subtopics and subsubtopics only
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

type QuestionFilter struct {
	Variant         *models.QuestionVariant    `json:"question_type"`
	Refs            map[models.LookupKind]uint `json:"refs"`
	ExamReferenceID *uint                      `json:"exam_reference"`
	Limit           int                        `json:"limit"`
	Offset          int                        `json:"offset"`
	SortBy          string                     `json:"sort_by"`    // "created_at", "updated_at", "id"
	SortOrder       string                     `json:"sort_order"` // "asc", "desc"
}

// ===== RESULT STRUCTS =====

// QuestionPage is one page of the generic listing
type QuestionPage struct {
	Items []models.QuestionEnvelope `json:"items"`
	Total int64                     `json:"total"`
}

// ===== ERRORS =====

var ErrDuplicate = errors.New("duplicate record")

// IsNotFoundError reports whether err means the row does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique constraint violation
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey)
}
