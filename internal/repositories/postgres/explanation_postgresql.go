package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/repositories"
)

type ExplanationPostgreSQL struct {
	db *gorm.DB
}

func NewExplanationPostgreSQL(db *gorm.DB) repositories.ExplanationRepository {
	return &ExplanationPostgreSQL{db: db}
}

// ResolveOrCreate returns the explanation with exactly this content. The
// insert skips on a dedup_key conflict so concurrent writers converge on
// one row.
func (e *ExplanationPostgreSQL) ResolveOrCreate(ctx context.Context, tx *gorm.DB, level models.ExplanationLevel, text, videoURL *string) (*models.Explanation, error) {
	db := e.getDB(tx).WithContext(ctx)

	text, videoURL = normalize(text), normalize(videoURL)
	key := models.ExplanationDedupKey(level, text, videoURL)

	candidate := models.Explanation{
		Level:    level,
		Text:     text,
		VideoURL: videoURL,
		DedupKey: key,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		return nil, fmt.Errorf("failed to create explanation: %w", err)
	}

	var explanation models.Explanation
	if err := db.Where("dedup_key = ?", key).First(&explanation).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve explanation: %w", err)
	}
	return &explanation, nil
}

// GetByID retrieves an explanation by ID
func (e *ExplanationPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Explanation, error) {
	db := e.getDB(tx)
	var explanation models.Explanation
	if err := db.WithContext(ctx).First(&explanation, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get explanation %d: %w", id, err)
	}
	return &explanation, nil
}

// Count returns the number of stored explanations
func (e *ExplanationPostgreSQL) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	db := e.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).Model(&models.Explanation{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count explanations: %w", err)
	}
	return count, nil
}

func (e *ExplanationPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	return getDB(e.db, tx)
}

// normalize maps blank strings to nil so they hash like absent values
func normalize(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
