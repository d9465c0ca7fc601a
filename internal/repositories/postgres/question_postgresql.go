package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KERD-ORG/Bornomala-Updated/internal/cache"
	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// ===== BASIC CRUD OPERATIONS =====

// Create inserts the base row, then the variant row and its children
func (q *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, record *models.QuestionRecord) error {
	if record.Details == nil {
		return fmt.Errorf("failed to create question: %w", models.ErrVariantMissing)
	}
	db := q.getDB(tx).WithContext(ctx)

	if err := db.Omit(clause.Associations).Create(&record.Question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	record.Details.BindQuestion(record.ID)
	if err := db.Create(record.Details).Error; err != nil {
		return fmt.Errorf("failed to create %s row: %w", record.Variant, err)
	}

	for _, set := range record.Details.ChildSets() {
		if err := q.createChildren(db, set); err != nil {
			return err
		}
	}

	return nil
}

// GetByID loads a question with its variant row, children and links
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionRecord, error) {
	db := q.getDB(tx).WithContext(ctx)

	var question models.Question
	if err := q.withLinks(db).First(&question, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get question %d: %w", id, err)
	}

	details, err := q.loadDetails(db, &question)
	if err != nil {
		return nil, err
	}

	return &models.QuestionRecord{Question: question, Details: details}, nil
}

// GetEncoded returns the variant-specific encoding of a question with caching
func (q *QuestionPostgreSQL) GetEncoded(ctx context.Context, tx *gorm.DB, id uint) (json.RawMessage, error) {
	var encoded json.RawMessage

	err := q.cacheManager.Question.CacheOrExecute(ctx, cache.QuestionKey(id), &encoded, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		record, err := q.GetByID(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to encode question %d: %w", id, err)
		}
		return json.RawMessage(data), nil
	})
	if err != nil {
		return nil, err
	}

	return encoded, nil
}

// Update saves the base and variant rows. Child sets named in replace are
// deleted and inserted again from the record; the others are left alone.
func (q *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, record *models.QuestionRecord, replace []string) error {
	if record.Details == nil {
		return fmt.Errorf("failed to update question %d: %w", record.ID, models.ErrVariantMissing)
	}
	db := q.getDB(tx).WithContext(ctx)

	if err := db.Omit(clause.Associations).Save(&record.Question).Error; err != nil {
		return fmt.Errorf("failed to update question %d: %w", record.ID, err)
	}

	record.Details.BindQuestion(record.ID)
	if err := db.Save(record.Details).Error; err != nil {
		return fmt.Errorf("failed to update %s row: %w", record.Variant, err)
	}

	replaced := make(map[string]bool, len(replace))
	for _, name := range replace {
		replaced[name] = true
	}
	for _, set := range record.Details.ChildSets() {
		if !replaced[set.Name] {
			continue
		}
		if err := q.scopedChildren(db, record.ID, set).Delete(set.Model).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", set.Name, err)
		}
		if err := q.createChildren(db, set); err != nil {
			return err
		}
	}

	return nil
}

// Delete removes a question with its variant row, children and link rows.
// Shared explanations stay.
func (q *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := q.getDB(tx).WithContext(ctx)

	var question models.Question
	if err := db.First(&question, id).Error; err != nil {
		return fmt.Errorf("failed to get question %d: %w", id, err)
	}

	if err := db.Model(&question).Association("ExamReferences").Clear(); err != nil {
		return fmt.Errorf("failed to unlink exam references: %w", err)
	}
	if err := db.Model(&question).Association("Explanations").Clear(); err != nil {
		return fmt.Errorf("failed to unlink explanations: %w", err)
	}

	// A corrupt tag leaves no variant table to clean
	if details, err := models.NewVariantRecord(question.Variant); err == nil {
		for _, set := range details.ChildSets() {
			if err := db.Where("question_id = ?", id).Delete(set.Model).Error; err != nil {
				return fmt.Errorf("failed to delete %s: %w", set.Name, err)
			}
		}
		if err := db.Where("question_id = ?", id).Delete(details).Error; err != nil {
			return fmt.Errorf("failed to delete %s row: %w", question.Variant, err)
		}
	}

	if err := db.Delete(&question).Error; err != nil {
		return fmt.Errorf("failed to delete question %d: %w", id, err)
	}

	return nil
}

// ===== QUERY OPERATIONS =====

// List returns one page of generic envelopes with caching. Records that
// fail to load or encode carry an error instead of details.
func (q *QuestionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filter repositories.QuestionFilter) (*repositories.QuestionPage, error) {
	key, err := listCacheKey(filter)
	if err != nil {
		return nil, err
	}

	var page repositories.QuestionPage
	err = q.cacheManager.Question.CacheOrExecute(ctx, key, &page, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		records, total, err := q.ListRecords(ctx, tx, filter)
		if err != nil {
			return nil, err
		}
		return &repositories.QuestionPage{Items: models.EncodeEnvelopes(records), Total: total}, nil
	})
	if err != nil {
		return nil, err
	}

	return &page, nil
}

// ListRecords retrieves questions with filtering and pagination. A variant
// row that cannot be loaded is reported on the record, not returned.
func (q *QuestionPostgreSQL) ListRecords(ctx context.Context, tx *gorm.DB, filter repositories.QuestionFilter) ([]models.QuestionRecord, int64, error) {
	db := q.getDB(tx).WithContext(ctx)
	query := q.applyQuestionFilters(db, db.Model(&models.Question{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	query = ApplyPaginationAndSort(query, filter.SortBy, filter.SortOrder, filter.Limit, filter.Offset)

	var questions []models.Question
	if err := q.withLinks(query).Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	records := make([]models.QuestionRecord, len(questions))
	for i := range questions {
		records[i].Question = questions[i]
		records[i].Details, records[i].LoadErr = q.loadDetails(db, &questions[i])
	}

	return records, total, nil
}

// CountHierarchyMismatches counts questions whose stored parent for the
// SubTopic or SubSubTopic id differs from parentID. Questions without a
// parent reference do not count.
func (q *QuestionPostgreSQL) CountHierarchyMismatches(ctx context.Context, tx *gorm.DB, kind models.LookupKind, id, parentID uint) (int64, error) {
	parentKind, ok := kind.ParentKind()
	if !ok {
		return 0, nil
	}
	column := kind.QuestionColumn()
	parentColumn := parentKind.QuestionColumn()

	var count int64
	err := q.getDB(tx).WithContext(ctx).Model(&models.Question{}).
		Where(column+" = ?", id).
		Where(parentColumn+" IS NOT NULL").
		Where(parentColumn+" <> ?", parentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count questions under %s %d: %w", kind, id, err)
	}
	return count, nil
}

// InvalidateCache drops the cached record and every cached page
func (q *QuestionPostgreSQL) InvalidateCache(ctx context.Context, id uint) {
	cache.InvalidateQuestionCache(ctx, q.cacheManager, id)
}

// ===== ASSOCIATIONS =====

// SetExamReferences replaces the question's exam reference links
func (q *QuestionPostgreSQL) SetExamReferences(ctx context.Context, tx *gorm.DB, question *models.Question, refs []models.ExamReference) error {
	db := q.getDB(tx).WithContext(ctx)
	assoc := db.Model(question).Omit("ExamReferences.*").Association("ExamReferences")

	var err error
	if len(refs) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(refs)
	}
	if err != nil {
		return fmt.Errorf("failed to set exam references: %w", err)
	}

	question.ExamReferences = refs
	return nil
}

// SetExplanations replaces the question's explanation links
func (q *QuestionPostgreSQL) SetExplanations(ctx context.Context, tx *gorm.DB, question *models.Question, explanations []models.Explanation) error {
	db := q.getDB(tx).WithContext(ctx)
	assoc := db.Model(question).Omit("Explanations.*").Association("Explanations")

	var err error
	if len(explanations) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(explanations)
	}
	if err != nil {
		return fmt.Errorf("failed to set explanations: %w", err)
	}

	question.Explanations = explanations
	return nil
}

// ===== HELPER METHODS =====

func (q *QuestionPostgreSQL) applyQuestionFilters(db, query *gorm.DB, filter repositories.QuestionFilter) *gorm.DB {
	if filter.Variant != nil {
		query = query.Where("question_type = ?", string(*filter.Variant))
	}
	for kind, id := range filter.Refs {
		column := kind.QuestionColumn()
		if column == "" {
			continue
		}
		query = query.Where(column+" = ?", id)
	}
	if filter.ExamReferenceID != nil {
		linked := db.Table("question_exam_references").
			Select("question_id").
			Where("exam_reference_id = ?", *filter.ExamReferenceID)
		query = query.Where("id IN (?)", linked)
	}
	return query
}

// withLinks preloads exam references and explanations in id order
func (q *QuestionPostgreSQL) withLinks(query *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id") }
	return query.Preload("ExamReferences", byID).Preload("Explanations", byID)
}

// loadDetails reads the variant row named by the stored tag and its
// children in position order
func (q *QuestionPostgreSQL) loadDetails(db *gorm.DB, question *models.Question) (models.VariantRecord, error) {
	details, err := models.NewVariantRecord(question.Variant)
	if err != nil {
		return nil, err
	}

	if err := db.Where("question_id = ?", question.ID).First(details).Error; err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("question %d has no %s row: %w", question.ID, question.Variant, models.ErrVariantMissing)
		}
		return nil, fmt.Errorf("failed to load %s row: %w", question.Variant, err)
	}

	for _, set := range details.ChildSets() {
		if err := q.scopedChildren(db, question.ID, set).Order("position").Find(set.Rows).Error; err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", set.Name, err)
		}
	}

	return details, nil
}

func (q *QuestionPostgreSQL) scopedChildren(db *gorm.DB, questionID uint, set models.ChildSet) *gorm.DB {
	query := db.Where("question_id = ?", questionID)
	if len(set.Scope) > 0 {
		query = query.Where(set.Scope)
	}
	return query
}

func (q *QuestionPostgreSQL) createChildren(db *gorm.DB, set models.ChildSet) error {
	if set.Len == 0 {
		return nil
	}
	if err := db.Create(set.Rows).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", set.Name, err)
	}
	return nil
}

// listCacheKey hashes the filter so each distinct page has its own entry
func listCacheKey(filter repositories.QuestionFilter) (string, error) {
	data, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("failed to build list cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return "list:" + hex.EncodeToString(sum[:]), nil
}

func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	return getDB(q.db, tx)
}
