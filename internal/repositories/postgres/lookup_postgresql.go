package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KERD-ORG/Bornomala-Updated/internal/cache"
	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/repositories"
)

// lookupTable lists rows of one concrete lookup type
type lookupTable interface {
	find(query *gorm.DB) ([]models.Lookup, error)
}

type lookupRow[T any] interface {
	*T
	models.Lookup
}

type table[T any, P lookupRow[T]] struct{}

func (table[T, P]) find(query *gorm.DB) ([]models.Lookup, error) {
	var rows []T
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Lookup, len(rows))
	for i := range rows {
		out[i] = P(&rows[i])
	}
	return out, nil
}

var lookupTables = map[models.LookupKind]lookupTable{
	models.KindSubject:         table[models.Subject, *models.Subject]{},
	models.KindTopic:           table[models.Topic, *models.Topic]{},
	models.KindSubTopic:        table[models.SubTopic, *models.SubTopic]{},
	models.KindSubSubTopic:     table[models.SubSubTopic, *models.SubSubTopic]{},
	models.KindDifficultyLevel: table[models.DifficultyLevel, *models.DifficultyLevel]{},
	models.KindQuestionStatus:  table[models.QuestionStatus, *models.QuestionStatus]{},
	models.KindQuestionType:    table[models.QuestionType, *models.QuestionType]{},
	models.KindTargetGroup:     table[models.TargetGroup, *models.TargetGroup]{},
	models.KindOrganization:    table[models.Organization, *models.Organization]{},
	models.KindExamReference:   table[models.ExamReference, *models.ExamReference]{},
	models.KindQuestionLevel:   table[models.QuestionLevel, *models.QuestionLevel]{},
}

type LookupPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewLookupPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.LookupRepository {
	return &LookupPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// ===== BASIC CRUD OPERATIONS =====

// Create inserts a lookup row. Unique violations surface as ErrDuplicate.
func (l *LookupPostgreSQL) Create(ctx context.Context, tx *gorm.DB, entity models.Lookup) error {
	db := l.getDB(tx)
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		return wrapWriteError("create "+string(entity.Kind()), err)
	}
	return nil
}

// GetByID retrieves a lookup row with caching
func (l *LookupPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, kind models.LookupKind, id uint) (models.Lookup, error) {
	db := l.getDB(tx)
	entity, err := models.NewLookup(kind)
	if err != nil {
		return nil, err
	}

	err = l.cacheManager.Lookup.CacheOrExecute(ctx, cache.LookupKey(string(kind), id), entity, cache.LookupCacheConfig.TTL, func() (interface{}, error) {
		row, _ := models.NewLookup(kind)
		if err := db.WithContext(ctx).First(row, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get %s %d: %w", kind, id, err)
		}
		return row, nil
	})
	if err != nil {
		return nil, err
	}

	return entity, nil
}

// GetExamReferences loads the exam references with the given ids. Missing ids
// are simply absent from the result.
func (l *LookupPostgreSQL) GetExamReferences(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.ExamReference, error) {
	if len(ids) == 0 {
		return []models.ExamReference{}, nil
	}
	db := l.getDB(tx)
	var refs []models.ExamReference
	if err := db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&refs).Error; err != nil {
		return nil, fmt.Errorf("failed to get exam references: %w", err)
	}
	return refs, nil
}

// Update saves a modified lookup row
func (l *LookupPostgreSQL) Update(ctx context.Context, tx *gorm.DB, entity models.Lookup) error {
	db := l.getDB(tx)
	if err := db.WithContext(ctx).Save(entity).Error; err != nil {
		return wrapWriteError("update "+string(entity.Kind()), err)
	}
	return nil
}

// Delete removes a lookup row. Topic and SubTopic rows take their
// descendants with them; question references to any removed row are set to
// NULL and exam reference links are dropped. Questions are never deleted.
func (l *LookupPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, kind models.LookupKind, id uint) (map[models.LookupKind][]uint, error) {
	db := l.getDB(tx).WithContext(ctx)

	entity, err := models.NewLookup(kind)
	if err != nil {
		return nil, err
	}
	if err := db.First(entity, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get %s %d: %w", kind, id, err)
	}

	removed := map[models.LookupKind][]uint{kind: {id}}
	switch kind {
	case models.KindTopic:
		var subTopicIDs []uint
		if err := db.Model(&models.SubTopic{}).Where("topic_id = ?", id).Pluck("id", &subTopicIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to collect subtopics: %w", err)
		}
		removed[models.KindSubTopic] = subTopicIDs
		if len(subTopicIDs) > 0 {
			var subSubTopicIDs []uint
			if err := db.Model(&models.SubSubTopic{}).Where("sub_topic_id IN ?", subTopicIDs).Pluck("id", &subSubTopicIDs).Error; err != nil {
				return nil, fmt.Errorf("failed to collect subsubtopics: %w", err)
			}
			removed[models.KindSubSubTopic] = subSubTopicIDs
		}
	case models.KindSubTopic:
		var subSubTopicIDs []uint
		if err := db.Model(&models.SubSubTopic{}).Where("sub_topic_id = ?", id).Pluck("id", &subSubTopicIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to collect subsubtopics: %w", err)
		}
		removed[models.KindSubSubTopic] = subSubTopicIDs
	}

	for k, ids := range removed {
		if len(ids) == 0 {
			continue
		}
		if err := l.detachQuestions(db, k, ids); err != nil {
			return nil, err
		}
	}

	// Children first so the foreign keys hold at every step
	for _, k := range []models.LookupKind{models.KindSubSubTopic, models.KindSubTopic} {
		if k == kind || len(removed[k]) == 0 {
			continue
		}
		row, _ := models.NewLookup(k)
		if err := db.Delete(row, removed[k]).Error; err != nil {
			return nil, fmt.Errorf("failed to delete %s: %w", k, err)
		}
	}

	if err := db.Delete(entity).Error; err != nil {
		return nil, fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}

	return removed, nil
}

// InvalidateCache drops the cached rows and every cached question
func (l *LookupPostgreSQL) InvalidateCache(ctx context.Context, kind models.LookupKind, ids ...uint) {
	cache.InvalidateLookupCache(ctx, l.cacheManager, string(kind), ids...)
}

// detachQuestions clears every question reference to the given rows
func (l *LookupPostgreSQL) detachQuestions(db *gorm.DB, kind models.LookupKind, ids []uint) error {
	if kind == models.KindExamReference {
		if err := db.Exec("DELETE FROM question_exam_references WHERE exam_reference_id IN ?", ids).Error; err != nil {
			return fmt.Errorf("failed to unlink exam references: %w", err)
		}
		return nil
	}

	column := kind.QuestionColumn()
	if err := db.Model(&models.Question{}).
		Where(column+" IN ?", ids).
		Update(column, gorm.Expr("NULL")).Error; err != nil {
		return fmt.Errorf("failed to clear question %s: %w", column, err)
	}
	return nil
}

// ===== QUERY OPERATIONS =====

// List returns the rows of one kind matching the filter, ordered by id
func (l *LookupPostgreSQL) List(ctx context.Context, tx *gorm.DB, kind models.LookupKind, filter repositories.LookupFilter) ([]models.Lookup, int64, error) {
	t, ok := lookupTables[kind]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", models.ErrUnknownLookupKind, string(kind))
	}
	row, _ := models.NewLookup(kind)

	db := l.getDB(tx)
	query := db.WithContext(ctx).Model(row)

	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where("LOWER("+kind.NameColumn()+") LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if filter.ParentID != nil {
		if column := kind.ParentColumn(); column != "" {
			query = query.Where(column+" = ?", *filter.ParentID)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", kind, err)
	}

	query = ApplyPaginationAndSort(query, "id", "asc", filter.Limit, filter.Offset)
	rows, err := t.find(query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", kind, err)
	}

	return rows, total, nil
}

// ExistsByName checks the kind's name column for an exact match
func (l *LookupPostgreSQL) ExistsByName(ctx context.Context, tx *gorm.DB, kind models.LookupKind, name string, excludeID *uint) (bool, error) {
	row, err := models.NewLookup(kind)
	if err != nil {
		return false, err
	}

	db := l.getDB(tx)
	query := db.WithContext(ctx).Model(row).
		Where(kind.NameColumn()+" = ?", strings.TrimSpace(name))
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check %s name: %w", kind, err)
	}
	return count > 0, nil
}

// ===== QUESTION TYPES =====

// EnsureQuestionTypes inserts a question type row for every variant tag
// that does not have one yet
func (l *LookupPostgreSQL) EnsureQuestionTypes(ctx context.Context, tx *gorm.DB) error {
	db := l.getDB(tx)
	variants := models.AllQuestionVariants()
	rows := make([]models.QuestionType, len(variants))
	for i, v := range variants {
		rows[i].Name = string(v)
	}

	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to seed question types: %w", err)
	}
	return nil
}

// GetQuestionTypeID returns the id of the row named after the tag, or nil
// when the row was deleted
func (l *LookupPostgreSQL) GetQuestionTypeID(ctx context.Context, tx *gorm.DB, variant models.QuestionVariant) (*uint, error) {
	db := l.getDB(tx)
	var row models.QuestionType
	err := db.WithContext(ctx).Where("name = ?", string(variant)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question type %s: %w", variant, err)
	}
	return &row.ID, nil
}

func (l *LookupPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	return getDB(l.db, tx)
}
