package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/KERD-ORG/Bornomala-Updated/internal/events"
	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/repositories"
	"github.com/KERD-ORG/Bornomala-Updated/internal/validator"
)

type lookupService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewLookupService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) LookupService {
	return &lookupService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *lookupService) Create(ctx context.Context, kind models.LookupKind, req *CreateLookupRequest, actorID string) (models.Lookup, error) {
	s.logger.Info("Creating lookup", "kind", kind, "actor_id", actorID)

	entity, err := models.NewLookup(kind)
	if err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateLookupCreate(kind, req); len(errs) > 0 {
		return nil, errs
	}

	fields := models.LookupFields{
		Name:          strings.TrimSpace(req.Name),
		ReferenceName: strings.TrimSpace(req.ReferenceName),
		YearOfExam:    blankToNil(req.YearOfExam),
	}
	switch kind {
	case models.KindSubTopic:
		fields.ParentID = *req.Topic
	case models.KindSubSubTopic:
		fields.ParentID = *req.SubTopic
	}
	models.Assign(entity, fields)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkParent(ctx, tx, kind, fields.ParentID); err != nil {
			return err
		}
		if err := s.checkUnique(ctx, tx, kind, fields.Name, nil); err != nil {
			return err
		}
		if err := s.repo.Lookup().Create(ctx, tx, entity); err != nil {
			if repositories.IsDuplicateError(err) {
				return NewConflictError(kind, entity.Label())
			}
			return fmt.Errorf("failed to create lookup: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lookup created successfully", "kind", kind, "id", entity.GetID())
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.LookupCreated, actorID, map[string]interface{}{
		"kind": kind,
		"id":   entity.GetID(),
	}))

	return entity, nil
}

func (s *lookupService) GetByID(ctx context.Context, kind models.LookupKind, id uint) (models.Lookup, error) {
	entity, err := s.repo.Lookup().GetByID(ctx, nil, kind, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrLookupNotFound
		}
		return nil, fmt.Errorf("failed to get lookup: %w", err)
	}
	return entity, nil
}

// Update applies a partial update to one lookup row
func (s *lookupService) Update(ctx context.Context, kind models.LookupKind, id uint, req *UpdateLookupRequest, actorID string) (models.Lookup, error) {
	s.logger.Info("Updating lookup", "kind", kind, "id", id, "actor_id", actorID)

	if _, err := models.NewLookup(kind); err != nil {
		return nil, err
	}
	if errs := s.validator.GetBusinessValidator().ValidateLookupUpdate(kind, req); len(errs) > 0 {
		return nil, errs
	}

	var entity models.Lookup
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entity, err = s.repo.Lookup().GetByID(ctx, tx, kind, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrLookupNotFound
			}
			return fmt.Errorf("failed to get lookup: %w", err)
		}

		fields := models.FieldsOf(entity)
		oldParent := fields.ParentID
		nameChanged := false
		if req.Name != nil && kind != models.KindExamReference {
			fields.Name = strings.TrimSpace(*req.Name)
			nameChanged = true
		}
		if req.ReferenceName != nil && kind == models.KindExamReference {
			fields.ReferenceName = strings.TrimSpace(*req.ReferenceName)
		}
		if req.YearOfExam.Set {
			fields.YearOfExam = blankToNil(req.YearOfExam.Value)
		}
		if req.Topic != nil && kind == models.KindSubTopic {
			fields.ParentID = *req.Topic
		}
		if req.SubTopic != nil && kind == models.KindSubSubTopic {
			fields.ParentID = *req.SubTopic
		}

		if err := s.checkParent(ctx, tx, kind, fields.ParentID); err != nil {
			return err
		}
		if fields.ParentID != oldParent {
			if err := s.checkReparent(ctx, tx, kind, id, fields.ParentID); err != nil {
				return err
			}
		}
		if nameChanged {
			if err := s.checkUnique(ctx, tx, kind, fields.Name, &id); err != nil {
				return err
			}
		}

		models.Assign(entity, fields)
		if err := s.repo.Lookup().Update(ctx, tx, entity); err != nil {
			if repositories.IsDuplicateError(err) {
				return NewConflictError(kind, entity.Label())
			}
			return fmt.Errorf("failed to update lookup: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.repo.Lookup().InvalidateCache(ctx, kind, id)

	s.logger.Info("Lookup updated successfully", "kind", kind, "id", id)
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.LookupUpdated, actorID, map[string]interface{}{
		"kind": kind,
		"id":   id,
	}))

	return entity, nil
}

// Delete removes a lookup row. Descendant topics go with it and questions
// that referenced any removed row keep existing with the reference cleared.
func (s *lookupService) Delete(ctx context.Context, kind models.LookupKind, id uint, actorID string) error {
	s.logger.Info("Deleting lookup", "kind", kind, "id", id, "actor_id", actorID)

	var removed map[models.LookupKind][]uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = s.repo.Lookup().Delete(ctx, tx, kind, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrLookupNotFound
			}
			return fmt.Errorf("failed to delete lookup: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for k, ids := range removed {
		s.repo.Lookup().InvalidateCache(ctx, k, ids...)
	}

	s.logger.Info("Lookup deleted successfully", "kind", kind, "id", id)
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.LookupDeleted, actorID, map[string]interface{}{
		"kind": kind,
		"id":   id,
	}))
	return nil
}

func (s *lookupService) List(ctx context.Context, kind models.LookupKind, req *ListLookupsRequest) (*LookupListResponse, error) {
	page, size, limit, offset := normalizePage(req.Page, req.PageSize)

	items, total, err := s.repo.Lookup().List(ctx, nil, kind, repositories.LookupFilter{
		Name:     req.Name,
		ParentID: req.Parent,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list lookups: %w", err)
	}

	return &LookupListResponse{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
	}, nil
}

// ===== HELPER METHODS =====

// checkParent requires the parent topic or subtopic of a child kind to exist
func (s *lookupService) checkParent(ctx context.Context, tx *gorm.DB, kind models.LookupKind, parentID uint) error {
	parentKind, ok := kind.ParentKind()
	if !ok {
		return nil
	}
	if _, err := s.repo.Lookup().GetByID(ctx, tx, parentKind, parentID); err != nil {
		if repositories.IsNotFoundError(err) {
			refErr := &ReferenceError{}
			refErr.add(refFields[parentKind], parentKind, parentID)
			return refErr
		}
		return fmt.Errorf("failed to check parent: %w", err)
	}
	return nil
}

// checkReparent rejects moving a SubTopic or SubSubTopic under a new parent
// while questions still pair it with the old one
func (s *lookupService) checkReparent(ctx context.Context, tx *gorm.DB, kind models.LookupKind, id, parentID uint) error {
	count, err := s.repo.Question().CountHierarchyMismatches(ctx, tx, kind, id, parentID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d questions place %s %d under its current parent", ErrConflict, count, kind, id)
	}
	return nil
}

// checkUnique rejects a name already used by another row of the kind
func (s *lookupService) checkUnique(ctx context.Context, tx *gorm.DB, kind models.LookupKind, name string, excludeID *uint) error {
	if !kind.RequiresUniqueName() {
		return nil
	}
	exists, err := s.repo.Lookup().ExistsByName(ctx, tx, kind, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return NewConflictError(kind, name)
	}
	return nil
}
