package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/KERD-ORG/Bornomala-Updated/internal/events"
	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/repositories"
	"github.com/KERD-ORG/Bornomala-Updated/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest, actorID string) (*models.QuestionRecord, error) {
	s.logger.Info("Creating question", "actor_id", actorID, "type", req.QuestionType)

	// An unknown tag is its own error, not a field problem
	if req.QuestionType != "" {
		if _, err := models.ParseQuestionVariant(req.QuestionType); err != nil {
			return nil, err
		}
	}

	// Validate request with business rules
	if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, errs
	}
	variant, err := models.ParseQuestionVariant(req.QuestionType)
	if err != nil {
		return nil, err
	}

	// Answer problems are reported together with hierarchy problems below
	details, answerErrs := s.buildDetails(variant, &req.VariantFields)

	record := &models.QuestionRecord{
		Question: models.Question{
			Variant:   variant,
			CreatedBy: actorID,
			UpdatedBy: actorID,
		},
	}
	refs := req.Refs()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refErr := &ReferenceError{}
		loaded, err := s.resolveRefs(ctx, tx, refs, refErr)
		if err != nil {
			return err
		}
		examRefs, err := s.resolveExamReferences(ctx, tx, req.ExamReferences, refErr)
		if err != nil {
			return err
		}
		if err := refErr.orNil(); err != nil {
			return err
		}

		hierarchyErrs, err := s.checkHierarchy(ctx, tx, refs, loaded)
		if err != nil {
			return err
		}
		if errs := append(answerErrs, hierarchyErrs...); len(errs) > 0 {
			return errs
		}

		columns := record.RefColumns()
		for kind, id := range refs {
			*columns[kind] = id
		}
		typeID, err := s.repo.Lookup().GetQuestionTypeID(ctx, tx, variant)
		if err != nil {
			return err
		}
		record.QuestionTypeID = typeID
		record.Details = details

		if err := s.repo.Question().Create(ctx, tx, record); err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}

		if len(examRefs) > 0 {
			if err := s.repo.Question().SetExamReferences(ctx, tx, &record.Question, examRefs); err != nil {
				return err
			}
		}
		if len(req.Explanations) > 0 {
			explanations, err := s.resolveExplanations(ctx, tx, req.Explanations)
			if err != nil {
				return err
			}
			if err := s.repo.Question().SetExplanations(ctx, tx, &record.Question, explanations); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.repo.Question().InvalidateCache(ctx, 0)

	s.logger.Info("Question created successfully", "question_id", record.ID, "type", variant)
	s.publish(ctx, events.NewEvent(events.QuestionCreated, actorID, map[string]interface{}{
		"question_id":   record.ID,
		"question_type": variant,
	}))

	return s.load(ctx, record.ID)
}

func (s *questionService) GetByID(ctx context.Context, id uint) (json.RawMessage, error) {
	encoded, err := s.repo.Question().GetEncoded(ctx, nil, id)
	if err != nil {
		return nil, questionLoadError(id, err)
	}
	return encoded, nil
}

// Update applies a partial update. Absent fields keep their stored value;
// nested collections present in the payload are replaced as a whole.
func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest, actorID string) (*models.QuestionRecord, error) {
	s.logger.Info("Updating question", "question_id", id, "actor_id", actorID)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.repo.Question().GetByID(ctx, tx, id)
		if err != nil {
			return questionLoadError(id, err)
		}

		// The tag is fixed at creation; repeating it is allowed
		if req.QuestionType != nil && *req.QuestionType != string(record.Variant) {
			return &ImmutableFieldError{
				Field:     "question_type",
				Stored:    string(record.Variant),
				Requested: *req.QuestionType,
			}
		}

		if errs := s.validator.GetBusinessValidator().ValidateQuestionUpdate(req, record.Variant); len(errs) > 0 {
			return errs
		}

		// Merge references: absent keeps, null clears
		changed := make(map[models.LookupKind]*uint)
		merged := make(map[models.LookupKind]*uint)
		for kind, column := range record.RefColumns() {
			merged[kind] = *column
		}
		for kind, ref := range req.Refs() {
			if !ref.Set {
				continue
			}
			merged[kind] = ref.ID
			changed[kind] = ref.ID
		}

		refErr := &ReferenceError{}
		loaded, err := s.resolveRefs(ctx, tx, changed, refErr)
		if err != nil {
			return err
		}
		var examRefs []models.ExamReference
		if req.ExamReferences != nil {
			if examRefs, err = s.resolveExamReferences(ctx, tx, req.ExamReferences, refErr); err != nil {
				return err
			}
		}
		if err := refErr.orNil(); err != nil {
			return err
		}

		errs, err := s.checkHierarchy(ctx, tx, merged, loaded)
		if err != nil {
			return err
		}

		// The answer is checked again only when variant fields were sent
		supplied := req.VariantFields.Supplied()
		if len(supplied) > 0 {
			fields := variantFields(record.Details)
			overlayFields(&fields, &req.VariantFields)
			details, answerErrs := s.buildDetails(record.Variant, &fields)
			errs = append(errs, answerErrs...)
			record.Details = details
		}
		if len(errs) > 0 {
			return errs
		}

		columns := record.RefColumns()
		for kind, id := range changed {
			*columns[kind] = id
		}
		record.UpdatedBy = actorID

		if err := s.repo.Question().Update(ctx, tx, record, supplied); err != nil {
			return fmt.Errorf("failed to update question: %w", err)
		}

		if req.ExamReferences != nil {
			if err := s.repo.Question().SetExamReferences(ctx, tx, &record.Question, examRefs); err != nil {
				return err
			}
		}
		if req.Explanations != nil {
			explanations, err := s.resolveExplanations(ctx, tx, req.Explanations)
			if err != nil {
				return err
			}
			if err := s.repo.Question().SetExplanations(ctx, tx, &record.Question, explanations); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.repo.Question().InvalidateCache(ctx, id)

	s.logger.Info("Question updated successfully", "question_id", id)
	s.publish(ctx, events.NewEvent(events.QuestionUpdated, actorID, map[string]interface{}{
		"question_id": id,
	}))

	return s.load(ctx, id)
}

func (s *questionService) Delete(ctx context.Context, id uint, actorID string) error {
	s.logger.Info("Deleting question", "question_id", id, "actor_id", actorID)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Question().Delete(ctx, tx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to delete question: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.repo.Question().InvalidateCache(ctx, id)

	s.logger.Info("Question deleted successfully", "question_id", id)
	s.publish(ctx, events.NewEvent(events.QuestionDeleted, actorID, map[string]interface{}{
		"question_id": id,
	}))
	return nil
}

// ===== LISTING =====

// List returns one page of generic envelopes. A record that cannot be
// encoded is reported in its envelope; the page itself still succeeds.
func (s *questionService) List(ctx context.Context, req *ListQuestionsRequest) (*QuestionListResponse, error) {
	filter, page, size, err := questionFilter(req)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.Question().List(ctx, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	for _, item := range result.Items {
		if item.Failed() {
			s.logger.Warn("Question could not be encoded", "question_id", item.ID, "type", item.QuestionType, "error", item.Error)
		}
	}

	return &QuestionListResponse{
		Items: result.Items,
		Total: result.Total,
		Page:  page,
		Size:  size,
	}, nil
}

// questionFilter converts the query string into a repository filter
func questionFilter(req *ListQuestionsRequest) (repositories.QuestionFilter, int, int, error) {
	page, size, limit, offset := normalizePage(req.Page, req.PageSize)
	filter := repositories.QuestionFilter{
		Refs:            make(map[models.LookupKind]uint),
		ExamReferenceID: req.ExamReference,
		Limit:           limit,
		Offset:          offset,
		SortBy:          req.SortBy,
		SortOrder:       req.SortOrder,
	}

	if req.QuestionType != "" {
		variant, err := models.ParseQuestionVariant(req.QuestionType)
		if err != nil {
			return filter, 0, 0, err
		}
		filter.Variant = &variant
	}

	for kind, id := range map[models.LookupKind]*uint{
		models.KindSubject:         req.TargetSubject,
		models.KindTopic:           req.Topic,
		models.KindSubTopic:        req.SubTopic,
		models.KindSubSubTopic:     req.SubSubTopic,
		models.KindDifficultyLevel: req.DifficultyLevel,
		models.KindQuestionStatus:  req.QuestionStatus,
		models.KindTargetGroup:     req.TargetGroup,
		models.KindQuestionLevel:   req.QuestionLevel,
		models.KindOrganization:    req.TargetOrganization,
	} {
		if id != nil {
			filter.Refs[kind] = *id
		}
	}

	return filter, page, size, nil
}

// ===== HELPER METHODS =====

// load reads a committed question for the response
func (s *questionService) load(ctx context.Context, id uint) (*models.QuestionRecord, error) {
	record, err := s.repo.Question().GetByID(ctx, nil, id)
	if err != nil {
		return nil, questionLoadError(id, err)
	}
	return record, nil
}

// questionLoadError maps a failed read of one question onto the service
// errors. A base row without readable variant data is corrupt, not absent.
func questionLoadError(id uint, err error) error {
	switch {
	case errors.Is(err, models.ErrVariantMissing), errors.Is(err, models.ErrUnknownVariant):
		return fmt.Errorf("question %d: %w: %w", id, ErrCorruptQuestion, err)
	case repositories.IsNotFoundError(err):
		return ErrQuestionNotFound
	}
	return fmt.Errorf("failed to get question %d: %w", id, err)
}

// publish sends an event after commit. Failures are logged only.
func (s *questionService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.publisher, s.logger, event)
}

func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish event", "event_type", event.Type, "event_id", event.ID, "error", err)
	}
}
