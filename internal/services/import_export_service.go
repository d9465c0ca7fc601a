package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KERD-ORG/Bornomala-Updated/internal/events"
	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/repositories"
)

const (
	ExportSheet   = "questions"
	MaxExportRows = 10000

	ColumnID           = "id"
	ColumnQuestionType = "question_type"
	ColumnPayload      = "payload"
	ColumnError        = "error"
)

type importExportService struct {
	repo      repositories.Repository
	questions QuestionService
	logger    *slog.Logger
	publisher events.EventPublisher
}

func NewImportExportService(repo repositories.Repository, questions QuestionService, logger *slog.Logger, publisher events.EventPublisher) ImportExportService {
	return &importExportService{
		repo:      repo,
		questions: questions,
		logger:    logger,
		publisher: publisher,
	}
}

// ExportQuestions writes the matching questions as generic envelopes, one
// row per question. The payload column holds the specific encoding.
func (s *importExportService) ExportQuestions(ctx context.Context, req *ListQuestionsRequest) ([]byte, error) {
	filter, _, _, err := questionFilter(req)
	if err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = MaxExportRows, 0

	records, total, err := s.repo.Question().ListRecords(ctx, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions for export: %w", err)
	}
	s.logger.Info("Exporting questions", "count", len(records), "total", total)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, ExportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	sheet = ExportSheet

	headers := []string{ColumnID, ColumnQuestionType, ColumnPayload, ColumnError}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, env := range models.EncodeEnvelopes(records) {
		row := i + 2
		values := []any{env.ID, string(env.QuestionType), string(env.Details), env.Error}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "B", 18)
	_ = f.SetColWidth(sheet, "C", "C", 80)
	_ = f.SetColWidth(sheet, "D", "D", 40)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportQuestions creates one question per data row. Each row is created
// in its own transaction so a bad row never blocks the others.
func (s *importExportService) ImportQuestions(ctx context.Context, r io.Reader, actorID string) (*ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ValidationErrors{{Field: "file", Message: "is not a readable xlsx file", Rule: "file"}}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ValidationErrors{{Field: "file", Message: "has no sheets", Rule: "file"}}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ValidationErrors{{Field: "file", Message: "has no data rows", Rule: "file"}}
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{ColumnQuestionType, ColumnPayload} {
		if _, ok := header[col]; !ok {
			return nil, ValidationErrors{{Field: "file", Message: "is missing column " + col, Rule: "file"}}
		}
	}

	s.logger.Info("Importing questions", "rows", len(rows)-1, "actor_id", actorID)

	report := &ImportReport{CreatedIDs: make([]uint, 0), Errors: make([]ImportRowError, 0)}
	for i := 1; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]

		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		questionType := get(ColumnQuestionType)
		payload := get(ColumnPayload)
		if questionType == "" && payload == "" {
			continue
		}
		report.TotalRows++

		fail := func(err error) {
			report.FailedRows++
			rowErr := ImportRowError{Row: rowNo, QuestionType: questionType, Error: err.Error()}
			var verrs ValidationErrors
			if errors.As(err, &verrs) {
				rowErr.Details = verrs
			}
			report.Errors = append(report.Errors, rowErr)
		}

		if payload == "" {
			fail(errors.New("payload is empty"))
			continue
		}
		var req CreateQuestionRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			fail(fmt.Errorf("payload is not valid JSON: %w", err))
			continue
		}
		if questionType != "" {
			req.QuestionType = questionType
		}

		record, err := s.questions.Create(ctx, &req, actorID)
		if err != nil {
			fail(err)
			continue
		}
		report.SuccessRows++
		report.CreatedIDs = append(report.CreatedIDs, record.ID)
	}

	s.logger.Info("Import finished", "total", report.TotalRows, "success", report.SuccessRows, "failed", report.FailedRows)
	if report.SuccessRows > 0 {
		publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.QuestionsImported, actorID, map[string]interface{}{
			"created_ids": report.CreatedIDs,
			"failed_rows": report.FailedRows,
		}))
	}

	return report, nil
}
