package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/KERD-ORG/Bornomala-Updated/internal/events"
	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
)

func TestExportImport_RoundTrip(t *testing.T) {
	source := newTestEnv(t)
	ctx := context.Background()

	variants := []models.QuestionVariant{
		models.VariantMCQMulti,
		models.VariantMatching,
		models.VariantOrdering,
		models.VariantDragAndDrop,
		models.VariantDiagram,
		models.VariantNumerical,
	}
	sourceIDs := map[string]uint{}
	for _, v := range variants {
		record, err := source.manager.Question().Create(ctx, createRequest(t, variantPayloads[v]), testActor)
		if err != nil {
			t.Fatalf("Create(%s) error = %v", v, err)
		}
		sourceIDs[string(v)] = record.ID
	}

	data, err := source.manager.ImportExport().ExportQuestions(ctx, &ListQuestionsRequest{})
	if err != nil {
		t.Fatalf("ExportQuestions() error = %v", err)
	}

	target := newTestEnv(t)
	report, err := target.manager.ImportExport().ImportQuestions(ctx, bytes.NewReader(data), "importer")
	if err != nil {
		t.Fatalf("ImportQuestions() error = %v", err)
	}
	if report.TotalRows != len(variants) || report.SuccessRows != len(variants) || report.FailedRows != 0 {
		t.Fatalf("report = %+v", report)
	}

	for i, id := range report.CreatedIDs {
		got := target.encoded(t, id)
		want := source.encoded(t, sourceIDs[got["question_type"].(string)])
		for _, field := range []string{"question_type", "question_text", "correct_answer", "options", "matching_pairs", "ordering_sequence", "options_column_a", "options_column_b", "diagram_url"} {
			if jsonOf(t, got[field]) != jsonOf(t, want[field]) {
				t.Errorf("row %d %s = %s, want %s", i, field, jsonOf(t, got[field]), jsonOf(t, want[field]))
			}
		}
		if got["created_by"] != "importer" {
			t.Errorf("row %d created_by = %v", i, got["created_by"])
		}
	}

	if n := len(target.publisher.EventsOfType(events.QuestionsImported)); n != 1 {
		t.Errorf("questions.imported events = %d, want 1", n)
	}
}

func TestImport_RowFailuresAreIsolated(t *testing.T) {
	env := newTestEnv(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"question_type", "payload"},
		{"TRUE_FALSE", `{"question_text":"ok","correct_answer":"True"}`},
		{"TRUE_FALSE", `{"question_text":"bad","correct_answer":"Maybe"}`},
		{"ESSAY", `{"question_text":"unknown","correct_answer":"x"}`},
		{"", ""},
		{"CODE", `not json`},
		{"CODE", `{"question_text":"also ok","correct_answer":"x"}`},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	report, err := env.manager.ImportExport().ImportQuestions(context.Background(), &buf, testActor)
	if err != nil {
		t.Fatalf("ImportQuestions() error = %v", err)
	}
	if report.TotalRows != 5 || report.SuccessRows != 2 || report.FailedRows != 3 {
		t.Fatalf("report = %+v", report)
	}

	wantRows := []int{3, 4, 6}
	for i, rowErr := range report.Errors {
		if rowErr.Row != wantRows[i] {
			t.Errorf("error %d row = %d, want %d", i, rowErr.Row, wantRows[i])
		}
	}
	if len(report.Errors[0].Details) == 0 {
		t.Error("validation failure should carry field details")
	}
}

func TestImport_BadFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.manager.ImportExport().ImportQuestions(context.Background(), bytes.NewReader([]byte("not a workbook")), testActor)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || verrs[0].Field != "file" {
		t.Fatalf("error = %v, want file validation error", err)
	}

	f := excelize.NewFile()
	_ = f.SetSheetRow(f.GetSheetName(0), "A1", &[]interface{}{"id", "text"})
	_ = f.SetSheetRow(f.GetSheetName(0), "A2", &[]interface{}{"1", "x"})
	var buf bytes.Buffer
	_ = f.Write(&buf)

	_, err = env.manager.ImportExport().ImportQuestions(context.Background(), &buf, testActor)
	if !errors.As(err, &verrs) {
		t.Fatalf("error = %v, want missing column error", err)
	}
}

func TestExport_Filtered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, v := range []models.QuestionVariant{models.VariantCode, models.VariantTrueFalse, models.VariantCode} {
		if _, err := env.manager.Question().Create(ctx, createRequest(t, variantPayloads[v]), testActor); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	data, err := env.manager.ImportExport().ExportQuestions(ctx, &ListQuestionsRequest{QuestionType: "CODE"})
	if err != nil {
		t.Fatalf("ExportQuestions() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ExportSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(rows))
	}
	for _, row := range rows[1:] {
		if row[1] != "CODE" {
			t.Errorf("question_type column = %q", row[1])
		}
	}
}
