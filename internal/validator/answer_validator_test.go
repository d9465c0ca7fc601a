package validator

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
)

func strPtr(s string) *string { return &s }

func TestValidateAnswer(t *testing.T) {
	bv := NewBusinessValidator()

	tests := []struct {
		name    string
		input   AnswerInput
		wantErr bool
	}{
		{"mcq single member", AnswerInput{Variant: models.VariantMCQSingle, OptionIDs: []int{1, 2}, CorrectAnswer: json.RawMessage(`1`)}, false},
		{"mcq single numeric string", AnswerInput{Variant: models.VariantMCQSingle, OptionIDs: []int{1, 2}, CorrectAnswer: json.RawMessage(`"2"`)}, false},
		{"mcq single non member", AnswerInput{Variant: models.VariantMCQSingle, OptionIDs: []int{1, 2}, CorrectAnswer: json.RawMessage(`3`)}, true},
		{"mcq single list", AnswerInput{Variant: models.VariantMCQSingle, OptionIDs: []int{1, 2}, CorrectAnswer: json.RawMessage(`[1]`)}, true},
		{"mcq single missing", AnswerInput{Variant: models.VariantMCQSingle, OptionIDs: []int{1, 2}}, true},
		{"mcq multi subset", AnswerInput{Variant: models.VariantMCQMulti, OptionIDs: []int{1, 2, 3}, CorrectAnswer: json.RawMessage(`[1,2]`)}, false},
		{"mcq multi non member", AnswerInput{Variant: models.VariantMCQMulti, OptionIDs: []int{1, 2, 3}, CorrectAnswer: json.RawMessage(`[1,4]`)}, true},
		{"mcq multi duplicate", AnswerInput{Variant: models.VariantMCQMulti, OptionIDs: []int{1, 2, 3}, CorrectAnswer: json.RawMessage(`[2,2]`)}, true},
		{"mcq multi scalar", AnswerInput{Variant: models.VariantMCQMulti, OptionIDs: []int{1, 2, 3}, CorrectAnswer: json.RawMessage(`1`)}, true},
		{"mcq multi empty", AnswerInput{Variant: models.VariantMCQMulti, OptionIDs: []int{1, 2, 3}, CorrectAnswer: json.RawMessage(`[]`)}, true},
		{"true false True", AnswerInput{Variant: models.VariantTrueFalse, CorrectAnswer: json.RawMessage(`"True"`)}, false},
		{"true false False", AnswerInput{Variant: models.VariantTrueFalse, CorrectAnswer: json.RawMessage(`"False"`)}, false},
		{"true false Maybe", AnswerInput{Variant: models.VariantTrueFalse, CorrectAnswer: json.RawMessage(`"Maybe"`)}, true},
		{"true false lower case", AnswerInput{Variant: models.VariantTrueFalse, CorrectAnswer: json.RawMessage(`"true"`)}, true},
		{"true false boolean", AnswerInput{Variant: models.VariantTrueFalse, CorrectAnswer: json.RawMessage(`true`)}, true},
		{"fill in blank text", AnswerInput{Variant: models.VariantFillInBlank, CorrectAnswer: json.RawMessage(`"Dhaka"`)}, false},
		{"fill in blank blank", AnswerInput{Variant: models.VariantFillInBlank, CorrectAnswer: json.RawMessage(`"  "`)}, true},
		{"code absent", AnswerInput{Variant: models.VariantCode}, true},
		{"case study null", AnswerInput{Variant: models.VariantCaseStudy, CorrectAnswer: json.RawMessage(`null`)}, true},
		{"assertion reason text", AnswerInput{Variant: models.VariantAssertionReason, CorrectAnswer: json.RawMessage(`"A is true, R explains A"`)}, false},
		{"numerical number", AnswerInput{Variant: models.VariantNumerical, CorrectAnswer: json.RawMessage(`3.14`)}, false},
		{"numerical string", AnswerInput{Variant: models.VariantNumerical, CorrectAnswer: json.RawMessage(`"-2e3"`)}, false},
		{"numerical word", AnswerInput{Variant: models.VariantNumerical, CorrectAnswer: json.RawMessage(`"pi"`)}, true},
		{"numerical NaN", AnswerInput{Variant: models.VariantNumerical, CorrectAnswer: json.RawMessage(`"NaN"`)}, true},
		{"numerical Inf", AnswerInput{Variant: models.VariantNumerical, CorrectAnswer: json.RawMessage(`"Inf"`)}, true},
		{"numerical negative infinity", AnswerInput{Variant: models.VariantNumerical, CorrectAnswer: json.RawMessage(`"-Infinity"`)}, true},
		{"numerical overflow", AnswerInput{Variant: models.VariantNumerical, CorrectAnswer: json.RawMessage(`1e400`)}, true},
		{
			"matching valid",
			AnswerInput{Variant: models.VariantMatching, MatchingPairs: []MatchingPairInput{{"H2O", "Water"}, {"NaCl", "Salt"}}},
			false,
		},
		{
			"matching one pair",
			AnswerInput{Variant: models.VariantMatching, MatchingPairs: []MatchingPairInput{{"H2O", "Water"}}},
			true,
		},
		{
			"matching answer references unknown item",
			AnswerInput{
				Variant:       models.VariantMatching,
				MatchingPairs: []MatchingPairInput{{"H2O", "Water"}, {"NaCl", "Salt"}},
				CorrectAnswer: json.RawMessage(`{"H2O":"Sugar"}`),
			},
			true,
		},
		{"ordering valid", AnswerInput{Variant: models.VariantOrdering, OrderingSequence: []string{"a", "b", "c"}}, false},
		{"ordering duplicate", AnswerInput{Variant: models.VariantOrdering, OrderingSequence: []string{"a", "a"}}, true},
		{
			"ordering answer not a permutation",
			AnswerInput{Variant: models.VariantOrdering, OrderingSequence: []string{"a", "b"}, CorrectAnswer: json.RawMessage(`["a","c"]`)},
			true,
		},
		{
			"drag and drop valid",
			AnswerInput{Variant: models.VariantDragAndDrop, ColumnA: []string{"cat", "dog"}, ColumnB: []string{"meow", "woof"}, CorrectAnswer: json.RawMessage(`{"cat":"meow","dog":"woof"}`)},
			false,
		},
		{
			"drag and drop unknown target",
			AnswerInput{Variant: models.VariantDragAndDrop, ColumnA: []string{"cat"}, ColumnB: []string{"meow"}, CorrectAnswer: json.RawMessage(`{"cat":"moo"}`)},
			true,
		},
		{
			"drag and drop unknown source",
			AnswerInput{Variant: models.VariantDragAndDrop, ColumnA: []string{"cat"}, ColumnB: []string{"meow"}, CorrectAnswer: json.RawMessage(`{"cow":"meow"}`)},
			true,
		},
		{"image valid", AnswerInput{Variant: models.VariantImage, ImageURL: strPtr("https://cdn.example.org/cell.png"), CorrectAnswer: json.RawMessage(`"Nucleus"`)}, false},
		{"image missing url", AnswerInput{Variant: models.VariantImage, CorrectAnswer: json.RawMessage(`"Nucleus"`)}, true},
		{"image bad url", AnswerInput{Variant: models.VariantImage, ImageURL: strPtr("not a url"), CorrectAnswer: json.RawMessage(`"Nucleus"`)}, true},
		{"diagram labels", AnswerInput{Variant: models.VariantDiagram, DiagramURL: strPtr("https://cdn.example.org/heart.svg"), CorrectAnswer: json.RawMessage(`["Aorta","Ventricle"]`)}, false},
		{"diagram empty label", AnswerInput{Variant: models.VariantDiagram, DiagramURL: strPtr("https://cdn.example.org/heart.svg"), CorrectAnswer: json.RawMessage(`["Aorta",""]`)}, true},
		{"audio only", AnswerInput{Variant: models.VariantAudioVideo, AudioURL: strPtr("https://cdn.example.org/a.mp3"), CorrectAnswer: json.RawMessage(`"Beethoven"`)}, false},
		{"no media", AnswerInput{Variant: models.VariantAudioVideo, CorrectAnswer: json.RawMessage(`"Beethoven"`)}, true},
		{"unknown variant", AnswerInput{Variant: "mcq", CorrectAnswer: json.RawMessage(`1`)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := bv.ValidateAnswer(tt.input)
			if (len(errs) > 0) != tt.wantErr {
				t.Fatalf("ValidateAnswer() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestValidateAnswer_RejectionIsInvalidAnswerShape(t *testing.T) {
	bv := NewBusinessValidator()
	_, errs := bv.ValidateAnswer(AnswerInput{
		Variant:       models.VariantMCQSingle,
		OptionIDs:     []int{1, 2},
		CorrectAnswer: json.RawMessage(`3`),
	})

	var err error = errs
	if !errors.Is(err, ErrInvalidAnswerShape) {
		t.Errorf("expected ErrInvalidAnswerShape, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if errs[0].Field != "correct_answer" {
		t.Errorf("Field = %q, want correct_answer", errs[0].Field)
	}
}

func TestValidateAnswer_ParsedValues(t *testing.T) {
	bv := NewBusinessValidator()

	parsed, errs := bv.ValidateAnswer(AnswerInput{Variant: models.VariantMCQMulti, OptionIDs: []int{10, 20, 30}, CorrectAnswer: json.RawMessage(`[30, "10"]`)})
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(parsed.OptionIDs) != 2 || parsed.OptionIDs[0] != 30 || parsed.OptionIDs[1] != 10 {
		t.Errorf("OptionIDs = %v, want [30 10]", parsed.OptionIDs)
	}
	if string(parsed.Raw) != "[30,10]" {
		t.Errorf("Raw = %s", parsed.Raw)
	}

	parsed, errs = bv.ValidateAnswer(AnswerInput{Variant: models.VariantNumerical, CorrectAnswer: json.RawMessage(`42`)})
	if len(errs) > 0 || parsed.Text != "42" {
		t.Errorf("numerical parsed = %+v, errs = %v", parsed, errs)
	}
}

func TestResolveOptionIDs(t *testing.T) {
	explicit := 7
	tests := []struct {
		name    string
		options []OptionInput
		want    []int
		wantErr bool
	}{
		{"positional", []OptionInput{{Text: "a"}, {Text: "b"}}, []int{1, 2}, false},
		{"explicit", []OptionInput{{ID: &explicit, Text: "a"}, {Text: "b"}}, []int{7, 2}, false},
		{"too few", []OptionInput{{Text: "a"}}, []int{1}, true},
		{"too many", make([]OptionInput, 9), nil, true},
		{"duplicate id", []OptionInput{{Text: "a"}, {ID: intPtr(1), Text: "b"}}, []int{1, 1}, true},
		{"blank text", []OptionInput{{Text: "a"}, {Text: " "}}, []int{1, 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := ResolveOptionIDs(tt.options)
			if (len(errs) > 0) != tt.wantErr {
				t.Fatalf("ResolveOptionIDs() errors = %v, wantErr %v", errs, tt.wantErr)
			}
			if tt.want == nil {
				return
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ids = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func intPtr(i int) *int { return &i }
