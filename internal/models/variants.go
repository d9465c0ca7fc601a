package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// Names of the nested collections a variant may own. They match the request
// fields so an update can tell which collections it must replace.
const (
	ChildOptions        = "options"
	ChildMatchingPairs  = "matching_pairs"
	ChildOrderingItems  = "ordering_sequence"
	ChildColumnA        = "options_column_a"
	ChildColumnB        = "options_column_b"
	DragDropColumnLeft  = "A"
	DragDropColumnRight = "B"
)

// ChildSet describes one ordered child collection of a variant row
type ChildSet struct {
	Name  string
	Model interface{}
	Scope map[string]interface{}
	Rows  interface{}
	Len   int
}

// VariantRecord is implemented by every per-variant table row
type VariantRecord interface {
	Variant() QuestionVariant
	TableName() string
	BindQuestion(id uint)
	ChildSets() []ChildSet
}

// NewVariantRecord returns an empty row for the variant
func NewVariantRecord(v QuestionVariant) (VariantRecord, error) {
	switch v {
	case VariantMCQSingle:
		return &MCQSingleQuestion{}, nil
	case VariantMCQMulti:
		return &MCQMultiQuestion{}, nil
	case VariantFillInBlank:
		return &FillInBlankQuestion{}, nil
	case VariantTrueFalse:
		return &TrueFalseQuestion{}, nil
	case VariantMatching:
		return &MatchingQuestion{}, nil
	case VariantOrdering:
		return &OrderingQuestion{}, nil
	case VariantNumerical:
		return &NumericalQuestion{}, nil
	case VariantImage:
		return &ImageQuestion{}, nil
	case VariantAudioVideo:
		return &AudioVideoQuestion{}, nil
	case VariantCaseStudy:
		return &CaseStudyQuestion{}, nil
	case VariantDiagram:
		return &DiagramQuestion{}, nil
	case VariantCode:
		return &CodeQuestion{}, nil
	case VariantDragAndDrop:
		return &DragAndDropQuestion{}, nil
	case VariantAssertionReason:
		return &AssertionReasonQuestion{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, string(v))
	}
}

// VariantModels lists every variant and child table for migrations
func VariantModels() []interface{} {
	models := make([]interface{}, 0, len(questionVariants)+4)
	for _, v := range questionVariants {
		rec, _ := NewVariantRecord(v)
		models = append(models, rec)
	}
	return append(models, &MCQOption{}, &MatchingPair{}, &OrderingItem{}, &DragDropItem{})
}

// VariantBase holds the key and the stem every variant shares
type VariantBase struct {
	QuestionID   uint   `json:"-" gorm:"primaryKey;autoIncrement:false"`
	QuestionText string `json:"question_text" gorm:"type:text;not null"`
}

func (b *VariantBase) bind(id uint) { b.QuestionID = id }

// Child rows

type MCQOption struct {
	ID         uint   `json:"-" gorm:"primaryKey"`
	QuestionID uint   `json:"-" gorm:"not null;index"`
	Position   int    `json:"-" gorm:"not null"`
	OptionKey  int    `json:"id" gorm:"not null"`
	OptionText string `json:"text" gorm:"size:255;not null"`
}

func (MCQOption) TableName() string { return "mcq_options" }

type MatchingPair struct {
	ID         uint   `json:"-" gorm:"primaryKey"`
	QuestionID uint   `json:"-" gorm:"not null;index"`
	Position   int    `json:"-" gorm:"not null"`
	LeftItem   string `json:"left" gorm:"size:500;not null"`
	RightItem  string `json:"right" gorm:"size:500;not null"`
}

func (MatchingPair) TableName() string { return "matching_pairs" }

type OrderingItem struct {
	ID         uint   `gorm:"primaryKey"`
	QuestionID uint   `gorm:"not null;index"`
	Position   int    `gorm:"not null"`
	ItemText   string `gorm:"size:500;not null"`
}

func (OrderingItem) TableName() string { return "ordering_items" }

// MarshalJSON encodes an ordering item as its bare text
func (o OrderingItem) MarshalJSON() ([]byte, error) { return json.Marshal(o.ItemText) }

type DragDropItem struct {
	ID         uint   `gorm:"primaryKey"`
	QuestionID uint   `gorm:"not null;index"`
	Side       string `gorm:"size:1;not null;index"`
	Position   int    `gorm:"not null"`
	ItemText   string `gorm:"size:500;not null"`
}

func (DragDropItem) TableName() string { return "drag_drop_items" }

// MarshalJSON encodes a column item as its bare text
func (d DragDropItem) MarshalJSON() ([]byte, error) { return json.Marshal(d.ItemText) }

// OrderingTexts returns the item texts in position order
func OrderingTexts(items []OrderingItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemText
	}
	return out
}

// DragDropTexts returns the item texts in position order
func DragDropTexts(items []DragDropItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemText
	}
	return out
}

// OptionKeys returns the declared option ids in position order
func OptionKeys(options []MCQOption) []int {
	out := make([]int, len(options))
	for i, o := range options {
		out[i] = o.OptionKey
	}
	return out
}

func bindOptions(id uint, options []MCQOption) {
	for i := range options {
		options[i].QuestionID = id
		options[i].Position = i + 1
	}
}

func optionSet(options *[]MCQOption) ChildSet {
	return ChildSet{Name: ChildOptions, Model: &MCQOption{}, Rows: options, Len: len(*options)}
}

// Variant rows

type MCQSingleQuestion struct {
	VariantBase
	CorrectAnswer int         `json:"correct_answer" gorm:"not null"`
	Options       []MCQOption `json:"options" gorm:"-"`
}

func (MCQSingleQuestion) Variant() QuestionVariant { return VariantMCQSingle }
func (MCQSingleQuestion) TableName() string        { return "mcq_single_questions" }
func (q *MCQSingleQuestion) BindQuestion(id uint) {
	q.bind(id)
	bindOptions(id, q.Options)
}
func (q *MCQSingleQuestion) ChildSets() []ChildSet { return []ChildSet{optionSet(&q.Options)} }

type MCQMultiQuestion struct {
	VariantBase
	CorrectAnswer datatypes.JSON `json:"correct_answer" gorm:"not null"`
	Options       []MCQOption    `json:"options" gorm:"-"`
}

func (MCQMultiQuestion) Variant() QuestionVariant { return VariantMCQMulti }
func (MCQMultiQuestion) TableName() string        { return "mcq_multi_questions" }
func (q *MCQMultiQuestion) BindQuestion(id uint) {
	q.bind(id)
	bindOptions(id, q.Options)
}
func (q *MCQMultiQuestion) ChildSets() []ChildSet { return []ChildSet{optionSet(&q.Options)} }

// AnswerIDs decodes the stored answer list
func (q *MCQMultiQuestion) AnswerIDs() ([]int, error) {
	var ids []int
	if err := json.Unmarshal(q.CorrectAnswer, &ids); err != nil {
		return nil, fmt.Errorf("decode mcq multi answer: %w", err)
	}
	return ids, nil
}

// TextAnswer is the shared shape of the free-text variants
type TextAnswer struct {
	VariantBase
	CorrectAnswer string `json:"correct_answer" gorm:"type:text;not null"`
}

func (t *TextAnswer) BindQuestion(id uint)  { t.bind(id) }
func (t *TextAnswer) ChildSets() []ChildSet { return nil }

type FillInBlankQuestion struct{ TextAnswer }

func (FillInBlankQuestion) Variant() QuestionVariant { return VariantFillInBlank }
func (FillInBlankQuestion) TableName() string        { return "fill_in_blank_questions" }

type TrueFalseQuestion struct{ TextAnswer }

func (TrueFalseQuestion) Variant() QuestionVariant { return VariantTrueFalse }
func (TrueFalseQuestion) TableName() string        { return "true_false_questions" }

type NumericalQuestion struct{ TextAnswer }

func (NumericalQuestion) Variant() QuestionVariant { return VariantNumerical }
func (NumericalQuestion) TableName() string        { return "numerical_questions" }

type CaseStudyQuestion struct{ TextAnswer }

func (CaseStudyQuestion) Variant() QuestionVariant { return VariantCaseStudy }
func (CaseStudyQuestion) TableName() string        { return "case_study_questions" }

type CodeQuestion struct{ TextAnswer }

func (CodeQuestion) Variant() QuestionVariant { return VariantCode }
func (CodeQuestion) TableName() string        { return "code_programming_questions" }

type AssertionReasonQuestion struct{ TextAnswer }

func (AssertionReasonQuestion) Variant() QuestionVariant { return VariantAssertionReason }
func (AssertionReasonQuestion) TableName() string        { return "assertion_reason_questions" }

type MatchingQuestion struct {
	VariantBase
	CorrectAnswer datatypes.JSON `json:"correct_answer,omitempty"`
	Pairs         []MatchingPair `json:"matching_pairs" gorm:"-"`
}

func (MatchingQuestion) Variant() QuestionVariant { return VariantMatching }
func (MatchingQuestion) TableName() string        { return "matching_questions" }
func (q *MatchingQuestion) BindQuestion(id uint) {
	q.bind(id)
	for i := range q.Pairs {
		q.Pairs[i].QuestionID = id
		q.Pairs[i].Position = i + 1
	}
}
func (q *MatchingQuestion) ChildSets() []ChildSet {
	return []ChildSet{{Name: ChildMatchingPairs, Model: &MatchingPair{}, Rows: &q.Pairs, Len: len(q.Pairs)}}
}

type OrderingQuestion struct {
	VariantBase
	CorrectAnswer datatypes.JSON `json:"correct_answer,omitempty"`
	Sequence      []OrderingItem `json:"ordering_sequence" gorm:"-"`
}

func (OrderingQuestion) Variant() QuestionVariant { return VariantOrdering }
func (OrderingQuestion) TableName() string        { return "ordering_questions" }
func (q *OrderingQuestion) BindQuestion(id uint) {
	q.bind(id)
	for i := range q.Sequence {
		q.Sequence[i].QuestionID = id
		q.Sequence[i].Position = i + 1
	}
}
func (q *OrderingQuestion) ChildSets() []ChildSet {
	return []ChildSet{{Name: ChildOrderingItems, Model: &OrderingItem{}, Rows: &q.Sequence, Len: len(q.Sequence)}}
}

type ImageQuestion struct {
	VariantBase
	ImageURL      string `json:"image_url" gorm:"size:1024;not null"`
	CorrectAnswer string `json:"correct_answer" gorm:"type:text;not null"`
}

func (ImageQuestion) Variant() QuestionVariant { return VariantImage }
func (ImageQuestion) TableName() string        { return "image_based_questions" }
func (q *ImageQuestion) BindQuestion(id uint)  { q.bind(id) }
func (q *ImageQuestion) ChildSets() []ChildSet { return nil }

type AudioVideoQuestion struct {
	VariantBase
	AudioURL      *string `json:"audio_url" gorm:"size:1024"`
	VideoURL      *string `json:"video_url" gorm:"size:1024"`
	CorrectAnswer string  `json:"correct_answer" gorm:"type:text;not null"`
}

func (AudioVideoQuestion) Variant() QuestionVariant { return VariantAudioVideo }
func (AudioVideoQuestion) TableName() string        { return "audio_video_questions" }
func (q *AudioVideoQuestion) BindQuestion(id uint)  { q.bind(id) }
func (q *AudioVideoQuestion) ChildSets() []ChildSet { return nil }

// DiagramQuestion stores its answer as JSON: either one string or a list of labels
type DiagramQuestion struct {
	VariantBase
	DiagramURL    string         `json:"diagram_url" gorm:"size:1024;not null"`
	CorrectAnswer datatypes.JSON `json:"correct_answer" gorm:"not null"`
}

func (DiagramQuestion) Variant() QuestionVariant { return VariantDiagram }
func (DiagramQuestion) TableName() string        { return "diagram_labeling_questions" }
func (q *DiagramQuestion) BindQuestion(id uint)  { q.bind(id) }
func (q *DiagramQuestion) ChildSets() []ChildSet { return nil }

type DragAndDropQuestion struct {
	VariantBase
	CorrectAnswer datatypes.JSON `json:"correct_answer" gorm:"not null"`
	ColumnA       []DragDropItem `json:"options_column_a" gorm:"-"`
	ColumnB       []DragDropItem `json:"options_column_b" gorm:"-"`
}

func (DragAndDropQuestion) Variant() QuestionVariant { return VariantDragAndDrop }
func (DragAndDropQuestion) TableName() string        { return "drag_and_drop_questions" }
func (q *DragAndDropQuestion) BindQuestion(id uint) {
	q.bind(id)
	for i := range q.ColumnA {
		q.ColumnA[i].QuestionID, q.ColumnA[i].Side, q.ColumnA[i].Position = id, DragDropColumnLeft, i+1
	}
	for i := range q.ColumnB {
		q.ColumnB[i].QuestionID, q.ColumnB[i].Side, q.ColumnB[i].Position = id, DragDropColumnRight, i+1
	}
}
func (q *DragAndDropQuestion) ChildSets() []ChildSet {
	return []ChildSet{
		{Name: ChildColumnA, Model: &DragDropItem{}, Scope: map[string]interface{}{"side": DragDropColumnLeft}, Rows: &q.ColumnA, Len: len(q.ColumnA)},
		{Name: ChildColumnB, Model: &DragDropItem{}, Scope: map[string]interface{}{"side": DragDropColumnRight}, Rows: &q.ColumnB, Len: len(q.ColumnB)},
	}
}

// Mapping decodes the stored column A to column B answer
func (q *DragAndDropQuestion) Mapping() (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal(q.CorrectAnswer, &m); err != nil {
		return nil, fmt.Errorf("decode drag and drop answer: %w", err)
	}
	return m, nil
}
