package validator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
)

// OptionInput is one MCQ option. The wire form is either a bare string or
// {"id": n, "text": "..."}; without an id the 1-based position is used.
type OptionInput struct {
	ID   *int   `json:"id,omitempty"`
	Text string `json:"text"`
}

func (o *OptionInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		o.ID = nil
		return json.Unmarshal(data, &o.Text)
	}
	type plain OptionInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("option must be a string or an object with id and text: %w", err)
	}
	*o = OptionInput(p)
	return nil
}

type MatchingPairInput struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type ExplanationInput struct {
	Level    models.ExplanationLevel `json:"level" validate:"required,explanation_level"`
	Text     *string                 `json:"text"`
	VideoURL *string                 `json:"video_url" validate:"omitempty,url"`
}

// VariantFields are the type-specific payload fields. A nil slice or pointer
// means the field was not supplied.
type VariantFields struct {
	QuestionText     *string             `json:"question_text,omitempty"`
	Options          []OptionInput       `json:"options,omitempty"`
	MatchingPairs    []MatchingPairInput `json:"matching_pairs,omitempty"`
	OrderingSequence []string            `json:"ordering_sequence,omitempty"`
	OptionsColumnA   []string            `json:"options_column_a,omitempty"`
	OptionsColumnB   []string            `json:"options_column_b,omitempty"`
	ImageURL         *string             `json:"image_url,omitempty"`
	DiagramURL       *string             `json:"diagram_url,omitempty"`
	AudioURL         *string             `json:"audio_url,omitempty"`
	VideoURL         *string             `json:"video_url,omitempty"`
	CorrectAnswer    json.RawMessage     `json:"correct_answer,omitempty"`
}

// Supplied returns the JSON names of the variant fields present
func (f *VariantFields) Supplied() []string {
	var out []string
	add := func(name string, present bool) {
		if present {
			out = append(out, name)
		}
	}
	add("question_text", f.QuestionText != nil)
	add(models.ChildOptions, f.Options != nil)
	add(models.ChildMatchingPairs, f.MatchingPairs != nil)
	add(models.ChildOrderingItems, f.OrderingSequence != nil)
	add(models.ChildColumnA, f.OptionsColumnA != nil)
	add(models.ChildColumnB, f.OptionsColumnB != nil)
	add("image_url", f.ImageURL != nil)
	add("diagram_url", f.DiagramURL != nil)
	add("audio_url", f.AudioURL != nil)
	add("video_url", f.VideoURL != nil)
	add("correct_answer", HasValue(f.CorrectAnswer) || IsNull(f.CorrectAnswer))
	return out
}

// IsNull reports whether raw is an explicit JSON null. An absent key
// leaves raw empty instead.
func IsNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// HasValue reports whether raw holds something other than absent or null
func HasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// QuestionCreateRequest is the body of POST /questions
type QuestionCreateRequest struct {
	QuestionType       string             `json:"question_type" validate:"required,question_type"`
	QuestionLevel      *uint              `json:"question_level,omitempty" validate:"omitempty,gt=0"`
	TargetOrganization *uint              `json:"target_organization,omitempty" validate:"omitempty,gt=0"`
	TargetGroup        *uint              `json:"target_group,omitempty" validate:"omitempty,gt=0"`
	TargetSubject      *uint              `json:"target_subject,omitempty" validate:"omitempty,gt=0"`
	Topic              *uint              `json:"topic,omitempty" validate:"omitempty,gt=0"`
	SubTopic           *uint              `json:"sub_topic,omitempty" validate:"omitempty,gt=0"`
	SubSubTopic        *uint              `json:"sub_sub_topic,omitempty" validate:"omitempty,gt=0"`
	QuestionStatus     *uint              `json:"question_status,omitempty" validate:"omitempty,gt=0"`
	DifficultyLevel    *uint              `json:"difficulty_level,omitempty" validate:"omitempty,gt=0"`
	ExamReferences     []uint             `json:"exam_references,omitempty" validate:"omitempty,dive,gt=0"`
	Explanations       []ExplanationInput `json:"explanations,omitempty" validate:"omitempty,dive"`

	VariantFields
}

// Refs returns the single-valued lookup references keyed by kind
func (r *QuestionCreateRequest) Refs() map[models.LookupKind]*uint {
	return map[models.LookupKind]*uint{
		models.KindQuestionLevel:   r.QuestionLevel,
		models.KindOrganization:    r.TargetOrganization,
		models.KindTargetGroup:     r.TargetGroup,
		models.KindSubject:         r.TargetSubject,
		models.KindTopic:           r.Topic,
		models.KindSubTopic:        r.SubTopic,
		models.KindSubSubTopic:     r.SubSubTopic,
		models.KindQuestionStatus:  r.QuestionStatus,
		models.KindDifficultyLevel: r.DifficultyLevel,
	}
}

// OptionalRef is a nullable reference in a partial update: Set is false when
// the key is absent, and ID is nil when the key was sent as null.
type OptionalRef struct {
	Set bool
	ID  *uint
}

func (o *OptionalRef) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.ID = nil
		return nil
	}
	var id uint
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("reference must be a positive integer or null: %w", err)
	}
	o.ID = &id
	return nil
}

func (o OptionalRef) MarshalJSON() ([]byte, error) {
	if o.ID == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.ID)
}

// SetRef builds a present reference
func SetRef(id uint) OptionalRef { return OptionalRef{Set: true, ID: &id} }

// ClearRef builds a reference explicitly sent as null
func ClearRef() OptionalRef { return OptionalRef{Set: true} }

// QuestionUpdateRequest is the body of PATCH /questions/:id
type QuestionUpdateRequest struct {
	QuestionType       *string            `json:"question_type,omitempty"`
	QuestionLevel      OptionalRef        `json:"question_level"`
	TargetOrganization OptionalRef        `json:"target_organization"`
	TargetGroup        OptionalRef        `json:"target_group"`
	TargetSubject      OptionalRef        `json:"target_subject"`
	Topic              OptionalRef        `json:"topic"`
	SubTopic           OptionalRef        `json:"sub_topic"`
	SubSubTopic        OptionalRef        `json:"sub_sub_topic"`
	QuestionStatus     OptionalRef        `json:"question_status"`
	DifficultyLevel    OptionalRef        `json:"difficulty_level"`
	ExamReferences     []uint             `json:"exam_references" validate:"omitempty,dive,gt=0"`
	Explanations       []ExplanationInput `json:"explanations" validate:"omitempty,dive"`

	VariantFields
}

// Refs returns the single-valued lookup references keyed by kind
func (r *QuestionUpdateRequest) Refs() map[models.LookupKind]OptionalRef {
	return map[models.LookupKind]OptionalRef{
		models.KindQuestionLevel:   r.QuestionLevel,
		models.KindOrganization:    r.TargetOrganization,
		models.KindTargetGroup:     r.TargetGroup,
		models.KindSubject:         r.TargetSubject,
		models.KindTopic:           r.Topic,
		models.KindSubTopic:        r.SubTopic,
		models.KindSubSubTopic:     r.SubSubTopic,
		models.KindQuestionStatus:  r.QuestionStatus,
		models.KindDifficultyLevel: r.DifficultyLevel,
	}
}

// LookupCreateRequest is the body of POST /:kind. Which fields are required
// depends on the kind.
type LookupCreateRequest struct {
	Name          string  `json:"name" validate:"omitempty,lookup_name"`
	ReferenceName string  `json:"reference_name" validate:"omitempty,lookup_name"`
	YearOfExam    *string `json:"year_of_exam" validate:"omitempty,exam_year"`
	Topic         *uint   `json:"topic" validate:"omitempty,gt=0"`
	SubTopic      *uint   `json:"sub_topic" validate:"omitempty,gt=0"`
}

// LookupUpdateRequest is the body of PATCH /:kind/:id
type LookupUpdateRequest struct {
	Name          *string     `json:"name" validate:"omitempty,lookup_name"`
	ReferenceName *string     `json:"reference_name" validate:"omitempty,lookup_name"`
	YearOfExam    OptionalRaw `json:"year_of_exam"`
	Topic         *uint       `json:"topic" validate:"omitempty,gt=0"`
	SubTopic      *uint       `json:"sub_topic" validate:"omitempty,gt=0"`
}

// OptionalRaw is a nullable string in a partial update
type OptionalRaw struct {
	Set   bool
	Value *string
}

func (o *OptionalRaw) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
