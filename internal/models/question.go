package models

import (
	"errors"
	"fmt"
	"time"
)

// QuestionVariant is the closed set of question shapes. The string value is
// the canonical tag accepted on the wire and stored on the base row.
type QuestionVariant string

const (
	VariantMCQSingle       QuestionVariant = "MCQ_SINGLE"
	VariantMCQMulti        QuestionVariant = "MCQ_MULTI"
	VariantFillInBlank     QuestionVariant = "FILL_IN_BLANK"
	VariantTrueFalse       QuestionVariant = "TRUE_FALSE"
	VariantMatching        QuestionVariant = "MATCHING"
	VariantOrdering        QuestionVariant = "ORDERING"
	VariantNumerical       QuestionVariant = "NUMERICAL"
	VariantImage           QuestionVariant = "IMAGE"
	VariantAudioVideo      QuestionVariant = "AUDIO_VIDEO"
	VariantCaseStudy       QuestionVariant = "CASE_STUDY"
	VariantDiagram         QuestionVariant = "DIAGRAM"
	VariantCode            QuestionVariant = "CODE"
	VariantDragAndDrop     QuestionVariant = "DRAG_AND_DROP"
	VariantAssertionReason QuestionVariant = "ASSERTION_REASON"
)

var ErrUnknownVariant = errors.New("unknown question variant")

var questionVariants = []QuestionVariant{
	VariantMCQSingle,
	VariantMCQMulti,
	VariantFillInBlank,
	VariantTrueFalse,
	VariantMatching,
	VariantOrdering,
	VariantNumerical,
	VariantImage,
	VariantAudioVideo,
	VariantCaseStudy,
	VariantDiagram,
	VariantCode,
	VariantDragAndDrop,
	VariantAssertionReason,
}

// AllQuestionVariants returns the 14 tags in declaration order
func AllQuestionVariants() []QuestionVariant {
	out := make([]QuestionVariant, len(questionVariants))
	copy(out, questionVariants)
	return out
}

// ParseQuestionVariant accepts only an exact, case-sensitive tag
func ParseQuestionVariant(s string) (QuestionVariant, error) {
	for _, v := range questionVariants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// IsDescriptive reports whether the answer is free text checked only for presence
func (v QuestionVariant) IsDescriptive() bool {
	switch v {
	case VariantFillInBlank, VariantCaseStudy, VariantCode, VariantNumerical, VariantAssertionReason:
		return true
	}
	return false
}

// IsMCQ reports whether the variant carries an option list
func (v QuestionVariant) IsMCQ() bool {
	return v == VariantMCQSingle || v == VariantMCQMulti
}

// Question is the base row shared by every variant. Lookup references are
// nullable since deleting a lookup clears them instead of removing the question.
type Question struct {
	ID      uint            `json:"id" gorm:"primaryKey"`
	Variant QuestionVariant `json:"question_type" gorm:"column:question_type;size:32;not null;index"`

	QuestionTypeID       *uint `json:"question_type_id" gorm:"index"`
	QuestionLevelID      *uint `json:"question_level" gorm:"index"`
	TargetOrganizationID *uint `json:"target_organization" gorm:"index"`
	TargetGroupID        *uint `json:"target_group" gorm:"index"`
	TargetSubjectID      *uint `json:"target_subject" gorm:"index"`
	TopicID              *uint `json:"topic" gorm:"index"`
	SubTopicID           *uint `json:"sub_topic" gorm:"index"`
	SubSubTopicID        *uint `json:"sub_sub_topic" gorm:"index"`
	QuestionStatusID     *uint `json:"question_status" gorm:"index"`
	DifficultyLevelID    *uint `json:"difficulty_level" gorm:"index"`

	CreatedBy string    `json:"created_by,omitempty" gorm:"size:255;index"`
	UpdatedBy string    `json:"updated_by,omitempty" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExamReferences []ExamReference `json:"-" gorm:"many2many:question_exam_references"`
	Explanations   []Explanation   `json:"-" gorm:"many2many:question_explanations"`

	// Foreign keys only; these are never loaded
	TypeLookup         *QuestionType    `json:"-" gorm:"foreignKey:QuestionTypeID;constraint:OnDelete:SET NULL"`
	QuestionLevel      *QuestionLevel   `json:"-" gorm:"foreignKey:QuestionLevelID;constraint:OnDelete:SET NULL"`
	TargetOrganization *Organization    `json:"-" gorm:"foreignKey:TargetOrganizationID;constraint:OnDelete:SET NULL"`
	TargetGroup        *TargetGroup     `json:"-" gorm:"foreignKey:TargetGroupID;constraint:OnDelete:SET NULL"`
	TargetSubject      *Subject         `json:"-" gorm:"foreignKey:TargetSubjectID;constraint:OnDelete:SET NULL"`
	Topic              *Topic           `json:"-" gorm:"foreignKey:TopicID;constraint:OnDelete:SET NULL"`
	SubTopic           *SubTopic        `json:"-" gorm:"foreignKey:SubTopicID;constraint:OnDelete:SET NULL"`
	SubSubTopic        *SubSubTopic     `json:"-" gorm:"foreignKey:SubSubTopicID;constraint:OnDelete:SET NULL"`
	QuestionStatus     *QuestionStatus  `json:"-" gorm:"foreignKey:QuestionStatusID;constraint:OnDelete:SET NULL"`
	DifficultyLevel    *DifficultyLevel `json:"-" gorm:"foreignKey:DifficultyLevelID;constraint:OnDelete:SET NULL"`
}

// RefColumns returns pointers to every nullable lookup reference keyed by kind
func (q *Question) RefColumns() map[LookupKind]**uint {
	return map[LookupKind]**uint{
		KindQuestionType:    &q.QuestionTypeID,
		KindQuestionLevel:   &q.QuestionLevelID,
		KindOrganization:    &q.TargetOrganizationID,
		KindTargetGroup:     &q.TargetGroupID,
		KindSubject:         &q.TargetSubjectID,
		KindTopic:           &q.TopicID,
		KindSubTopic:        &q.SubTopicID,
		KindSubSubTopic:     &q.SubSubTopicID,
		KindQuestionStatus:  &q.QuestionStatusID,
		KindDifficultyLevel: &q.DifficultyLevelID,
	}
}

// ExamReferenceIDs returns the ids of the loaded exam references
func (q *Question) ExamReferenceIDs() []uint {
	ids := make([]uint, 0, len(q.ExamReferences))
	for _, r := range q.ExamReferences {
		ids = append(ids, r.ID)
	}
	return ids
}

// QuestionRecord is a base row together with its variant row. LoadErr is
// set when the variant row could not be read; the record then fails to encode.
type QuestionRecord struct {
	Question
	Details VariantRecord
	LoadErr error
}
