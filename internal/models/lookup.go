package models

import (
	"errors"
	"fmt"
	"time"
)

// LookupKind names one lookup table. The value doubles as the URL segment.
type LookupKind string

const (
	KindSubject         LookupKind = "subjects"
	KindTopic           LookupKind = "topics"
	KindSubTopic        LookupKind = "subtopics"
	KindSubSubTopic     LookupKind = "subsubtopics"
	KindDifficultyLevel LookupKind = "difficulty-levels"
	KindQuestionStatus  LookupKind = "question-statuses"
	KindQuestionType    LookupKind = "question-types"
	KindTargetGroup     LookupKind = "target-groups"
	KindOrganization    LookupKind = "organizations"
	KindExamReference   LookupKind = "exam-references"
	KindQuestionLevel   LookupKind = "question-levels"
)

var ErrUnknownLookupKind = errors.New("unknown lookup kind")

var lookupKinds = []LookupKind{
	KindSubject,
	KindTopic,
	KindSubTopic,
	KindSubSubTopic,
	KindDifficultyLevel,
	KindQuestionStatus,
	KindQuestionType,
	KindTargetGroup,
	KindOrganization,
	KindExamReference,
	KindQuestionLevel,
}

// AllLookupKinds returns every registered kind in routing order
func AllLookupKinds() []LookupKind {
	out := make([]LookupKind, len(lookupKinds))
	copy(out, lookupKinds)
	return out
}

// ParseLookupKind matches a URL segment exactly
func ParseLookupKind(s string) (LookupKind, error) {
	for _, k := range lookupKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLookupKind, s)
}

// ParentKind returns the kind a row of k must point at, if any
func (k LookupKind) ParentKind() (LookupKind, bool) {
	switch k {
	case KindSubTopic:
		return KindTopic, true
	case KindSubSubTopic:
		return KindSubTopic, true
	default:
		return "", false
	}
}

// RequiresUniqueName is false only for exam references
func (k LookupKind) RequiresUniqueName() bool {
	return k != KindExamReference
}

// QuestionColumn is the questions column holding a reference of this kind.
// Exam references live in a join table and return "".
func (k LookupKind) QuestionColumn() string {
	switch k {
	case KindSubject:
		return "target_subject_id"
	case KindTopic:
		return "topic_id"
	case KindSubTopic:
		return "sub_topic_id"
	case KindSubSubTopic:
		return "sub_sub_topic_id"
	case KindDifficultyLevel:
		return "difficulty_level_id"
	case KindQuestionStatus:
		return "question_status_id"
	case KindQuestionType:
		return "question_type_id"
	case KindTargetGroup:
		return "target_group_id"
	case KindOrganization:
		return "target_organization_id"
	case KindQuestionLevel:
		return "question_level_id"
	default:
		return ""
	}
}

// Lookup is implemented by every lookup row type
type Lookup interface {
	GetID() uint
	Kind() LookupKind
	Label() string
	GetParentID() *uint
}

// LookupBase carries the identity and timestamps shared by lookup rows
type LookupBase struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b LookupBase) GetID() uint        { return b.ID }
func (b LookupBase) GetParentID() *uint { return nil }

type Subject struct {
	LookupBase
	Name string `json:"name" gorm:"size:100;not null;uniqueIndex"`
}

func (Subject) Kind() LookupKind { return KindSubject }
func (s Subject) Label() string  { return s.Name }

type Topic struct {
	LookupBase
	Name string `json:"name" gorm:"size:255;not null;uniqueIndex"`
}

func (Topic) Kind() LookupKind { return KindTopic }
func (t Topic) Label() string  { return t.Name }

type SubTopic struct {
	LookupBase
	Name    string `json:"name" gorm:"size:255;not null;uniqueIndex"`
	TopicID uint   `json:"topic" gorm:"not null;index"`

	Topic *Topic `json:"-" gorm:"foreignKey:TopicID;constraint:OnDelete:CASCADE"`
}

func (SubTopic) Kind() LookupKind     { return KindSubTopic }
func (s SubTopic) Label() string      { return s.Name }
func (s SubTopic) GetParentID() *uint { return &s.TopicID }

type SubSubTopic struct {
	LookupBase
	Name       string `json:"name" gorm:"size:255;not null;uniqueIndex"`
	SubTopicID uint   `json:"sub_topic" gorm:"not null;index"`

	SubTopic *SubTopic `json:"-" gorm:"foreignKey:SubTopicID;constraint:OnDelete:CASCADE"`
}

func (SubSubTopic) Kind() LookupKind     { return KindSubSubTopic }
func (s SubSubTopic) Label() string      { return s.Name }
func (s SubSubTopic) GetParentID() *uint { return &s.SubTopicID }

type DifficultyLevel struct {
	LookupBase
	Name string `json:"name" gorm:"size:50;not null;uniqueIndex"`
}

func (DifficultyLevel) Kind() LookupKind { return KindDifficultyLevel }
func (d DifficultyLevel) Label() string  { return d.Name }

type QuestionStatus struct {
	LookupBase
	Name string `json:"name" gorm:"size:50;not null;uniqueIndex"`
}

func (QuestionStatus) Kind() LookupKind { return KindQuestionStatus }
func (s QuestionStatus) Label() string  { return s.Name }

// QuestionType is the lookup row for a variant tag. Rows for all variants are
// seeded at startup.
type QuestionType struct {
	LookupBase
	Name string `json:"name" gorm:"size:50;not null;uniqueIndex"`
}

func (QuestionType) Kind() LookupKind { return KindQuestionType }
func (q QuestionType) Label() string  { return q.Name }

type TargetGroup struct {
	LookupBase
	Name string `json:"name" gorm:"size:50;not null;uniqueIndex"`
}

func (TargetGroup) Kind() LookupKind { return KindTargetGroup }
func (g TargetGroup) Label() string  { return g.Name }

type Organization struct {
	LookupBase
	Name string `json:"name" gorm:"size:255;not null;uniqueIndex"`
}

func (Organization) Kind() LookupKind { return KindOrganization }
func (o Organization) Label() string  { return o.Name }

type QuestionLevel struct {
	LookupBase
	Name string `json:"name" gorm:"size:100;not null;uniqueIndex"`
}

func (QuestionLevel) Kind() LookupKind { return KindQuestionLevel }
func (l QuestionLevel) Label() string  { return l.Name }

// ExamReference names a past exam a question appeared in. Names repeat
// across years so there is no uniqueness.
type ExamReference struct {
	LookupBase
	ReferenceName string  `json:"reference_name" gorm:"size:255;not null"`
	YearOfExam    *string `json:"year_of_exam" gorm:"size:4"`
}

func (ExamReference) Kind() LookupKind { return KindExamReference }

func (e ExamReference) Label() string {
	if e.YearOfExam != nil && *e.YearOfExam != "" {
		return fmt.Sprintf("%s (%s)", e.ReferenceName, *e.YearOfExam)
	}
	return e.ReferenceName
}

// LookupModels lists every lookup table for migrations
func LookupModels() []interface{} {
	return []interface{}{
		&Subject{},
		&Topic{},
		&SubTopic{},
		&SubSubTopic{},
		&DifficultyLevel{},
		&QuestionStatus{},
		&QuestionType{},
		&TargetGroup{},
		&Organization{},
		&ExamReference{},
		&QuestionLevel{},
	}
}

// NewLookup returns an empty row of the kind's concrete type
func NewLookup(kind LookupKind) (Lookup, error) {
	switch kind {
	case KindSubject:
		return &Subject{}, nil
	case KindTopic:
		return &Topic{}, nil
	case KindSubTopic:
		return &SubTopic{}, nil
	case KindSubSubTopic:
		return &SubSubTopic{}, nil
	case KindDifficultyLevel:
		return &DifficultyLevel{}, nil
	case KindQuestionStatus:
		return &QuestionStatus{}, nil
	case KindQuestionType:
		return &QuestionType{}, nil
	case KindTargetGroup:
		return &TargetGroup{}, nil
	case KindOrganization:
		return &Organization{}, nil
	case KindExamReference:
		return &ExamReference{}, nil
	case KindQuestionLevel:
		return &QuestionLevel{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLookupKind, string(kind))
	}
}

// LookupFields holds the writable attributes of any lookup row. Kinds ignore
// the fields they do not have.
type LookupFields struct {
	Name          string
	ReferenceName string
	YearOfExam    *string
	ParentID      uint
}

// FieldsOf reads the writable attributes of a row
func FieldsOf(l Lookup) LookupFields {
	switch e := l.(type) {
	case *ExamReference:
		return LookupFields{ReferenceName: e.ReferenceName, YearOfExam: e.YearOfExam}
	case *SubTopic:
		return LookupFields{Name: e.Name, ParentID: e.TopicID}
	case *SubSubTopic:
		return LookupFields{Name: e.Name, ParentID: e.SubTopicID}
	default:
		return LookupFields{Name: l.Label()}
	}
}

// Assign writes f onto the row l points to
func Assign(l Lookup, f LookupFields) {
	switch e := l.(type) {
	case *Subject:
		e.Name = f.Name
	case *Topic:
		e.Name = f.Name
	case *SubTopic:
		e.Name, e.TopicID = f.Name, f.ParentID
	case *SubSubTopic:
		e.Name, e.SubTopicID = f.Name, f.ParentID
	case *DifficultyLevel:
		e.Name = f.Name
	case *QuestionStatus:
		e.Name = f.Name
	case *QuestionType:
		e.Name = f.Name
	case *TargetGroup:
		e.Name = f.Name
	case *Organization:
		e.Name = f.Name
	case *QuestionLevel:
		e.Name = f.Name
	case *ExamReference:
		e.ReferenceName, e.YearOfExam = f.ReferenceName, f.YearOfExam
	}
}

// NameColumn is the column searched and kept unique for the kind
func (k LookupKind) NameColumn() string {
	if k == KindExamReference {
		return "reference_name"
	}
	return "name"
}

// ParentColumn is the column holding the parent id, or "" for top level kinds
func (k LookupKind) ParentColumn() string {
	switch k {
	case KindSubTopic:
		return "topic_id"
	case KindSubSubTopic:
		return "sub_topic_id"
	default:
		return ""
	}
}
