package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrVariantMissing = errors.New("variant data missing")

// ExplanationView is the encoded form of an attached explanation
type ExplanationView struct {
	ID       uint             `json:"id"`
	Level    ExplanationLevel `json:"level"`
	Text     *string          `json:"text,omitempty"`
	VideoURL *string          `json:"video_url,omitempty"`
}

// MarshalJSON produces the variant-specific encoding: the base fields and
// the variant fields flattened into one object.
func (r QuestionRecord) MarshalJSON() ([]byte, error) {
	if r.LoadErr != nil {
		return nil, fmt.Errorf("question %d: %w", r.ID, r.LoadErr)
	}
	if r.Details == nil {
		return nil, fmt.Errorf("question %d: %w", r.ID, ErrVariantMissing)
	}
	if r.Details.Variant() != r.Variant {
		return nil, fmt.Errorf("question %d: stored tag %q does not match variant %q", r.ID, r.Variant, r.Details.Variant())
	}

	base, err := json.Marshal(r.Question)
	if err != nil {
		return nil, err
	}
	details, err := json.Marshal(r.Details)
	if err != nil {
		return nil, fmt.Errorf("question %d: encode %s: %w", r.ID, r.Variant, err)
	}

	explanations := make([]ExplanationView, 0, len(r.Explanations))
	for _, e := range r.Explanations {
		explanations = append(explanations, ExplanationView{ID: e.ID, Level: e.Level, Text: e.Text, VideoURL: e.VideoURL})
	}
	extra, err := json.Marshal(struct {
		ExamReferences []uint            `json:"exam_references"`
		Explanations   []ExplanationView `json:"explanations"`
	}{r.ExamReferenceIDs(), explanations})
	if err != nil {
		return nil, err
	}

	return mergeObjects(base, extra, details)
}

// mergeObjects concatenates the members of JSON objects. Keys never overlap
// between the base, the link lists and a variant row.
func mergeObjects(objects ...[]byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, obj := range objects {
		obj = bytes.TrimSpace(obj)
		if len(obj) < 2 || obj[0] != '{' || obj[len(obj)-1] != '}' {
			return nil, fmt.Errorf("merge: not a JSON object")
		}
		inner := bytes.TrimSpace(obj[1 : len(obj)-1])
		if len(inner) == 0 {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		buf.Write(inner)
		first = false
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// QuestionEnvelope is the generic listing shape. Exactly one of Details and
// Error is set.
type QuestionEnvelope struct {
	ID           uint            `json:"id"`
	QuestionType QuestionVariant `json:"question_type"`
	Details      json.RawMessage `json:"details,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Failed reports whether the record could not be encoded
func (e QuestionEnvelope) Failed() bool { return e.Error != "" }

// EncodeEnvelope encodes one record, capturing a failure in the envelope
// instead of returning it.
func EncodeEnvelope(r QuestionRecord) QuestionEnvelope {
	env := QuestionEnvelope{ID: r.ID, QuestionType: r.Variant}
	if _, err := ParseQuestionVariant(string(r.Variant)); err != nil {
		env.Error = err.Error()
		return env
	}
	data, err := json.Marshal(r)
	if err != nil {
		env.Error = err.Error()
		return env
	}
	env.Details = data
	return env
}

// EncodeEnvelopes encodes every record independently
func EncodeEnvelopes(records []QuestionRecord) []QuestionEnvelope {
	out := make([]QuestionEnvelope, len(records))
	for i, r := range records {
		out[i] = EncodeEnvelope(r)
	}
	return out
}
