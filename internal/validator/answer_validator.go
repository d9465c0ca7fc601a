package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
)

const (
	MinOptions      = 2
	MaxOptions      = 8
	MinPairs        = 2
	MinOrderedItems = 2

	TrueToken  = "True"
	FalseToken = "False"
)

// AnswerInput is everything the answer validator looks at. Callers fill it
// from a create payload or from the merged state of an update.
type AnswerInput struct {
	Variant          models.QuestionVariant
	OptionIDs        []int
	MatchingPairs    []MatchingPairInput
	OrderingSequence []string
	ColumnA          []string
	ColumnB          []string
	ImageURL         *string
	DiagramURL       *string
	AudioURL         *string
	VideoURL         *string
	CorrectAnswer    json.RawMessage
}

// ParsedAnswer is the decoded correct answer, ready to persist
type ParsedAnswer struct {
	OptionID  int
	OptionIDs []int
	Text      string
	Mapping   map[string]string
	Raw       json.RawMessage
}

// ResolveOptionIDs assigns each option its declared id and checks the list
func ResolveOptionIDs(options []OptionInput) ([]int, ValidationErrors) {
	var errs ValidationErrors
	if len(options) < MinOptions || len(options) > MaxOptions {
		errs = append(errs, ValidationError{
			Field:   "options",
			Message: fmt.Sprintf("must have between %d and %d entries", MinOptions, MaxOptions),
			Value:   len(options),
			Rule:    RuleInvalidAnswerShape,
		})
	}

	ids := make([]int, len(options))
	seen := make(map[int]int, len(options))
	for i, opt := range options {
		id := i + 1
		if opt.ID != nil {
			id = *opt.ID
		}
		ids[i] = id
		field := fmt.Sprintf("options[%d]", i)
		if strings.TrimSpace(opt.Text) == "" {
			errs = append(errs, answerError(field+".text", "must not be empty", opt.Text))
		}
		if id <= 0 {
			errs = append(errs, answerError(field+".id", "must be a positive integer", id))
		}
		if prev, dup := seen[id]; dup {
			errs = append(errs, answerError(field+".id", fmt.Sprintf("duplicates options[%d]", prev), id))
		}
		seen[id] = i
	}
	return ids, errs
}

// ValidateAnswer checks the correct answer against the variant's declared
// structure. Dispatch is on the exact tag.
func (bv *BusinessValidator) ValidateAnswer(in AnswerInput) (ParsedAnswer, ValidationErrors) {
	switch in.Variant {
	case models.VariantMCQSingle:
		return validateMCQSingle(in)
	case models.VariantMCQMulti:
		return validateMCQMulti(in)
	case models.VariantTrueFalse:
		return validateTrueFalse(in)
	case models.VariantNumerical:
		return validateNumerical(in)
	case models.VariantFillInBlank, models.VariantCaseStudy, models.VariantCode, models.VariantAssertionReason:
		return validateDescriptive(in)
	case models.VariantMatching:
		return validateMatching(in)
	case models.VariantOrdering:
		return validateOrdering(in)
	case models.VariantDragAndDrop:
		return validateDragAndDrop(in)
	case models.VariantImage:
		return bv.validateMedia(in, "image_url", in.ImageURL)
	case models.VariantDiagram:
		return bv.validateDiagram(in)
	case models.VariantAudioVideo:
		return bv.validateAudioVideo(in)
	default:
		return ParsedAnswer{}, ValidationErrors{{
			Field:   "question_type",
			Message: "is not a known question type",
			Value:   string(in.Variant),
			Rule:    "question_type",
		}}
	}
}

func requireAnswer(raw json.RawMessage) *ValidationError {
	if !HasValue(raw) {
		e := answerError("correct_answer", "is required", nil)
		return &e
	}
	return nil
}

// decodeID accepts a JSON integer or a string holding one
func decodeID(raw json.RawMessage) (int, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	switch t := v.(type) {
	case json.Number:
		n, err := strconv.Atoi(t.String())
		return n, err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

func validateMCQSingle(in AnswerInput) (ParsedAnswer, ValidationErrors) {
	if e := requireAnswer(in.CorrectAnswer); e != nil {
		return ParsedAnswer{}, ValidationErrors{*e}
	}
	id, ok := decodeID(in.CorrectAnswer)
	if !ok {
		return ParsedAnswer{}, ValidationErrors{answerError("correct_answer", "must be a single option id", string(in.CorrectAnswer))}
	}
	if !slices.Contains(in.OptionIDs, id) {
		return ParsedAnswer{}, ValidationErrors{answerError("correct_answer", "must reference a declared option", id)}
	}
	return ParsedAnswer{OptionID: id, Raw: mustMarshal(id)}, nil
}

func validateMCQMulti(in AnswerInput) (ParsedAnswer, ValidationErrors) {
	if e := requireAnswer(in.CorrectAnswer); e != nil {
		return ParsedAnswer{}, ValidationErrors{*e}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(in.CorrectAnswer, &items); err != nil {
		return ParsedAnswer{}, ValidationErrors{answerError("correct_answer", "must be a list of option ids", string(in.CorrectAnswer))}
	}
	if len(items) == 0 {
		return ParsedAnswer{}, ValidationErrors{answerError("correct_answer", "must select at least one option", nil)}
	}

	var errs ValidationErrors
	ids := make([]int, 0, len(items))
	seen := make(map[int]bool, len(items))
	for i, item := range items {
		field := fmt.Sprintf("correct_answer[%d]", i)
		id, ok := decodeID(item)
		switch {
		case !ok:
			errs = append(errs, answerError(field, "must be an option id", string(item)))
		case !slices.Contains(in.OptionIDs, id):
			errs = append(errs, answerError(field, "must reference a declared option", id))
		case seen[id]:
			errs = append(errs, answerError(field, "is selected more than once", id))
		default:
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(errs) > 0 {
		return ParsedAnswer{}, errs
	}
	return ParsedAnswer{OptionIDs: ids, Raw: mustMarshal(ids)}, nil
}

// decodeText requires a JSON string with non-blank content
func decodeText(raw json.RawMessage) (string, *ValidationError) {
	if e := requireAnswer(raw); e != nil {
		return "", e
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		e := answerError("correct_answer", "must be text", string(raw))
		return "", &e
	}
	if strings.TrimSpace(s) == "" {
		e := answerError("correct_answer", "must not be empty", s)
		return "", &e
	}
	return s, nil
}

func validateTrueFalse(in AnswerInput) (ParsedAnswer, ValidationErrors) {
	s, e := decodeText(in.CorrectAnswer)
	if e != nil {
		return ParsedAnswer{}, ValidationErrors{*e}
	}
	if s != TrueToken && s != FalseToken {
		return ParsedAnswer{}, ValidationErrors{answerError("correct_answer", fmt.Sprintf("must be %q or %q", TrueToken, FalseToken), s)}
	}
	return ParsedAnswer{Text: s, Raw: mustMarshal(s)}, nil
}

func validateDescriptive(in AnswerInput) (ParsedAnswer, ValidationErrors) {
	s, e := decodeText(in.CorrectAnswer)
	if e != nil {
		return ParsedAnswer{}, ValidationErrors{*e}
	}
	return ParsedAnswer{Text: s, Raw: mustMarshal(s)}, nil
}

// validateNumerical accepts a JSON number or a string holding one
func validateNumerical(in AnswerInput) (ParsedAnswer, ValidationErrors) {
	if e := requireAnswer(in.CorrectAnswer); e != nil {
		return ParsedAnswer{}, ValidationErrors{*e}
	}
	dec := json.NewDecoder(bytes.NewReader(in.CorrectAnswer))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return ParsedAnswer{}, ValidationErrors{answerError("correct_answer", "must be a number", string(in.CorrectAnswer))}
	}

	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	default:
		return ParsedAnswer{}, ValidationErrors{answerError("correct_answer", "must be a number", string(in.CorrectAnswer))}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return ParsedAnswer{}, ValidationErrors{answerError("correct_answer", "must be a finite number", text)}
	}
	return ParsedAnswer{Text: text, Raw: mustMarshal(text)}, nil
}

func validateMatching(in AnswerInput) (ParsedAnswer, ValidationErrors) {
	var errs ValidationErrors
	if len(in.MatchingPairs) < MinPairs {
		errs = append(errs, answerError("matching_pairs", fmt.Sprintf("must have at least %d pairs", MinPairs), len(in.MatchingPairs)))
	}
	lefts := make(map[string]bool, len(in.MatchingPairs))
	rights := make(map[string]bool, len(in.MatchingPairs))
	for i, p := range in.MatchingPairs {
		field := fmt.Sprintf("matching_pairs[%d]", i)
		if strings.TrimSpace(p.Left) == "" {
			errs = append(errs, answerError(field+".left", "must not be empty", p.Left))
		}
		if strings.TrimSpace(p.Right) == "" {
			errs = append(errs, answerError(field+".right", "must not be empty", p.Right))
		}
		if lefts[p.Left] {
			errs = append(errs, answerError(field+".left", "is not unique", p.Left))
		}
		lefts[p.Left] = true
		rights[p.Right] = true
	}

	parsed := ParsedAnswer{}
	if HasValue(in.CorrectAnswer) {
		var m map[string]string
		if err := json.Unmarshal(in.CorrectAnswer, &m); err != nil {
			errs = append(errs, answerError("correct_answer", "must map left items to right items", string(in.CorrectAnswer)))
		} else {
			errs = append(errs, checkMapping(m, lefts, rights, "left item", "right item")...)
			parsed.Mapping = m
			parsed.Raw = mustMarshal(m)
		}
	}
	if len(errs) > 0 {
		return ParsedAnswer{}, errs
	}
	return parsed, nil
}

func validateOrdering(in AnswerInput) (ParsedAnswer, ValidationErrors) {
	errs := checkItems("ordering_sequence", in.OrderingSequence, MinOrderedItems)

	parsed := ParsedAnswer{}
	if HasValue(in.CorrectAnswer) {
		var order []string
		if err := json.Unmarshal(in.CorrectAnswer, &order); err != nil {
			errs = append(errs, answerError("correct_answer", "must be a list of sequence items", string(in.CorrectAnswer)))
		} else if !isPermutation(order, in.OrderingSequence) {
			errs = append(errs, answerError("correct_answer", "must contain exactly the sequence items", order))
		} else {
			parsed.Raw = mustMarshal(order)
		}
	}
	if len(errs) > 0 {
		return ParsedAnswer{}, errs
	}
	return parsed, nil
}

func validateDragAndDrop(in AnswerInput) (ParsedAnswer, ValidationErrors) {
	var errs ValidationErrors
	errs = append(errs, checkItems("options_column_a", in.ColumnA, 1)...)
	errs = append(errs, checkItems("options_column_b", in.ColumnB, 1)...)

	if e := requireAnswer(in.CorrectAnswer); e != nil {
		return ParsedAnswer{}, append(errs, *e)
	}
	var m map[string]string
	if err := json.Unmarshal(in.CorrectAnswer, &m); err != nil {
		return ParsedAnswer{}, append(errs, answerError("correct_answer", "must map column A items to column B items", string(in.CorrectAnswer)))
	}
	if len(m) == 0 {
		errs = append(errs, answerError("correct_answer", "must map at least one item", nil))
	}
	errs = append(errs, checkMapping(m, toSet(in.ColumnA), toSet(in.ColumnB), "column A item", "column B item")...)
	if len(errs) > 0 {
		return ParsedAnswer{}, errs
	}
	return ParsedAnswer{Mapping: m, Raw: mustMarshal(m)}, nil
}

func (bv *BusinessValidator) checkURL(field string, value *string, required bool) ValidationErrors {
	if value == nil || strings.TrimSpace(*value) == "" {
		if required {
			return ValidationErrors{answerError(field, "is required", nil)}
		}
		return nil
	}
	if err := bv.validate.Var(*value, "url"); err != nil {
		return ValidationErrors{answerError(field, "must be a valid URL", *value)}
	}
	return nil
}

func (bv *BusinessValidator) validateMedia(in AnswerInput, field string, url *string) (ParsedAnswer, ValidationErrors) {
	errs := bv.checkURL(field, url, true)
	s, e := decodeText(in.CorrectAnswer)
	if e != nil {
		errs = append(errs, *e)
	}
	if len(errs) > 0 {
		return ParsedAnswer{}, errs
	}
	return ParsedAnswer{Text: s, Raw: mustMarshal(s)}, nil
}

func (bv *BusinessValidator) validateAudioVideo(in AnswerInput) (ParsedAnswer, ValidationErrors) {
	var errs ValidationErrors
	hasAudio := in.AudioURL != nil && strings.TrimSpace(*in.AudioURL) != ""
	hasVideo := in.VideoURL != nil && strings.TrimSpace(*in.VideoURL) != ""
	if !hasAudio && !hasVideo {
		errs = append(errs, answerError("audio_url", "audio_url or video_url is required", nil))
	}
	errs = append(errs, bv.checkURL("audio_url", in.AudioURL, false)...)
	errs = append(errs, bv.checkURL("video_url", in.VideoURL, false)...)

	s, e := decodeText(in.CorrectAnswer)
	if e != nil {
		errs = append(errs, *e)
	}
	if len(errs) > 0 {
		return ParsedAnswer{}, errs
	}
	return ParsedAnswer{Text: s, Raw: mustMarshal(s)}, nil
}

// validateDiagram accepts one label or a list of labels
func (bv *BusinessValidator) validateDiagram(in AnswerInput) (ParsedAnswer, ValidationErrors) {
	errs := bv.checkURL("diagram_url", in.DiagramURL, true)
	if e := requireAnswer(in.CorrectAnswer); e != nil {
		return ParsedAnswer{}, append(errs, *e)
	}

	var parsed ParsedAnswer
	var labels []string
	if err := json.Unmarshal(in.CorrectAnswer, &labels); err == nil {
		if len(labels) == 0 {
			errs = append(errs, answerError("correct_answer", "must contain at least one label", nil))
		}
		for i, l := range labels {
			if strings.TrimSpace(l) == "" {
				errs = append(errs, answerError(fmt.Sprintf("correct_answer[%d]", i), "must not be empty", l))
			}
		}
		parsed.Raw = mustMarshal(labels)
	} else {
		s, e := decodeText(in.CorrectAnswer)
		if e != nil {
			e.Message = "must be a label or a list of labels"
			errs = append(errs, *e)
		}
		parsed.Text = s
		parsed.Raw = mustMarshal(s)
	}
	if len(errs) > 0 {
		return ParsedAnswer{}, errs
	}
	return parsed, nil
}

func checkItems(field string, items []string, min int) ValidationErrors {
	var errs ValidationErrors
	if len(items) < min {
		errs = append(errs, answerError(field, fmt.Sprintf("must have at least %d items", min), len(items)))
	}
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		f := fmt.Sprintf("%s[%d]", field, i)
		if strings.TrimSpace(it) == "" {
			errs = append(errs, answerError(f, "must not be empty", it))
			continue
		}
		if seen[it] {
			errs = append(errs, answerError(f, "is not unique", it))
		}
		seen[it] = true
	}
	return errs
}

func checkMapping(m map[string]string, keys, values map[string]bool, keyName, valueName string) ValidationErrors {
	var errs ValidationErrors
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v := m[k]
		if !keys[k] {
			errs = append(errs, answerError("correct_answer."+k, "is not a declared "+keyName, k))
		}
		if !values[v] {
			errs = append(errs, answerError("correct_answer."+k, "maps to an undeclared "+valueName, v))
		}
	}
	return errs
}

func isPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(b))
	for _, s := range b {
		counts[s]++
	}
	for _, s := range a {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal answer: %v", err))
	}
	return data
}
