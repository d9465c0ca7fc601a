package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type ExplanationLevel string

const (
	ExplanationPreliminary  ExplanationLevel = "Preliminary"
	ExplanationIntermediate ExplanationLevel = "Intermediate"
	ExplanationAdvanced     ExplanationLevel = "Advanced"
)

// IsValid reports whether l is one of the three known levels
func (l ExplanationLevel) IsValid() bool {
	switch l {
	case ExplanationPreliminary, ExplanationIntermediate, ExplanationAdvanced:
		return true
	}
	return false
}

// Explanation is shared between questions. Identical (level, text, video)
// content maps to a single row through DedupKey.
type Explanation struct {
	ID       uint             `json:"id" gorm:"primaryKey"`
	Level    ExplanationLevel `json:"level" gorm:"size:20;not null"`
	Text     *string          `json:"text" gorm:"type:text"`
	VideoURL *string          `json:"video_url" gorm:"size:1024"`
	DedupKey string           `json:"-" gorm:"size:64;not null;uniqueIndex"`

	CreatedAt time.Time `json:"created_at"`
}

// ExplanationDedupKey hashes the content fields. Callers normalise blank
// strings to nil first.
func ExplanationDedupKey(level ExplanationLevel, text, video *string) string {
	h := sha256.New()
	h.Write([]byte(level))
	for _, part := range []*string{text, video} {
		if part == nil {
			h.Write([]byte{0})
			continue
		}
		h.Write([]byte{1})
		h.Write([]byte(*part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
