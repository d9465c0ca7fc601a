package postgres

import (
	"context"
	"testing"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
)

func strPtr(s string) *string { return &s }

func TestResolveOrCreate_Dedup(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	explanations := repo.Explanation()

	first, err := explanations.ResolveOrCreate(ctx, nil, models.ExplanationPreliminary, strPtr("Because gravity"), nil)
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}

	tests := []struct {
		name   string
		level  models.ExplanationLevel
		text   *string
		video  *string
		sameID bool
	}{
		{"identical content", models.ExplanationPreliminary, strPtr("Because gravity"), nil, true},
		{"surrounding whitespace", models.ExplanationPreliminary, strPtr("  Because gravity "), strPtr(" "), true},
		{"other level", models.ExplanationAdvanced, strPtr("Because gravity"), nil, false},
		{"with video", models.ExplanationPreliminary, strPtr("Because gravity"), strPtr("https://v.example/1"), false},
		{"text absent", models.ExplanationPreliminary, nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := explanations.ResolveOrCreate(ctx, nil, tt.level, tt.text, tt.video)
			if err != nil {
				t.Fatalf("ResolveOrCreate() error = %v", err)
			}
			if (got.ID == first.ID) != tt.sameID {
				t.Errorf("id = %d, first = %d, want same = %v", got.ID, first.ID, tt.sameID)
			}
		})
	}

	count, err := explanations.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 4 {
		t.Errorf("Count() = %d, want 4", count)
	}

	again, err := explanations.ResolveOrCreate(ctx, nil, models.ExplanationAdvanced, strPtr("Because gravity"), nil)
	if err != nil {
		t.Fatalf("ResolveOrCreate() error = %v", err)
	}
	got, err := explanations.GetByID(ctx, nil, again.ID)
	if err != nil || got.Level != models.ExplanationAdvanced {
		t.Errorf("GetByID() = %+v, %v", got, err)
	}
}
