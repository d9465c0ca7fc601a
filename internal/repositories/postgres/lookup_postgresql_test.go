package postgres

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/repositories"
	"github.com/KERD-ORG/Bornomala-Updated/internal/testutil"
)

func newTestRepository(t *testing.T) (repositories.Repository, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewPostgreSQLRepository(RepositoryConfig{DB: db}), db
}

func mustCreate(t *testing.T, repo repositories.Repository, l models.Lookup) {
	t.Helper()
	if err := repo.Lookup().Create(context.Background(), nil, l); err != nil {
		t.Fatalf("create %s: %v", l.Kind(), err)
	}
}

func TestLookupDelete_CascadesTopicTree(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	topic := &models.Topic{Name: "Mechanics"}
	mustCreate(t, repo, topic)
	sub := &models.SubTopic{Name: "Kinematics", TopicID: topic.ID}
	mustCreate(t, repo, sub)
	subsub := &models.SubSubTopic{Name: "Projectiles", SubTopicID: sub.ID}
	mustCreate(t, repo, subsub)
	subject := &models.Subject{Name: "Physics"}
	mustCreate(t, repo, subject)

	q := &models.Question{
		Variant:         models.VariantTrueFalse,
		TargetSubjectID: &subject.ID,
		TopicID:         &topic.ID,
		SubTopicID:      &sub.ID,
		SubSubTopicID:   &subsub.ID,
	}
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}

	removed, err := repo.Lookup().Delete(ctx, nil, models.KindTopic, topic.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := removed[models.KindSubSubTopic]; len(got) != 1 || got[0] != subsub.ID {
		t.Errorf("removed subsubtopics = %v, want [%d]", got, subsub.ID)
	}

	for _, tc := range []struct {
		kind models.LookupKind
		id   uint
	}{
		{models.KindTopic, topic.ID},
		{models.KindSubTopic, sub.ID},
		{models.KindSubSubTopic, subsub.ID},
	} {
		_, err := repo.Lookup().GetByID(ctx, nil, tc.kind, tc.id)
		if !repositories.IsNotFoundError(err) {
			t.Errorf("%s %d: error = %v, want not found", tc.kind, tc.id, err)
		}
	}

	var stored models.Question
	if err := db.First(&stored, q.ID).Error; err != nil {
		t.Fatalf("question should survive lookup delete: %v", err)
	}
	if stored.TopicID != nil || stored.SubTopicID != nil || stored.SubSubTopicID != nil {
		t.Errorf("topic references not cleared: %v %v %v", stored.TopicID, stored.SubTopicID, stored.SubSubTopicID)
	}
	if stored.TargetSubjectID == nil || *stored.TargetSubjectID != subject.ID {
		t.Errorf("unrelated reference changed: %v", stored.TargetSubjectID)
	}
}

func TestLookupDelete_ExamReferenceUnlinks(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	year := "2021"
	keep := &models.ExamReference{ReferenceName: "Board", YearOfExam: &year}
	drop := &models.ExamReference{ReferenceName: "Olympiad"}
	mustCreate(t, repo, keep)
	mustCreate(t, repo, drop)

	q := &models.Question{Variant: models.VariantTrueFalse}
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}
	if err := repo.Question().SetExamReferences(ctx, nil, q, []models.ExamReference{*keep, *drop}); err != nil {
		t.Fatalf("SetExamReferences() error = %v", err)
	}

	if _, err := repo.Lookup().Delete(ctx, nil, models.KindExamReference, drop.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var linked []models.ExamReference
	if err := db.Model(q).Association("ExamReferences").Find(&linked); err != nil {
		t.Fatalf("load links: %v", err)
	}
	if len(linked) != 1 || linked[0].ID != keep.ID {
		t.Errorf("linked = %+v, want only %d", linked, keep.ID)
	}
}

func TestLookupList(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	t1 := &models.Topic{Name: "Algebra"}
	t2 := &models.Topic{Name: "Geometry"}
	mustCreate(t, repo, t1)
	mustCreate(t, repo, t2)
	for _, s := range []*models.SubTopic{
		{Name: "Linear equations", TopicID: t1.ID},
		{Name: "Quadratic equations", TopicID: t1.ID},
		{Name: "Triangles", TopicID: t2.ID},
	} {
		mustCreate(t, repo, s)
	}

	tests := []struct {
		name      string
		filter    repositories.LookupFilter
		wantTotal int64
		wantFirst string
	}{
		{"all", repositories.LookupFilter{Limit: 10}, 3, "Linear equations"},
		{"by parent", repositories.LookupFilter{ParentID: &t2.ID, Limit: 10}, 1, "Triangles"},
		{"name contains, case insensitive", repositories.LookupFilter{Name: "EQUATIONS", Limit: 10}, 2, "Linear equations"},
		{"paged", repositories.LookupFilter{Limit: 1, Offset: 1}, 3, "Quadratic equations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, total, err := repo.Lookup().List(ctx, nil, models.KindSubTopic, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(rows) == 0 || rows[0].Label() != tt.wantFirst {
				t.Errorf("first row = %v, want %s", rows, tt.wantFirst)
			}
		})
	}
}

func TestLookupCreate_DuplicateName(t *testing.T) {
	repo, _ := newTestRepository(t)

	mustCreate(t, repo, &models.Subject{Name: "Chemistry"})
	err := repo.Lookup().Create(context.Background(), nil, &models.Subject{Name: "Chemistry"})
	if !repositories.IsDuplicateError(err) {
		t.Fatalf("error = %v, want duplicate", err)
	}

	exists, err := repo.Lookup().ExistsByName(context.Background(), nil, models.KindSubject, " Chemistry ", nil)
	if err != nil || !exists {
		t.Errorf("ExistsByName() = %v, %v", exists, err)
	}
}

func TestEnsureQuestionTypes(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := repo.Lookup().EnsureQuestionTypes(ctx, nil); err != nil {
			t.Fatalf("EnsureQuestionTypes() run %d error = %v", i, err)
		}
	}

	var count int64
	db.Model(&models.QuestionType{}).Count(&count)
	if want := int64(len(models.AllQuestionVariants())); count != want {
		t.Errorf("question types = %d, want %d", count, want)
	}

	id, err := repo.Lookup().GetQuestionTypeID(ctx, nil, models.VariantCode)
	if err != nil || id == nil {
		t.Fatalf("GetQuestionTypeID() = %v, %v", id, err)
	}
	if _, err := repo.Lookup().Delete(ctx, nil, models.KindQuestionType, *id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	id, err = repo.Lookup().GetQuestionTypeID(ctx, nil, models.VariantCode)
	if err != nil || id != nil {
		t.Errorf("after delete GetQuestionTypeID() = %v, %v, want nil", id, err)
	}
}
