package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/KERD-ORG/Bornomala-Updated/internal/events"
	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/validator"
)

func TestLookupCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	topic := env.lookup(t, models.KindTopic, `{"name":"Algebra"}`)

	tests := []struct {
		name    string
		kind    models.LookupKind
		req     CreateLookupRequest
		wantErr error
	}{
		{"subject", models.KindSubject, CreateLookupRequest{Name: "  Maths "}, nil},
		{"subtopic with parent", models.KindSubTopic, CreateLookupRequest{Name: "Linear", Topic: uintPtr(topic.GetID())}, nil},
		{"subtopic missing parent", models.KindSubTopic, CreateLookupRequest{Name: "Orphan", Topic: uintPtr(999)}, ErrNotFound},
		{"duplicate topic", models.KindTopic, CreateLookupRequest{Name: "Algebra"}, ErrConflict},
		{"exam reference names repeat", models.KindExamReference, CreateLookupRequest{ReferenceName: "Board"}, nil},
		{"exam reference again", models.KindExamReference, CreateLookupRequest{ReferenceName: "Board"}, nil},
		{"bad year", models.KindExamReference, CreateLookupRequest{ReferenceName: "Board", YearOfExam: strPtr("20x1")}, validator.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.manager.Lookup().Create(ctx, tt.kind, &tt.req, testActor)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				if got.GetID() == 0 {
					t.Error("created lookup has no id")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	subject, err := env.manager.Lookup().List(ctx, models.KindSubject, &ListLookupsRequest{Name: "maths"})
	if err != nil || subject.Total != 1 || subject.Items[0].Label() != "Maths" {
		t.Errorf("stored subject = %+v, %v, want trimmed name", subject, err)
	}
}

func TestLookupUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.lookup(t, models.KindSubject, `{"name":"Physics"}`)
	chem := env.lookup(t, models.KindSubject, `{"name":"Chemistry"}`)

	_, err := env.manager.Lookup().Update(ctx, models.KindSubject, chem.GetID(), &UpdateLookupRequest{Name: strPtr("Physics")}, testActor)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("rename onto existing name error = %v, want conflict", err)
	}

	updated, err := env.manager.Lookup().Update(ctx, models.KindSubject, chem.GetID(), &UpdateLookupRequest{Name: strPtr("Organic Chemistry")}, testActor)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Label() != "Organic Chemistry" {
		t.Errorf("label = %q", updated.Label())
	}

	_, err = env.manager.Lookup().Update(ctx, models.KindSubject, 999, &UpdateLookupRequest{Name: strPtr("x")}, testActor)
	if !errors.Is(err, ErrLookupNotFound) {
		t.Errorf("missing row error = %v", err)
	}

	got, err := env.manager.Lookup().GetByID(ctx, models.KindSubject, chem.GetID())
	if err != nil || got.Label() != "Organic Chemistry" {
		t.Errorf("GetByID() = %v, %v", got, err)
	}

	if len(env.publisher.EventsOfType(events.LookupUpdated)) != 1 {
		t.Errorf("lookup.updated events = %d", len(env.publisher.EventsOfType(events.LookupUpdated)))
	}
}

func TestLookupUpdate_Reparent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t1 := env.lookup(t, models.KindTopic, `{"name":"Mechanics"}`)
	t2 := env.lookup(t, models.KindTopic, `{"name":"Optics"}`)
	used := env.lookup(t, models.KindSubTopic, fmt.Sprintf(`{"name":"Kinematics","topic":%d}`, t1.GetID()))
	loose := env.lookup(t, models.KindSubTopic, fmt.Sprintf(`{"name":"Dynamics","topic":%d}`, t1.GetID()))
	unused := env.lookup(t, models.KindSubTopic, fmt.Sprintf(`{"name":"Statics","topic":%d}`, t1.GetID()))
	leaf := env.lookup(t, models.KindSubSubTopic, fmt.Sprintf(`{"name":"Projectiles","sub_topic":%d}`, used.GetID()))

	for _, body := range []string{
		fmt.Sprintf(`{"question_type":"CODE","question_text":"a","correct_answer":"x","topic":%d,"sub_topic":%d,"sub_sub_topic":%d}`, t1.GetID(), used.GetID(), leaf.GetID()),
		fmt.Sprintf(`{"question_type":"CODE","question_text":"b","correct_answer":"x","sub_topic":%d}`, loose.GetID()),
	} {
		if _, err := env.manager.Question().Create(ctx, createRequest(t, body), testActor); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		kind    models.LookupKind
		id      uint
		req     UpdateLookupRequest
		wantErr error
	}{
		{"questions pair subtopic with old topic", models.KindSubTopic, used.GetID(), UpdateLookupRequest{Topic: uintPtr(t2.GetID())}, ErrConflict},
		{"questions pair subsubtopic with old subtopic", models.KindSubSubTopic, leaf.GetID(), UpdateLookupRequest{SubTopic: uintPtr(unused.GetID())}, ErrConflict},
		{"same parent", models.KindSubTopic, used.GetID(), UpdateLookupRequest{Topic: uintPtr(t1.GetID())}, nil},
		{"questions without topic", models.KindSubTopic, loose.GetID(), UpdateLookupRequest{Topic: uintPtr(t2.GetID())}, nil},
		{"no questions", models.KindSubTopic, unused.GetID(), UpdateLookupRequest{Topic: uintPtr(t2.GetID())}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.manager.Lookup().Update(ctx, tt.kind, tt.id, &tt.req, testActor)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Update() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Update() error = %v, want %v", err, tt.wantErr)
			}
			stored, err := env.manager.Lookup().GetByID(ctx, tt.kind, tt.id)
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			requested := tt.req.Topic
			if tt.kind == models.KindSubSubTopic {
				requested = tt.req.SubTopic
			}
			if models.FieldsOf(stored).ParentID == *requested {
				t.Errorf("%s %d was moved despite the conflict", tt.kind, tt.id)
			}
		})
	}
}

func TestLookupDelete_QuestionsSurvive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	topic := env.lookup(t, models.KindTopic, `{"name":"Mechanics"}`)
	sub := env.lookup(t, models.KindSubTopic, fmt.Sprintf(`{"name":"Kinematics","topic":%d}`, topic.GetID()))
	subsub := env.lookup(t, models.KindSubSubTopic, fmt.Sprintf(`{"name":"Projectiles","sub_topic":%d}`, sub.GetID()))

	body := fmt.Sprintf(`{"question_type":"NUMERICAL","question_text":"g?","correct_answer":9.8,"topic":%d,"sub_topic":%d,"sub_sub_topic":%d}`,
		topic.GetID(), sub.GetID(), subsub.GetID())
	created, err := env.manager.Question().Create(ctx, createRequest(t, body), testActor)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := env.manager.Lookup().Delete(ctx, models.KindTopic, topic.GetID(), testActor); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for _, l := range []models.Lookup{sub, subsub} {
		if _, err := env.manager.Lookup().GetByID(ctx, l.Kind(), l.GetID()); !errors.Is(err, ErrLookupNotFound) {
			t.Errorf("%s %d error = %v, want not found", l.Kind(), l.GetID(), err)
		}
	}

	got := env.encoded(t, created.ID)
	for _, field := range []string{"topic", "sub_topic", "sub_sub_topic"} {
		if got[field] != nil {
			t.Errorf("%s = %v, want null", field, got[field])
		}
	}
	if got["correct_answer"] != "9.8" {
		t.Errorf("correct_answer = %v", got["correct_answer"])
	}

	if err := env.manager.Lookup().Delete(ctx, models.KindTopic, topic.GetID(), testActor); !errors.Is(err, ErrLookupNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestLookupList_Paging(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.lookup(t, models.KindTargetGroup, fmt.Sprintf(`{"name":"Group %d"}`, i))
	}

	resp, err := env.manager.Lookup().List(context.Background(), models.KindTargetGroup, &ListLookupsRequest{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 5 || len(resp.Items) != 2 || resp.Items[0].Label() != "Group 2" {
		t.Errorf("page = %+v", resp)
	}
}

func uintPtr(v uint) *uint    { return &v }
func strPtr(s string) *string { return &s }
