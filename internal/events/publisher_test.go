package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatermillPublisher_Publish(t *testing.T) {
	logger := testLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "catalog")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	publisher := NewWatermillPublisher(pubSub, "catalog", logger)
	event := NewEvent(QuestionCreated, "user-1", map[string]interface{}{"question_id": 7})
	if err := publisher.Publish(ctx, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if got := msg.Metadata.Get(metadataEventType); got != string(QuestionCreated) {
			t.Errorf("event_type metadata = %q", got)
		}
		decoded, err := DecodeMessage(msg)
		if err != nil {
			t.Fatalf("DecodeMessage() error = %v", err)
		}
		if decoded.ID != event.ID || decoded.Type != QuestionCreated || decoded.ActorID != "user-1" {
			t.Errorf("decoded event = %+v", decoded)
		}
		if decoded.Payload["question_id"] != float64(7) {
			t.Errorf("payload = %v", decoded.Payload)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the event")
	}
}

func TestNewPublisher_WithoutBrokersUsesGoChannel(t *testing.T) {
	publisher, err := NewPublisher(Config{Topic: "catalog"}, testLogger())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	defer publisher.Close()

	if _, ok := publisher.publisher.(*gochannel.GoChannel); !ok {
		t.Errorf("publisher = %T, want *gochannel.GoChannel", publisher.publisher)
	}
	// No subscriber: the message is dropped, not an error
	if err := publisher.Publish(context.Background(), NewEvent(LookupDeleted, "", nil)); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	_ = mock.Publish(ctx, NewEvent(QuestionCreated, "a", nil))
	_ = mock.Publish(ctx, NewEvent(QuestionUpdated, "a", nil))
	_ = mock.Publish(ctx, NewEvent(QuestionCreated, "b", nil))

	if got := len(mock.GetPublishedEvents()); got != 3 {
		t.Fatalf("published %d events, want 3", got)
	}
	if got := len(mock.EventsOfType(QuestionCreated)); got != 2 {
		t.Errorf("created events = %d, want 2", got)
	}

	mock.Err = errors.New("broker down")
	if err := mock.Publish(ctx, NewEvent(QuestionDeleted, "a", nil)); err == nil {
		t.Error("expected the configured error")
	}

	mock.Reset()
	if len(mock.GetPublishedEvents()) != 0 {
		t.Error("Reset() should drop recorded events")
	}
}
