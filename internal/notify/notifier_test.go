package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
	"github.com/ternarybob/strand/internal/services/events"
)

func successAggregate() models.RunAggregate {
	started := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	stopped := started.Add(2 * time.Hour)
	return models.NewRunAggregate("batch-42", []models.JobStatusSnapshot{
		{JobType: "mag", JobID: "1", State: models.RunStateCompleted, StartedAt: &started, StoppedAt: &stopped},
		{JobType: "metatdenovo", JobID: "2", State: models.RunStateCompleted},
	})
}

func TestSubject(t *testing.T) {
	if got := Subject(successAggregate()); got != "[BATCH-42] SUCCEEDED" {
		t.Errorf("Subject = %q", got)
	}

	failed := models.NewRunAggregate("batch-42", []models.JobStatusSnapshot{
		{JobType: "mag", JobID: "1", State: models.RunStateFailed},
	})
	if got := Subject(failed); got != "[BATCH-42] FAILED" {
		t.Errorf("Subject = %q", got)
	}
}

func TestSubjectCancelledIsFailure(t *testing.T) {
	agg := models.NewRunAggregate("r", []models.JobStatusSnapshot{
		{JobType: "mag", JobID: "1", State: models.RunStateCompleted},
		{JobType: "rnaseq", JobID: "2", State: models.RunStateCancelled},
	})
	if got := Subject(agg); got != "[R] FAILED" {
		t.Errorf("Subject = %q", got)
	}
}

func TestBody(t *testing.T) {
	body := Body(successAggregate())

	if !strings.Contains(body, "Run batch-42 finished with 2 job(s)") {
		t.Errorf("body missing heading:\n%s", body)
	}
	if !strings.Contains(body, "COMPLETED") {
		t.Errorf("body missing state:\n%s", body)
	}
	if !strings.Contains(body, "started=2026-01-15T09:00:00Z") {
		t.Errorf("body missing start time:\n%s", body)
	}
	if !strings.Contains(body, "stopped=2026-01-15T11:00:00Z") {
		t.Errorf("body missing stop time:\n%s", body)
	}

	// Jobs render sorted by job type
	magIdx := strings.Index(body, "mag")
	metaIdx := strings.Index(body, "metatdenovo")
	if magIdx < 0 || metaIdx < 0 || magIdx > metaIdx {
		t.Errorf("jobs not in sorted order:\n%s", body)
	}
}

func TestNotifyPublishesEvent(t *testing.T) {
	logger := arbor.NewLogger()
	bus := events.NewService(logger)
	defer bus.Close()

	received := make(chan interfaces.Event, 1)
	bus.Subscribe(interfaces.EventNotifySent, func(ctx context.Context, event interfaces.Event) error {
		received <- event
		return nil
	})

	n := NewNotifier(bus, "", 0, logger)
	if err := n.NotifyRunCompleted(context.Background(), successAggregate()); err != nil {
		t.Fatalf("NotifyRunCompleted failed: %v", err)
	}

	select {
	case event := <-received:
		payload := event.Payload.(map[string]interface{})
		if payload["subject"] != "[BATCH-42] SUCCEEDED" {
			t.Errorf("event subject = %v", payload["subject"])
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestNotifyWebhookDelivery(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
	}))
	defer server.Close()

	logger := arbor.NewLogger()
	n := NewNotifier(events.NewService(logger), server.URL, 0, logger)
	if err := n.NotifyRunCompleted(context.Background(), successAggregate()); err != nil {
		t.Fatalf("NotifyRunCompleted failed: %v", err)
	}

	if !strings.HasPrefix(gotBody, "[BATCH-42] SUCCEEDED") {
		t.Errorf("webhook body = %q", gotBody)
	}
}

func TestNotifyWebhookFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	logger := arbor.NewLogger()
	n := NewNotifier(events.NewService(logger), server.URL, 0, logger)
	if err := n.NotifyRunCompleted(context.Background(), successAggregate()); err == nil {
		t.Fatal("expected delivery error")
	}
}
