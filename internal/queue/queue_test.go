package queue

import (
	"errors"
	"testing"

	"github.com/carenest-next/internal/config"
	"github.com/carenest-next/internal/constants"
)

func TestSalaryNotificationTaskRoundTrip(t *testing.T) {
	task, err := NewSalaryNotificationTask(SalaryNotificationPayload{
		ServiceProviderID: 9,
		BatchID:           3,
		NetSalary:         "3404.25",
	})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskSalaryNotification {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	payload, err := ParseSalaryNotificationPayload(task.Payload())
	if err != nil {
		t.Fatalf("parse payload failed: %v", err)
	}
	if payload.ServiceProviderID != 9 || payload.NetSalary != "3404.25" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if got := salaryNotificationTaskID(payload); got != "salary-notify:3:9" {
		t.Fatalf("unexpected task id: %s", got)
	}
}

func TestParseSalaryNotificationPayloadRequiresProvider(t *testing.T) {
	if _, err := ParseSalaryNotificationPayload([]byte(`{"batch_id":1}`)); err == nil {
		t.Fatalf("expected error for missing provider id")
	}
}

func TestParseSalarySettlementRunPayloadDefaultsToSchedule(t *testing.T) {
	payload, err := ParseSalarySettlementRunPayload(nil)
	if err != nil {
		t.Fatalf("parse empty payload failed: %v", err)
	}
	if payload.Trigger != constants.SettlementTriggerSchedule || payload.TriggeredBy != constants.SettlementScheduleTriggeredBy {
		t.Fatalf("unexpected default payload: %+v", payload)
	}
}

func TestDisabledClientRejectsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("expected disabled client")
	}
	err = client.EnqueueSalaryNotification(SalaryNotificationPayload{ServiceProviderID: 1})
	if !errors.Is(err, ErrQueueDisabled) {
		t.Fatalf("expected ErrQueueDisabled, got %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected addr: %s", opt.Addr)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("unexpected concurrency: %d", cfg.Concurrency)
	}
	if cfg.Queues[CriticalQueue] != 1 {
		t.Fatalf("expected critical queue configured")
	}
}
