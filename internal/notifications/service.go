package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rollcall/internal/absentee"
	"rollcall/internal/config"
	"rollcall/internal/store"
)

// Service defines the notification surface exposed to the pipeline and CLI.
type Service interface {
	NotifyRecognition(ctx context.Context, person *store.Person, at time.Time) error
	NotifyAbsentees(ctx context.Context, report absentee.Report) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service from configuration. Configured
// transports fan out; with none configured a noop implementation is
// returned. The recognition, absentees, and errors toggles suppress event
// classes without disabling the transports.
func NewService(cfg *config.Config) Service {
	var targets []Service
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		targets = append(targets, newNtfyService(topic, cfg.Notifications.RequestTimeout))
	}
	if broker := strings.TrimSpace(cfg.Notifications.MQTTBroker); broker != "" {
		targets = append(targets, newMQTTService(cfg))
	}
	if len(targets) == 0 {
		return noopService{}
	}

	var svc Service = multiService(targets)
	return &filterService{
		next:        svc,
		recognition: cfg.Notifications.Recognition,
		absentees:   cfg.Notifications.Absentees,
		errors:      cfg.Notifications.Errors,
	}
}

// Noop returns a service that silently drops every notification.
func Noop() Service {
	return noopService{}
}

// filterService applies the per-event-class configuration toggles.
type filterService struct {
	next        Service
	recognition bool
	absentees   bool
	errors      bool
}

func (f *filterService) NotifyRecognition(ctx context.Context, person *store.Person, at time.Time) error {
	if !f.recognition {
		return nil
	}
	return f.next.NotifyRecognition(ctx, person, at)
}

func (f *filterService) NotifyAbsentees(ctx context.Context, report absentee.Report) error {
	if !f.absentees {
		return nil
	}
	return f.next.NotifyAbsentees(ctx, report)
}

func (f *filterService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !f.errors {
		return nil
	}
	return f.next.NotifyError(ctx, err, contextLabel)
}

func (f *filterService) TestNotification(ctx context.Context) error {
	return f.next.TestNotification(ctx)
}

// multiService fans one event out to every configured transport, returning
// the first delivery error after attempting all of them.
type multiService []Service

func (m multiService) NotifyRecognition(ctx context.Context, person *store.Person, at time.Time) error {
	var first error
	for _, svc := range m {
		if err := svc.NotifyRecognition(ctx, person, at); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiService) NotifyAbsentees(ctx context.Context, report absentee.Report) error {
	var first error
	for _, svc := range m {
		if err := svc.NotifyAbsentees(ctx, report); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var first error
	for _, svc := range m {
		if derr := svc.NotifyError(ctx, err, contextLabel); derr != nil && first == nil {
			first = derr
		}
	}
	return first
}

func (m multiService) TestNotification(ctx context.Context) error {
	var first error
	for _, svc := range m {
		if err := svc.TestNotification(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopService struct{}

func (noopService) NotifyRecognition(context.Context, *store.Person, time.Time) error { return nil }
func (noopService) NotifyAbsentees(context.Context, absentee.Report) error            { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }

func summarizeAbsentees(report absentee.Report) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%d absent on %s", report.Total(), report.Day.Format("2006-01-02"))
	if len(report.Students) > 0 {
		names := make([]string, 0, len(report.Students))
		for _, p := range report.Students {
			names = append(names, p.Name)
		}
		fmt.Fprintf(&builder, "\nStudents: %s", strings.Join(names, ", "))
	}
	if len(report.Faculty) > 0 {
		names := make([]string, 0, len(report.Faculty))
		for _, p := range report.Faculty {
			names = append(names, p.Name)
		}
		fmt.Fprintf(&builder, "\nFaculty: %s", strings.Join(names, ", "))
	}
	return builder.String()
}
