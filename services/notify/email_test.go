package notifysvc_test

import (
	"context"
	"strings"
	"testing"

	"github.com/vince-duran/TPLearn-sub006/core"
	emailsvc "github.com/vince-duran/TPLearn-sub006/services/email"
	notifysvc "github.com/vince-duran/TPLearn-sub006/services/notify"
	testutil "github.com/vince-duran/TPLearn-sub006/tests"
)

func TestEmailNotifier_Notify(t *testing.T) {
	conf := &core.Config{
		TestMode:        true,
		AppName:         "TPLearn",
		FrontendBaseURL: "http://localhost:8080",
	}
	logger := testutil.NewLogger(t)
	core.ParseEmailTemplates(conf, logger)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	notifier := notifysvc.NewEmailNotifier(mailSvc, logger, notifysvc.StaticDomainResolver("tplearn.ph"))
	ctx := context.Background()

	t.Run("obligation decided", func(t *testing.T) {
		emailsvc.ResetSentMessages()

		sent, err := notifier.Notify(ctx, core.Notification{
			UserID: "std1",
			Kind:   core.NotifyObligationDecided,
			Payload: map[string]interface{}{
				"amount":             34,
				"decision":           "validated",
				"installment_number": 1,
				"total_installments": 3,
				"reference_number":   "GC-12345678",
			},
		})
		if err != nil {
			t.Fatalf("Notify() failed: %v", err)
		}
		if !sent {
			t.Fatal("Notify() sent = false, want true")
		}

		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("len(SentMessages) = %d, want 1", len(emailsvc.SentMessages))
		}
		msg := emailsvc.SentMessages[0]
		if got := msg.To[0].Address; got != "std1@tplearn.ph" {
			t.Errorf("To = %s, want std1@tplearn.ph", got)
		}
		if msg.Subject != "Payment update" {
			t.Errorf("Subject = %q, want %q", msg.Subject, "Payment update")
		}
		for _, want := range []string{"PHP 34", "installment 1 of 3", "validated", "GC-12345678"} {
			if !strings.Contains(msg.TextContent, want) {
				t.Errorf("TextContent missing %q:\n%s", want, msg.TextContent)
			}
		}
		if !strings.Contains(msg.HTMLContent, "http://localhost:8080") {
			t.Error("HTMLContent missing the frontend link")
		}
	})

	t.Run("enrollment paused", func(t *testing.T) {
		emailsvc.ResetSentMessages()

		sent, err := notifier.Notify(ctx, core.Notification{
			UserID: "std1",
			Kind:   core.NotifyEnrollmentStatusChanged,
			Payload: map[string]interface{}{
				"enrollment_id": "enr1",
				"status":        "paused",
			},
		})
		if err != nil || !sent {
			t.Fatalf("Notify() = (%v, %v), want (true, nil)", sent, err)
		}

		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("len(SentMessages) = %d, want 1", len(emailsvc.SentMessages))
		}
		msg := emailsvc.SentMessages[0]
		if !strings.Contains(msg.TextContent, "paused") {
			t.Errorf("TextContent missing status:\n%s", msg.TextContent)
		}
		if !strings.Contains(msg.TextContent, "Settle the outstanding payment") {
			t.Errorf("TextContent missing the overdue hint:\n%s", msg.TextContent)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		sent, err := notifier.Notify(ctx, core.Notification{UserID: "std1", Kind: "telepathy"})
		if err == nil || sent {
			t.Errorf("Notify() = (%v, %v), want an error", sent, err)
		}
	})

	t.Run("unresolvable recipient", func(t *testing.T) {
		sent, err := notifier.Notify(ctx, core.Notification{Kind: core.NotifyObligationDecided})
		if err == nil || sent {
			t.Errorf("Notify() = (%v, %v), want an error", sent, err)
		}
	})
}
