// Package notifysvc delivers the engine's post-commit notifications.
package notifysvc

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/vince-duran/TPLearn-sub006/core"
)

// AddressResolver maps a user id to a deliverable email address.
type AddressResolver func(userID string) (mail.Address, error)

// StaticDomainResolver builds addresses as <userID>@<domain>.
// TODO: replace with a lookup against the student directory once it exposes
// an API; user ids are not guaranteed to be valid mailbox names.
func StaticDomainResolver(domain string) AddressResolver {
	return func(userID string) (mail.Address, error) {
		if userID == "" {
			return mail.Address{}, errors.New("empty user id")
		}
		return mail.Address{Address: userID + "@" + domain}, nil
	}
}

var subjects = map[string]string{
	core.NotifyObligationDecided:       "Payment update",
	core.NotifyEnrollmentStatusChanged: "Enrollment status update",
}

var templateNames = map[string]string{
	core.NotifyObligationDecided:       "obligation-decided",
	core.NotifyEnrollmentStatusChanged: "enrollment-status",
}

// EmailNotifier renders a notification into an email and hands it to the
// email service. Rendering and address resolution happen synchronously so a
// failure is reported to the caller; the actual delivery is asynchronous.
type EmailNotifier struct {
	mailSvc core.EmailService
	logger  core.Logger
	resolve AddressResolver
}

var _ core.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(mailSvc core.EmailService, logger core.Logger, resolve AddressResolver) *EmailNotifier {
	return &EmailNotifier{mailSvc: mailSvc, logger: logger, resolve: resolve}
}

func (n *EmailNotifier) Notify(_ context.Context, nt core.Notification) (bool, error) {
	tmpl, ok := templateNames[nt.Kind]
	if !ok {
		return false, errors.Errorf("unknown notification kind %q", nt.Kind)
	}
	addr, err := n.resolve(nt.UserID)
	if err != nil {
		return false, errors.Wrapf(err, "resolving address for %s", nt.UserID)
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{addr},
		Subject:      subjects[nt.Kind],
		TemplateName: tmpl,
		TemplateData: nt.Payload,
	}
	if err := msg.Render(); err != nil {
		return false, errors.Wrapf(err, "rendering %s notification", nt.Kind)
	}

	n.mailSvc.SendMessages(msg)
	n.logger.Debug(fmt.Sprintf("queued %s notification for %s", nt.Kind, nt.UserID))
	return true, nil
}
