package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hackgods/autodetail-scheduling/internal/appointment"
	"github.com/hackgods/autodetail-scheduling/internal/observability/metrics"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

// Notifier sends customer facing email and SMS about appointments.
type Notifier struct {
	email    EmailSender
	sms      SMSSender
	business string
	loc      *time.Location
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

var _ appointment.Notifier = (*Notifier)(nil)

type Options struct {
	Business string
	Location *time.Location
	Metrics  *metrics.BookingMetrics
	Logger   *logging.Logger
}

func NewNotifier(email EmailSender, sms SMSSender, opts Options) *Notifier {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Business == "" {
		opts.Business = "EJ's Auto Detail"
	}
	return &Notifier{
		email:    email,
		sms:      sms,
		business: opts.Business,
		loc:      opts.Location,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// AppointmentConfirmed emails the confirmation and texts a short summary.
// Both channels are attempted; the joined error reports every failure.
func (n *Notifier) AppointmentConfirmed(ctx context.Context, a appointment.Appointment) error {
	d := n.data(a)
	html, err := render(confirmationHTML, d)
	if err != nil {
		return err
	}

	var errs []error
	if err := n.sendEmail(ctx, EmailMessage{
		To:      a.CustomerEmail,
		ToName:  a.CustomerName,
		Subject: fmt.Sprintf("Appointment Confirmation - %s", n.business),
		Body:    confirmationText(d),
		HTML:    html,
	}); err != nil {
		errs = append(errs, err)
	}
	if err := n.sendSMS(ctx, a.CustomerPhone, confirmationText(d)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AppointmentReminder texts the customer ahead of the appointment.
func (n *Notifier) AppointmentReminder(ctx context.Context, a appointment.Appointment) error {
	d := n.data(a)
	return n.sendSMS(ctx, a.CustomerPhone, reminderText(d, a.StartTime.In(n.loc), n.now()))
}

func (n *Notifier) AppointmentCancelled(ctx context.Context, a appointment.Appointment) error {
	d := n.data(a)
	html, err := render(cancellationHTML, d)
	if err != nil {
		return err
	}

	var errs []error
	if err := n.sendEmail(ctx, EmailMessage{
		To:      a.CustomerEmail,
		ToName:  a.CustomerName,
		Subject: fmt.Sprintf("Appointment Cancelled - %s", n.business),
		Body:    cancellationText(d),
		HTML:    html,
	}); err != nil {
		errs = append(errs, err)
	}
	if err := n.sendSMS(ctx, a.CustomerPhone, cancellationText(d)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SendTestSMS sends an arbitrary message, used to check the SMS setup.
func (n *Notifier) SendTestSMS(ctx context.Context, to, body string) error {
	return n.sendSMS(ctx, to, body)
}

func (n *Notifier) sendEmail(ctx context.Context, msg EmailMessage) error {
	if n.email == nil {
		return nil
	}
	err := n.email.Send(ctx, msg)
	n.metrics.ObserveNotification("email", err)
	if err != nil {
		n.logger.Error("notify: email failed", "error", err, "to", msg.To)
	}
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, to, body string) error {
	if n.sms == nil {
		return nil
	}
	err := n.sms.SendSMS(ctx, to, body)
	n.metrics.ObserveNotification("sms", err)
	if err != nil {
		n.logger.Error("notify: sms failed", "error", err, "to", to)
	}
	return err
}
