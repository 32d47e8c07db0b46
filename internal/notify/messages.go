package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/hackgods/autodetail-scheduling/internal/appointment"
)

const whenLayout = "Monday, January 2, 2006 at 3:04 PM"

var confirmationHTML = template.Must(template.New("confirmation").Parse(`
<h2>Appointment Confirmation</h2>
<p>Dear {{.Name}},</p>
<p>Your appointment has been successfully scheduled at {{.Business}}.</p>

<h3>Appointment Details:</h3>
<ul>
  <li><strong>Service:</strong> {{.Service}}</li>
  <li><strong>Date &amp; Time:</strong> {{.When}}</li>
  <li><strong>Phone:</strong> {{.Phone}}</li>
</ul>

<p>If you need to reschedule or cancel your appointment, please contact us at least 24 hours in advance.</p>

<p>Thank you for choosing {{.Business}}!</p>

<p style="color: #666; font-size: 0.9em;">
  This is an automated message. Please do not reply to this email.
</p>
`))

var cancellationHTML = template.Must(template.New("cancellation").Parse(`
<h2>Appointment Cancelled</h2>
<p>Dear {{.Name}},</p>
<p>Your {{.Service}} appointment on {{.When}} at {{.Business}} has been cancelled.</p>
<p>To book a new time, visit our scheduling page or give us a call.</p>
`))

type messageData struct {
	Business string
	Name     string
	Service  string
	When     string
	Phone    string
}

func (n *Notifier) data(a appointment.Appointment) messageData {
	return messageData{
		Business: n.business,
		Name:     a.CustomerName,
		Service:  a.ServiceLabel(),
		When:     a.StartTime.In(n.loc).Format(whenLayout),
		Phone:    a.CustomerPhone,
	}
}

func render(t *template.Template, data messageData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func confirmationText(d messageData) string {
	return fmt.Sprintf("%s: your %s is confirmed for %s. Need to change it? Contact us at least 24 hours in advance.",
		d.Business, d.Service, d.When)
}

func reminderText(d messageData, start, now time.Time) string {
	return fmt.Sprintf("%s reminder: your %s is %s, %s. See you soon!",
		d.Business, d.Service, relativeDay(start, now), d.When)
}

func cancellationText(d messageData) string {
	return fmt.Sprintf("%s: your %s on %s has been cancelled.", d.Business, d.Service, d.When)
}

func relativeDay(start, now time.Time) string {
	sy, sm, sd := start.Date()
	ny, nm, nd := now.In(start.Location()).Date()
	switch {
	case sy == ny && sm == nm && sd == nd:
		return "today"
	case start.Sub(now) < 48*time.Hour:
		return "tomorrow"
	default:
		return "coming up"
	}
}
