package services

import (
	"fmt"
	"strings"

	"github.com/cppla/studyshare/models"
	"github.com/cppla/studyshare/utils"
)

// MailSender is the part of utils.Mailer the workflow needs.
type MailSender interface {
	Enabled() bool
	SendMail(to, subject, body string) error
}

// Notifier emails the tutor about new submissions and students about review results.
// Sending happens in the background and never fails the request that triggered it.
type Notifier struct {
	mailer     MailSender
	tutorEmail string
	async      bool
}

func NewNotifier(mailer MailSender, tutorEmail string) *Notifier {
	return &Notifier{mailer: mailer, tutorEmail: strings.TrimSpace(tutorEmail), async: true}
}

func (n *Notifier) submitted(s models.Submission) {
	if n == nil || n.tutorEmail == "" {
		return
	}
	body := fmt.Sprintf("%s <%s> submitted %q (%s, %d bytes).\n\nCategory: %s\nDescription: %s\n",
		s.StudentName, s.StudentEmail, s.OriginalName, s.MimeType, s.Size, s.Category, s.Description)
	n.send(n.tutorEmail, "New submission: "+s.OriginalName, body)
}

func (n *Notifier) approved(s models.Submission) {
	body := fmt.Sprintf("Hi %s,\n\nyour file %q was approved and is now available to everyone.\n", s.StudentName, s.OriginalName)
	n.send(s.StudentEmail, "Your submission was approved", body)
}

func (n *Notifier) rejected(s models.Submission) {
	body := fmt.Sprintf("Hi %s,\n\nyour file %q was not accepted.\nReason: %s\n", s.StudentName, s.OriginalName, s.RejectionReason)
	n.send(s.StudentEmail, "Your submission was not accepted", body)
}

func (n *Notifier) send(to, subject, body string) {
	if n == nil || n.mailer == nil || !n.mailer.Enabled() || to == "" {
		return
	}
	deliver := func() {
		if err := n.mailer.SendMail(to, subject, body); err != nil {
			utils.Sugar.Warnw("notification email failed", "to", to, "subject", subject, "error", err)
		}
	}
	if n.async {
		go deliver()
		return
	}
	deliver()
}
