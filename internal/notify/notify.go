// Package notify sends submission status emails.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yangwenmai/kirbuk/internal/model"
)

// Message is one status email. Link, when set, points at the status page.
type Message struct {
	To      string
	Subject string
	Text    string
	Link    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Started announces that work on a submission has begun.
func Started(sub model.Submission, link string) Message {
	return Message{
		To:      sub.Email,
		Subject: "Your demo video is on its way",
		Text: fmt.Sprintf("We received your request for %s and started exploring it.\n\n"+
			"Submission: %s\nA finished video usually takes about ten minutes.", sub.ProductURL, sub.ID),
		Link: link,
	}
}

// Completed announces that a submission finished. Degraded stages still
// count as finished; the status page shows what was produced.
func Completed(sub model.Submission, link string) Message {
	return Message{
		To:      sub.Email,
		Subject: "Your demo video is ready",
		Text: fmt.Sprintf("The demo video for %s is ready.\n\n"+
			"Submission: %s", sub.ProductURL, sub.ID),
		Link: link,
	}
}

// Failed reports a submission that stopped at stage, with the underlying
// error text. A non-empty link means some artifacts were already produced
// and the email points at them.
func Failed(sub model.Submission, stage, link string, err error) Message {
	var lead string
	switch {
	case link != "":
		lead = fmt.Sprintf("Work on %s stopped during %s before the video was finished. "+
			"The status page has what was produced.", sub.ProductURL, stage)
	case stage == "explore":
		lead = fmt.Sprintf("We could not explore %s, so no video was made.", sub.ProductURL)
	default:
		lead = fmt.Sprintf("Work on %s stopped during %s, so no video was made.", sub.ProductURL, stage)
	}
	return Message{
		To:      sub.Email,
		Subject: "We could not create your demo video",
		Text:    fmt.Sprintf("%s\n\nSubmission: %s\nError: %v", lead, sub.ID, err),
		Link:    link,
	}
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("notification", "to", msg.To, "subject", msg.Subject, "link", msg.Link, "body", msg.Text)
	return nil
}
