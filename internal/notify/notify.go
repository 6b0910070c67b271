// Package notify sends the best-effort side effects of a signup.
package notify

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/saasapp/server/internal/email"
)

// SignupList is the mailing list every new account is registered on.
const SignupList = "signups"

// ListRegistrar adds an address to a named mailing list.
type ListRegistrar interface {
	AddToList(ctx context.Context, email, listName string) error
}

// Outcome reports what failed. Callers are free to discard it; failures
// have already been logged.
type Outcome struct {
	EmailErr error
	ListErr  error
}

func (o Outcome) OK() bool { return o.EmailErr == nil && o.ListErr == nil }

type Dispatcher struct {
	mailer email.Sender
	lists  ListRegistrar
	from   string
}

func NewDispatcher(mailer email.Sender, lists ListRegistrar, from string) *Dispatcher {
	return &Dispatcher{mailer: mailer, lists: lists, from: from}
}

// NotifySignup sends the welcome message to `to` and registers it on the
// signups list. Both run concurrently and neither failure stops the other.
func (d *Dispatcher) NotifySignup(ctx context.Context, to string, msg email.Message) Outcome {
	var (
		out Outcome
		g   errgroup.Group
	)
	g.Go(func() error {
		out.EmailErr = d.SendWelcomeEmail(ctx, to, msg.Subject, msg.Body)
		if out.EmailErr != nil {
			log.Printf("notify: welcome email failed to=%s err=%v", to, out.EmailErr)
		}
		return nil
	})
	g.Go(func() error {
		out.ListErr = d.RegisterSignup(ctx, to, SignupList)
		if out.ListErr != nil {
			log.Printf("notify: mailing list registration failed email=%s list=%s err=%v", to, SignupList, out.ListErr)
		}
		return nil
	})
	_ = g.Wait()
	return out
}

func (d *Dispatcher) SendWelcomeEmail(ctx context.Context, to, subject, body string) (err error) {
	defer recoverInto(&err)
	return d.mailer.Send(ctx, email.Email{
		From:    d.from,
		To:      []string{to},
		Subject: subject,
		Body:    body,
	})
}

func (d *Dispatcher) RegisterSignup(ctx context.Context, address, listName string) (err error) {
	defer recoverInto(&err)
	return d.lists.AddToList(ctx, address, listName)
}

// recoverInto converts a collaborator panic into an error.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}
