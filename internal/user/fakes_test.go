package user

import (
	"context"

	"github.com/saasapp/server/internal/email"
	"github.com/saasapp/server/internal/notify"
)

type fakeTemplates struct {
	missing bool
	err     error
	vars    []map[string]string
}

func (f *fakeTemplates) Lookup(_ context.Context, name string, vars map[string]string) (*email.Message, error) {
	f.vars = append(f.vars, vars)
	if f.err != nil {
		return nil, f.err
	}
	if f.missing {
		return nil, nil
	}
	return &email.Message{Subject: "Welcome", Body: "hi " + vars["userName"]}, nil
}

type fakeNotifier struct {
	calls   []string
	outcome notify.Outcome
}

func (f *fakeNotifier) NotifySignup(_ context.Context, to string, _ email.Message) notify.Outcome {
	f.calls = append(f.calls, to)
	return f.outcome
}
