package auth

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/saasapp/server/internal/email"
	"github.com/saasapp/server/internal/notify"
	"github.com/saasapp/server/internal/user"
)

type countingNotifier struct {
	sent []string
}

func (n *countingNotifier) NotifySignup(_ context.Context, to string, _ email.Message) notify.Outcome {
	n.sent = append(n.sent, to)
	return notify.Outcome{}
}

func newTestUsers() (*user.Manager, *user.MemoryStore, *countingNotifier) {
	store := user.NewMemoryStore()
	n := &countingNotifier{}
	return user.NewManager(store, email.NewStaticTemplates(email.Defaults), n), store, n
}

// outbox records mail instead of sending it.
type outbox struct {
	mu   sync.Mutex
	sent []email.Email
	err  error
}

func (o *outbox) Send(_ context.Context, e email.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, e)
	return nil
}

var linkToken = regexp.MustCompile(`token=([0-9a-f]+)`)

// lastToken extracts the token from the most recent magic link mail.
func (o *outbox) lastToken(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		t.Fatal("expected a magic link mail")
	}
	m := linkToken.FindStringSubmatch(o.sent[len(o.sent)-1].Body)
	if m == nil {
		t.Fatalf("no token in %q", o.sent[len(o.sent)-1].Body)
	}
	return m[1]
}

func newTestMagicLinks(mail *outbox) *MagicLinks {
	return NewMagicLinks(
		NewMemoryMagicLinkStore(),
		email.NewStaticTemplates(email.Defaults),
		mail,
		"Kelly <kelly@example.com>",
		"https://app.example.com/login/verify",
		15*time.Minute,
	)
}
