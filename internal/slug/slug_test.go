package slug

import (
	"context"
	"errors"
	"testing"
)

func takenSet(slugs ...string) ExistsFunc {
	set := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		set[s] = true
	}
	return func(_ context.Context, s string) (bool, error) {
		return set[s], nil
	}
}

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{name: "display name", parts: []string{"Jane Doe"}, want: "jane-doe"},
		{name: "extra whitespace and punctuation", parts: []string{"  Jane   Doe!! "}, want: "jane-doe"},
		{name: "diacritics", parts: []string{"Zoë Łukasz Ångström"}, want: "zoe-ukasz-angstrom"},
		{name: "mixed case kept together", parts: []string{"McDonald"}, want: "mcdonald"},
		{name: "checksummed address", parts: []string{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"}, want: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
		{name: "digits", parts: []string{"agent007"}, want: "agent007"},
		{name: "email", parts: []string{"jane.doe@example.com"}, want: "jane-doe-example-com"},
		{name: "name and address", parts: []string{"Jane", "0xabc"}, want: "jane-0xabc"},
		{name: "empty parts skipped", parts: []string{"", "Jane", "  "}, want: "jane"},
		{name: "nothing usable", parts: []string{"!!!"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.parts...); got != tt.want {
				t.Fatalf("Make(%q) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}
}

func TestGenerateFree(t *testing.T) {
	got, err := Generate(context.Background(), takenSet(), "Jane Doe")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "jane-doe" {
		t.Fatalf("expected jane-doe, got %q", got)
	}
}

func TestGenerateDisambiguates(t *testing.T) {
	got, err := Generate(context.Background(), takenSet("jane-doe"), "Jane Doe")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "jane-doe-2" {
		t.Fatalf("expected jane-doe-2, got %q", got)
	}

	got, err = Generate(context.Background(), takenSet("jane-doe", "jane-doe-2", "jane-doe-3"), "Jane Doe")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "jane-doe-4" {
		t.Fatalf("expected jane-doe-4, got %q", got)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	exists := takenSet("jane-doe")
	first, _ := Generate(context.Background(), exists, "Jane Doe")
	second, _ := Generate(context.Background(), exists, "Jane Doe")
	if first != second {
		t.Fatalf("expected identical slugs, got %q and %q", first, second)
	}
}

func TestGenerateFallback(t *testing.T) {
	got, err := Generate(context.Background(), takenSet(Fallback), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "user-2" {
		t.Fatalf("expected user-2, got %q", got)
	}
}

func TestGenerateExistsError(t *testing.T) {
	boom := errors.New("db down")
	_, err := Generate(context.Background(), func(context.Context, string) (bool, error) {
		return false, boom
	}, "Jane")
	if !errors.Is(err, boom) {
		t.Fatalf("expected exists error, got %v", err)
	}
}

func TestGenerateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, takenSet(), "Jane")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
