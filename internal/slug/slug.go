// Package slug builds URL-safe identifiers from display names and addresses.
package slug

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is used when the candidate base has no usable characters.
const Fallback = "user"

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Make transliterates the non-empty parts into a lowercase kebab-case slug.
func Make(parts ...string) string {
	base := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			base = append(base, p)
		}
	}
	return strings.Join(words(fold(strings.Join(base, " "))), "-")
}

// Generate returns the slug for parts, appending -2, -3, ... until exists
// reports the candidate as free.
func Generate(ctx context.Context, exists ExistsFunc, parts ...string) (string, error) {
	orig := Make(parts...)
	if orig == "" {
		orig = Fallback
	}

	candidate := orig
	for n := 2; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = orig + "-" + strconv.Itoa(n)
	}
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// fold decomposes s and drops combining marks so "Zoë" becomes "Zoe".
func fold(s string) string {
	t := transform.Chain(norm.NFKD, stripMarks, norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// words splits s on anything that is not an ASCII letter or digit and
// returns the lowercased runs. Mixed case inside a run is kept together so
// checksummed addresses such as "0x5aAeb6" stay one word.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isAlnum(r)
	})
}

func isAlnum(r rune) bool { return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') }
