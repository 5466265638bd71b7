// Package generator is the content-generation seam. The orchestrator only
// needs "template hint in, text out"; real generators live elsewhere.
package generator

import (
	"context"
	"fmt"
	"time"

	"postbot/internal/templates"
)

// Generator produces the text to post, optionally seeded by a template.
type Generator interface {
	Generate(ctx context.Context, tpl *templates.Template) (string, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, tpl *templates.Template) (string, error)

func (f Func) Generate(ctx context.Context, tpl *templates.Template) (string, error) {
	return f(ctx, tpl)
}

// Seeded is a trivial generator that stamps the template seed with the
// current date, keeping the seed as a literal prefix so the feedback
// selector can attribute the post back to its template.
type Seeded struct {
	Now func() time.Time
}

func (g Seeded) Generate(ctx context.Context, tpl *templates.Template) (string, error) {
	_ = ctx
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	if tpl == nil {
		return "", fmt.Errorf("generator: no template to seed from")
	}
	return fmt.Sprintf("%s (%s)", tpl.Content, now().Format("Jan 2")), nil
}
