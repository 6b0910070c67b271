package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/template"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Template is a stored email template. Subject is a text/template source and
// Message an html/template source, so variables in the body are escaped.
type Template struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"uniqueIndex;not null"`
	Subject string `gorm:"not null"`
	Message string `gorm:"type:text;not null"`
}

func (Template) TableName() string { return "email_templates" }

// Message is a rendered template.
type Message struct {
	Subject string
	Body    string
}

// Defaults are inserted by Seed when missing.
var Defaults = []Template{
	{
		Name:    "welcome",
		Subject: "Welcome to SaaS by Async",
		Message: `<p>{{.userName}},</p>
<p>Thanks for signing up!</p>
<p>If you have any questions, reply to this email.</p>
<p>Kelly & Timur, Team Async</p>`,
	},
	{
		Name:    "magic-link",
		Subject: "Your sign-in link",
		Message: `<p>Click the link below to sign in. It expires shortly and can be used once.</p>
<p><a href="{{.link}}">Sign in</a></p>
<p>If you did not ask for this email, you can ignore it.</p>`,
	},
}

// Render executes the template with vars.
func (t Template) Render(vars map[string]string) (Message, error) {
	name := t.Name + ".subject"
	subject, err := template.New(name).Option("missingkey=zero").Parse(t.Subject)
	if err != nil {
		return Message{}, fmt.Errorf("parse template %s: %w", name, err)
	}
	subjectOut, err := execute(name, subject, vars)
	if err != nil {
		return Message{}, err
	}

	name = t.Name + ".message"
	body, err := htmltemplate.New(name).Option("missingkey=zero").Parse(t.Message)
	if err != nil {
		return Message{}, fmt.Errorf("parse template %s: %w", name, err)
	}
	bodyOut, err := execute(name, body, vars)
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: subjectOut, Body: bodyOut}, nil
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func execute(name string, tmpl executor, vars map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Lookup renders the named template. A missing template yields nil, nil.
func (r *TemplateRepository) Lookup(ctx context.Context, name string, vars map[string]string) (*Message, error) {
	var t Template
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template %s: %w", name, err)
	}
	msg, err := t.Render(vars)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Seed inserts templates whose name is not stored yet.
func (r *TemplateRepository) Seed(ctx context.Context, templates []Template) error {
	for _, t := range templates {
		t.ID = 0
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			Create(&t).Error
		if err != nil {
			return fmt.Errorf("seed template %s: %w", t.Name, err)
		}
	}
	return nil
}

// StaticTemplates serves templates from memory.
type StaticTemplates map[string]Template

func NewStaticTemplates(templates []Template) StaticTemplates {
	out := make(StaticTemplates, len(templates))
	for _, t := range templates {
		out[t.Name] = t
	}
	return out
}

func (s StaticTemplates) Lookup(_ context.Context, name string, vars map[string]string) (*Message, error) {
	t, ok := s[name]
	if !ok {
		return nil, nil
	}
	msg, err := t.Render(vars)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
