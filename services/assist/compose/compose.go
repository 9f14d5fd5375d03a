// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compose renders replies from the template tables in rules.yaml.
package compose

import (
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
	"github.com/AleutianAI/AleutianStorefront/services/assist/intent"
	"github.com/AleutianAI/AleutianStorefront/services/assist/knowledge"
	"github.com/AleutianAI/AleutianStorefront/services/assist/resolve"
	"github.com/AleutianAI/AleutianStorefront/services/assist/tenant"
)

// SafeReply is returned when a template fails to execute.
const SafeReply = "I am sorry, something went wrong while preparing your answer. Please try again."

var funcs = template.FuncMap{
	"upper": strings.ToUpper,
}

// Composer renders every reply the assistant sends.
//
// Description:
//
//	Templates are parsed once at construction. Record templates address
//	roles ("status", "amount") that each tenant maps to its own field
//	names, so tenants with different schemas share one template table.
//	Money roles are prefixed with the tenant currency.
//
// Thread Safety: Immutable after New; safe for concurrent use.
type Composer struct {
	templates map[string]map[string]*template.Template
	replies   map[string]*template.Template
	listLimit int
	logger    *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithListLimit caps the number of names in list replies. Zero means no cap.
func WithListLimit(n int) Option {
	return func(c *Composer) { c.listLimit = n }
}

// WithLogger sets the logger for template execution failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// New parses every template of rules.
//
// Outputs:
//
//	*Composer - Ready to render.
//	error - Non-nil when a template does not parse.
func New(rules *config.Rules, opts ...Option) (*Composer, error) {
	c := &Composer{
		templates: make(map[string]map[string]*template.Template, len(rules.Templates)),
		replies:   make(map[string]*template.Template, len(rules.Replies)),
		listLimit: config.DefaultListLimit,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	for domain, byKey := range rules.Templates {
		c.templates[domain] = make(map[string]*template.Template, len(byKey))
		for key, text := range byKey {
			name := domain + "." + key
			tmpl, err := template.New(name).Funcs(funcs).Parse(text)
			if err != nil {
				return nil, fmt.Errorf("compose: parsing template %s: %w", name, err)
			}
			c.templates[domain][key] = tmpl
		}
	}
	for key, text := range rules.Replies {
		tmpl, err := template.New(key).Funcs(funcs).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("compose: parsing reply %s: %w", key, err)
		}
		c.replies[key] = tmpl
	}
	return c, nil
}

// Compose renders the reply for a resolution result.
//
// Description:
//
//	Found renders the (domain, intent) template. When the record has no
//	value for the intent's role the full template is used instead, so a
//	tenant without customer names still gets a useful answer. NotFound and
//	NoReference render the domain's two distinct guidance messages.
//
// Inputs:
//
//	res - The resolution result. Its domain selects the template table.
//	in - The classified intent.
//	tc - The tenant the result belongs to.
//
// Outputs:
//
//	string - The reply. Never empty.
func (c *Composer) Compose(res resolve.Result, in intent.Intent, tc *tenant.Context) string {
	domain := string(res.Domain)
	view := c.view(res, tc)

	switch res.Outcome {
	case resolve.NotFound:
		return c.render(c.templates[domain][config.TemplateNotFound], view)
	case resolve.NoReference:
		return c.render(c.templates[domain][config.TemplateNoReference], view)
	}

	key := string(in)
	if _, ok := c.templates[domain][key]; !ok {
		key = string(intent.Full)
	}
	if key != string(intent.Full) && key != string(intent.List) && view.Role(key) == "" {
		key = string(intent.Full)
	}
	return c.render(c.templates[domain][key], view)
}

// Greeting renders the branded help message.
func (c *Composer) Greeting(tc *tenant.Context) string {
	return c.render(c.replies[config.ReplyGreeting], map[string]any{
		"Brand":    tc.Brand,
		"Examples": tc.Examples,
	})
}

// Escalated renders the hand-off reply. It carries the ticket id only.
func (c *Composer) Escalated(ticketID string) string {
	return c.render(c.replies[config.ReplyEscalated], map[string]any{
		"TicketID": ticketID,
	})
}

// Fallback renders the generic "ask about an order or a product" reply.
func (c *Composer) Fallback(tc *tenant.Context) string {
	return c.render(c.replies[config.ReplyFallback], map[string]any{
		"Brand": tc.Brand,
	})
}

// NoInformation renders the fixed reply for questions with no usable context.
func (c *Composer) NoInformation() string {
	return c.render(c.replies[config.ReplyNoInformation], nil)
}

// List renders the names of a catalog, capped by the list limit. An index
// without names gets the no-information reply.
func (c *Composer) List(ix *knowledge.Index) string {
	if ix == nil {
		return c.NoInformation()
	}
	names := ix.Names(c.listLimit)
	if len(names) == 0 {
		return c.NoInformation()
	}
	return c.render(c.replies[config.ReplyList], map[string]any{
		"Title": ix.Spec().Title,
		"Items": names,
	})
}

// Excerpt returns the knowledge a text generator may see for a found
// record: the domain title followed by the record's labelled fields,
// truncated to limit runes when limit > 0. Other records never appear.
func (c *Composer) Excerpt(res resolve.Result, tc *tenant.Context, limit int) string {
	if res.Outcome != resolve.Found {
		return ""
	}
	full := c.view(res, tc).Full()
	if full == "" {
		return ""
	}
	title := string(res.Domain)
	if ix := tc.Index(res.Domain); ix != nil {
		title = ix.Spec().Title
	}
	out := title + " record:\n" + full
	if limit > 0 {
		if r := []rune(out); len(r) > limit {
			out = string(r[:limit])
		}
	}
	return out
}

func (c *Composer) view(res resolve.Result, tc *tenant.Context) recordView {
	v := recordView{rec: res.Record, token: res.Token, currency: tc.Currency}
	if ix := tc.Index(res.Domain); ix != nil {
		v.spec = ix.Spec()
	}
	return v
}

func (c *Composer) render(tmpl *template.Template, data any) string {
	if tmpl == nil {
		c.logger.Error("compose: missing template")
		return SafeReply
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		c.logger.Error("compose: template execution failed",
			slog.String("template", tmpl.Name()),
			slog.String("error", err.Error()),
		)
		return SafeReply
	}
	return sb.String()
}
