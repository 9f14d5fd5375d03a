// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dialogue turns one customer message into one reply.
//
// The Engine runs a fixed pipeline: escalation check, greeting check, then a
// scan of the tenant's knowledge domains in priority order. The first domain
// that references anything (a found record or an unknown identifier) answers.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianStorefront/services/assist/compose"
	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
	"github.com/AleutianAI/AleutianStorefront/services/assist/escalation"
	"github.com/AleutianAI/AleutianStorefront/services/assist/intent"
	"github.com/AleutianAI/AleutianStorefront/services/assist/knowledge"
	"github.com/AleutianAI/AleutianStorefront/services/assist/resolve"
	"github.com/AleutianAI/AleutianStorefront/services/assist/tenant"
	"github.com/AleutianAI/AleutianStorefront/services/llm"
)

var tracer = otel.Tracer("aleutian.assist.dialogue")

// Outcome labels how a reply was produced.
type Outcome string

const (
	OutcomeEscalated     Outcome = "escalated"
	OutcomeGreeted       Outcome = "greeted"
	OutcomeFound         Outcome = "found"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeList          Outcome = "list"
	OutcomeFallback      Outcome = "fallback"
	OutcomeNoInformation Outcome = "no_information"
	OutcomePanic         Outcome = "panic"
)

// Reply is the response contract of the engine. It has one field.
type Reply struct {
	Reply string `json:"reply"`
}

// Decision is a Reply plus how it was reached. Used by the CLI and tests.
type Decision struct {
	Reply     string
	Outcome   Outcome
	Tenant    string
	Domain    knowledge.Domain
	Intent    intent.Intent
	TicketID  string
	Generated bool
}

// Tenants resolves a selector to a tenant. Satisfied by *tenant.Registry
// and *tenant.Router.
type Tenants interface {
	Resolve(selector string) *tenant.Context
}

// Engine orchestrates one message through the dialogue pipeline.
//
// Thread Safety: Safe for concurrent use. The engine holds no mutable state;
// tenants are read through Tenants on every call.
type Engine struct {
	tenants    Tenants
	classifier *intent.Classifier
	escalation *intent.EscalationDetector
	greetings  *intent.GreetingDetector
	composer   *compose.Composer

	generator    llm.Generator
	sink         escalation.Sink
	excerptLimit int
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithGenerator phrases found-record replies with g. Nil disables generation.
func WithGenerator(g llm.Generator) Option {
	return func(e *Engine) { e.generator = g }
}

// WithSink receives escalation tickets. Without a sink tickets are only logged.
func WithSink(s escalation.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithExcerptLimit bounds the generator context in runes.
func WithExcerptLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.excerptLimit = n
		}
	}
}

// WithClock replaces time.Now for ticket timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine.
//
// Inputs:
//
//	tenants - Tenant resolution. Must not be nil.
//	rules - Dialogue rule tables.
//	composer - Reply rendering, built from the same rules.
//	opts - Optional collaborators.
//
// Outputs:
//
//	*Engine - Ready to handle messages.
//	error - Non-nil if a required collaborator is missing.
func New(tenants Tenants, rules *config.Rules, composer *compose.Composer, opts ...Option) (*Engine, error) {
	if tenants == nil {
		return nil, fmt.Errorf("dialogue: tenants must not be nil")
	}
	if rules == nil {
		return nil, fmt.Errorf("dialogue: rules must not be nil")
	}
	if composer == nil {
		return nil, fmt.Errorf("dialogue: composer must not be nil")
	}
	e := &Engine{
		tenants:      tenants,
		classifier:   intent.NewClassifier(rules),
		escalation:   intent.NewEscalationDetector(rules),
		greetings:    intent.NewGreetingDetector(rules),
		composer:     composer,
		excerptLimit: config.DefaultExcerptLimit,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Handle answers one message for the selected tenant.
//
// Description:
//
//	Total: every input yields a non-empty reply. An empty or unknown
//	tenant selector uses the default tenant.
//
// Inputs:
//
//	ctx - Used for tracing and the optional generator call only.
//	message - Raw customer text.
//	tenantSelector - Tenant name or alias.
//
// Outputs:
//
//	Reply - The reply text.
func (e *Engine) Handle(ctx context.Context, message, tenantSelector string) Reply {
	return Reply{Reply: e.Decide(ctx, message, tenantSelector).Reply}
}

// Decide runs the pipeline and reports how the reply was reached.
func (e *Engine) Decide(ctx context.Context, message, tenantSelector string) (d Decision) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "dialogue.Engine.Decide")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("dialogue: recovered from panic",
				slog.String("panic", fmt.Sprint(r)),
				slog.String("tenant", tenantSelector),
			)
			span.SetStatus(codes.Error, "panic")
			d = Decision{Reply: compose.SafeReply, Outcome: OutcomePanic, Tenant: d.Tenant}
		}
		repliesTotal.WithLabelValues(string(d.Outcome), string(d.Domain)).Inc()
		handleDuration.Observe(time.Since(start).Seconds())
		span.SetAttributes(
			attribute.String("assist.tenant", d.Tenant),
			attribute.String("assist.outcome", string(d.Outcome)),
			attribute.String("assist.domain", string(d.Domain)),
			attribute.Bool("assist.generated", d.Generated),
		)
	}()

	tc := e.tenants.Resolve(tenantSelector)
	d.Tenant = tc.Name

	if e.escalation.ShouldEscalate(message) {
		return e.escalate(message, tc, d)
	}

	if e.greetings.IsGreeting(message) {
		d.Outcome = OutcomeGreeted
		d.Reply = e.composer.Greeting(tc)
		return d
	}

	for _, ix := range tc.Indexes {
		res := resolve.Resolve(message, ix)
		if !res.Referenced() {
			continue
		}
		kind := res.Domain.Kind()
		d.Domain = res.Domain
		d.Intent = e.classifier.Classify(message, kind)
		if res.Outcome == resolve.NotFound {
			d.Outcome = OutcomeNotFound
			d.Reply = e.composer.Compose(res, d.Intent, tc)
			return d
		}
		d.Outcome = OutcomeFound
		return e.answer(ctx, message, res, tc, d)
	}

	// Nothing referenced. A catalog list question still has an answer.
	for _, ix := range tc.Indexes {
		if ix.Domain().Kind() != config.KindCatalog {
			continue
		}
		if e.classifier.Classify(message, config.KindCatalog) != intent.List {
			break
		}
		d.Domain = ix.Domain()
		d.Intent = intent.List
		d.Outcome = OutcomeList
		d.Reply = e.composer.List(ix)
		if d.Reply == e.composer.NoInformation() {
			d.Outcome = OutcomeNoInformation
		}
		return d
	}

	d.Outcome = OutcomeFallback
	d.Reply = e.composer.Fallback(tc)
	return d
}

// escalate creates a ticket and hands it to the sink without waiting.
func (e *Engine) escalate(message string, tc *tenant.Context, d Decision) Decision {
	t := escalation.NewTicket(tc.Name, message, e.now())
	if e.sink != nil {
		e.sink.Dispatch(t)
	} else {
		e.logger.Warn("dialogue: escalation without a ticket sink",
			slog.String("ticket_id", t.ID),
			slog.String("tenant", tc.Name),
		)
	}
	d.Outcome = OutcomeEscalated
	d.TicketID = t.ID
	d.Reply = e.composer.Escalated(t.ID)
	return d
}

// answer composes the reply for a found record, optionally through the
// generator. The generator sees the record excerpt and nothing else.
func (e *Engine) answer(ctx context.Context, message string, res resolve.Result, tc *tenant.Context, d Decision) Decision {
	deterministic := e.composer.Compose(res, d.Intent, tc)
	if e.generator == nil {
		d.Reply = deterministic
		return d
	}

	excerpt := e.composer.Excerpt(res, tc, e.excerptLimit)
	if excerpt == "" {
		generatorTotal.WithLabelValues("empty_excerpt").Inc()
		d.Outcome = OutcomeNoInformation
		d.Reply = e.composer.NoInformation()
		return d
	}

	out, err := e.generator.Generate(ctx, systemContext(tc, excerpt), message)
	out = strings.TrimSpace(out)
	if err != nil || out == "" {
		if err == nil {
			err = fmt.Errorf("empty reply")
		}
		generatorTotal.WithLabelValues("error").Inc()
		e.logger.Warn("dialogue: generator failed, using composed reply",
			slog.String("tenant", tc.Name),
			slog.String("domain", string(res.Domain)),
			slog.String("error", llm.SafeLogString(err.Error())),
		)
		d.Reply = deterministic
		return d
	}
	generatorTotal.WithLabelValues("ok").Inc()
	d.Generated = true
	d.Reply = out
	return d
}

func systemContext(tc *tenant.Context, excerpt string) string {
	var sb strings.Builder
	sb.WriteString("You are the customer assistant for ")
	sb.WriteString(tc.Brand)
	sb.WriteString(". Answer the customer's question using only the record below. ")
	sb.WriteString("If the answer is not in the record, say that you do not have that information.")
	if tc.Currency != "" {
		sb.WriteString(" Amounts are in ")
		sb.WriteString(tc.Currency)
		sb.WriteString(".")
	}
	sb.WriteString("\n\n")
	sb.WriteString(excerpt)
	return sb.String()
}
