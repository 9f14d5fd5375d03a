// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compose

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
	"github.com/AleutianAI/AleutianStorefront/services/assist/intent"
	"github.com/AleutianAI/AleutianStorefront/services/assist/knowledge"
	"github.com/AleutianAI/AleutianStorefront/services/assist/resolve"
	"github.com/AleutianAI/AleutianStorefront/services/assist/tenant"
)

func rec(kv ...string) knowledge.Record {
	fields := make([]knowledge.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, knowledge.Field{Name: kv[i], Value: kv[i+1]})
	}
	return knowledge.NewRecord(fields)
}

// fixture builds the embedded tenants over small in-memory data sets.
func fixture(t *testing.T) (*Composer, *tenant.Router) {
	t.Helper()
	rules, err := config.GetRules()
	require.NoError(t, err)
	tenants, err := config.GetTenants()
	require.NoError(t, err)

	data := map[string]map[string][]knowledge.Record{
		"default": {
			"orders": {rec("OrderID", "JB3001", "ProductName", "Silk Saree", "OrderStatus", "Shipped",
				"DeliveryDate", "2024-12-20", "TotalAmount", "1500")},
			"products": {rec("ProductID", "P101", "ProductName", "Silk Saree", "Price", "1200",
				"Availability", "In stock", "Description", "Handwoven silk")},
			"regional_catalog": {
				rec("ProductName", "Velvet Gown", "Price", "4999", "Style", "Pair with gold heels"),
				rec("ProductName", "Santa Sweater", "Price", "999"),
			},
		},
		"paris": {
			"orders": {rec("OrderID", "PA2001", "CustomerName", "Amélie", "ProductName", "Cocktail Dress",
				"OrderStatus", "Delivered", "TotalAmountEUR", "89", "City", "Paris", "Country", "France")},
			"regional_catalog": {rec("ProductName", "Cocktail Dress", "PriceEUR", "89")},
		},
	}

	set := knowledge.Set{}
	for _, ts := range tenants.Tenants {
		for _, d := range ts.Domains {
			set[ts.Name] = append(set[ts.Name], knowledge.Build(d, data[ts.Name][d.Domain]))
		}
	}
	router, err := tenant.NewRouter(tenants, set)
	require.NoError(t, err)

	c, err := New(rules, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithListLimit(5))
	require.NoError(t, err)
	return c, router
}

func found(tc *tenant.Context, domain knowledge.Domain, text string) resolve.Result {
	return resolve.Resolve(text, tc.Index(domain))
}

func TestCompose_OrderIntents(t *testing.T) {
	c, router := fixture(t)
	tc := router.Resolve("default")
	res := found(tc, knowledge.DomainOrders, "JB3001")
	require.Equal(t, resolve.Found, res.Outcome)

	tests := []struct {
		intent intent.Intent
		want   []string
	}{
		{"status", []string{"JB3001", "Shipped"}},
		{"delivery", []string{"JB3001", "2024-12-20"}},
		{"amount", []string{"₹1500"}},
		{"item", []string{"Silk Saree"}},
		{intent.Full, []string{"Order ID: JB3001", "Status: Shipped", "Total: ₹1500"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			got := c.Compose(res, tt.intent, tc)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestCompose_MissingRoleFallsBackToFull(t *testing.T) {
	c, router := fixture(t)
	tc := router.Resolve("default")
	res := found(tc, knowledge.DomainOrders, "JB3001")

	// The default tenant records no customer names.
	got := c.Compose(res, "customer", tc)
	assert.Contains(t, got, "Here are the details for order JB3001")
	assert.Contains(t, got, "Status: Shipped")
}

func TestCompose_ParisSchema(t *testing.T) {
	c, router := fixture(t)
	tc := router.Resolve("paris")
	res := found(tc, knowledge.DomainOrders, "where is pa2001")
	require.Equal(t, resolve.Found, res.Outcome)

	assert.Contains(t, c.Compose(res, "amount", tc), "€89")
	assert.Contains(t, c.Compose(res, "customer", tc), "Amélie")
	assert.Contains(t, c.Compose(res, "location", tc), "Paris, France")

	cat := found(tc, knowledge.DomainRegionalCatalog, "price of Cocktail Dress")
	require.Equal(t, resolve.Found, cat.Outcome)
	got := c.Compose(cat, "price", tc)
	assert.Contains(t, got, "Cocktail Dress")
	assert.Contains(t, got, "€89")
}

func TestCompose_GuidanceMessagesDiffer(t *testing.T) {
	c, router := fixture(t)
	tc := router.Resolve("default")

	for _, domain := range []knowledge.Domain{knowledge.DomainOrders, knowledge.DomainProducts} {
		notFound := c.Compose(resolve.Result{Outcome: resolve.NotFound, Domain: domain, Token: "x9"}, intent.Full, tc)
		noRef := c.Compose(resolve.Result{Outcome: resolve.NoReference, Domain: domain}, intent.Full, tc)
		assert.NotEqual(t, notFound, noRef, string(domain))
		assert.NotEqual(t, SafeReply, notFound)
		assert.NotEqual(t, SafeReply, noRef)
	}

	notFound := c.Compose(resolve.Result{Outcome: resolve.NotFound, Domain: knowledge.DomainOrders, Token: "jb9999"}, "status", tc)
	assert.Contains(t, notFound, "JB9999")
}

func TestCompose_StyleRole(t *testing.T) {
	c, router := fixture(t)
	tc := router.Resolve("christmas")

	gown := found(tc, knowledge.DomainRegionalCatalog, "how to style the velvet gown")
	assert.Contains(t, c.Compose(gown, "style", tc), "Pair with gold heels")

	sweater := found(tc, knowledge.DomainRegionalCatalog, "santa sweater styling")
	assert.Contains(t, c.Compose(sweater, "style", tc), "Here is what I know about Santa Sweater")
}

func TestReplies(t *testing.T) {
	c, router := fixture(t)
	tc := router.Resolve("india")

	greeting := c.Greeting(tc)
	assert.Contains(t, greeting, "JB Fashions")
	for _, ex := range tc.Examples {
		assert.Contains(t, greeting, ex)
	}

	assert.Contains(t, c.Escalated("TKT-0A1B2C3D"), "TKT-0A1B2C3D")
	assert.NotEmpty(t, c.Fallback(tc))
	assert.NotEmpty(t, c.NoInformation())
}

func TestList(t *testing.T) {
	c, router := fixture(t)
	tc := router.Resolve("default")

	got := c.List(tc.Index(knowledge.DomainRegionalCatalog))
	assert.Contains(t, got, "Christmas collection")
	assert.Contains(t, got, "Velvet Gown")
	assert.Contains(t, got, "Santa Sweater")

	assert.Equal(t, c.NoInformation(), c.List(nil))
	assert.Equal(t, c.NoInformation(), c.List(router.Resolve("default").Index(knowledge.DomainOrders)))
}

func TestExcerpt(t *testing.T) {
	c, router := fixture(t)
	tc := router.Resolve("paris")
	res := found(tc, knowledge.DomainOrders, "PA2001")

	ex := c.Excerpt(res, tc, 0)
	assert.True(t, strings.HasPrefix(ex, "orders record:"))
	assert.Contains(t, ex, "Customer: Amélie")
	assert.NotContains(t, ex, "JB3001")

	short := c.Excerpt(res, tc, 10)
	assert.Equal(t, 10, len([]rune(short)))

	assert.Empty(t, c.Excerpt(resolve.Result{Outcome: resolve.NoReference}, tc, 0))
}

func TestCompose_TemplateErrorIsSafe(t *testing.T) {
	rules, err := config.GetRules()
	require.NoError(t, err)

	broken := *rules
	broken.Replies = map[string]string{}
	for k, v := range rules.Replies {
		broken.Replies[k] = v
	}
	broken.Replies[config.ReplyGreeting] = "{{.Brand.Missing}}"

	c, err := New(&broken, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	assert.Equal(t, SafeReply, c.Greeting(&tenant.Context{Brand: "x"}))
}

func TestNew_ParseError(t *testing.T) {
	rules, err := config.GetRules()
	require.NoError(t, err)

	broken := *rules
	broken.Replies = map[string]string{config.ReplyFallback: "{{.Unclosed"}
	_, err = New(&broken)
	assert.Error(t, err)
}
