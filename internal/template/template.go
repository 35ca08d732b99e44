// Package template renders channel message templates (greeting and
// farewell texts) against a contact's fields.
package template

import (
	"github.com/cbroglie/mustache"

	"github.com/david0ql/helpdeskd/internal/store"
)

// Render substitutes {{name}} / {{number}} placeholders in tmpl with
// the contact's fields. A malformed template falls back to the raw
// text; an unsendable farewell is worse than an unrendered one.
func Render(tmpl string, contact *store.Contact) string {
	ctx := map[string]string{}
	if contact != nil {
		ctx["name"] = contact.Name
		ctx["number"] = contact.Number
	}
	out, err := mustache.Render(tmpl, ctx)
	if err != nil {
		return tmpl
	}
	return out
}
