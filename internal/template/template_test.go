package template

import (
	"testing"

	"github.com/david0ql/helpdeskd/internal/store"
)

func TestRenderSubstitutesContactFields(t *testing.T) {
	contact := &store.Contact{Name: "Ana", Number: "5511999990000"}

	cases := []struct {
		tmpl string
		want string
	}{
		{"Bye {{name}}", "Bye Ana"},
		{"Hello {{name}} ({{number}})", "Hello Ana (5511999990000)"},
		{"No placeholders", "No placeholders"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Render(c.tmpl, contact); got != c.want {
			t.Errorf("Render(%q) = %q, want %q", c.tmpl, got, c.want)
		}
	}
}

func TestRenderNilContact(t *testing.T) {
	if got := Render("Bye {{name}}", nil); got != "Bye " {
		t.Errorf("Render with nil contact = %q, want %q", got, "Bye ")
	}
}

func TestRenderMalformedTemplateFallsBack(t *testing.T) {
	tmpl := "Bye {{name"
	if got := Render(tmpl, &store.Contact{Name: "Ana"}); got != tmpl {
		t.Errorf("Render(malformed) = %q, want raw template", got)
	}
}
