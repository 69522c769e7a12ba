// Package i18n renders localized error messages from the errors namespace of
// the message catalog.
package i18n

import (
	"bytes"
	"strings"
	"sync"
	"text/template"

	i18ncatalog "github.com/louisbranch/throne-of-dust/internal/platform/i18n/catalog"
)

// Code is an error code string. The errors package imports this one, so the
// type cannot be shared.
type Code = string

// Catalog holds the compiled error templates of one locale.
type Catalog struct {
	locale    string
	templates map[Code]*template.Template
	// raw keeps templates that failed to parse; they render verbatim.
	raw map[Code]string
}

// catalogs caches one Catalog per resolved locale.
var catalogs sync.Map

// GetCatalog returns the catalog that best serves locale, falling back to
// the base locale.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" {
		requested = i18ncatalog.BaseLocale
	}
	if c, ok := catalogs.Load(requested); ok {
		return c.(*Catalog)
	}
	resolved, messages := i18ncatalog.Default().NamespaceMessagesWithFallback(requested, "errors")
	c, _ := catalogs.LoadOrStore(resolved, NewCatalog(resolved, messages))
	if resolved != requested {
		catalogs.Store(requested, c)
	}
	return c.(*Catalog)
}

// NewCatalog compiles messages for locale.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	c := &Catalog{
		locale:    locale,
		templates: make(map[Code]*template.Template, len(messages)),
		raw:       map[Code]string{},
	}
	for code, msg := range messages {
		t, err := template.New(code).Option("missingkey=zero").Parse(msg)
		if err != nil {
			c.raw[code] = msg
			continue
		}
		c.templates[code] = t
	}
	return c
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message for code with metadata. Unknown codes render as
// the code itself.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	t, ok := c.templates[code]
	if !ok {
		if msg, ok := c.raw[code]; ok {
			return msg
		}
		return code
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return code
	}
	return buf.String()
}
