package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

const (
	// PageTemplate renders the whole dashboard.
	PageTemplate = "dashboard.html"
	// TableTemplate renders only the orders table, for partial updates.
	TableTemplate = "orders_table.html"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded dashboard templates.
func Templates() (*template.Template, error) {
	t, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// RenderTable executes TableTemplate for page.
func RenderTable(t *template.Template, page Page) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, TableTemplate, page); err != nil {
		return "", fmt.Errorf("render table: %w", err)
	}
	return buf.String(), nil
}
