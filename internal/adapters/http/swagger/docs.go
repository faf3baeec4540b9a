// Package swagger publishes the API reference: the embedded OpenAPI document
// and a ReDoc page that renders it.
package swagger

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
)

// OpenAPI is the embedded OpenAPI 3 document describing every API route.
//
//go:embed openapi.yaml
var OpenAPI []byte

// RedocURL is the ReDoc bundle the docs page loads.
const RedocURL = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"

// Routes served by DocsHandler.
const (
	DocsPath = "/api-docs"
	SpecPath = "/openapi.yaml"
)

const pageTemplate = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>modellab API reference</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="%s"></script>
    <script>Redoc.init(%q, { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`

// DocsHandler serves the reference page and the document it renders.
type DocsHandler struct {
	page []byte
	spec []byte
}

// NewDocsHandler renders the page once against the embedded document.
func NewDocsHandler() *DocsHandler {
	return &DocsHandler{
		page: []byte(fmt.Sprintf(pageTemplate, RedocURL, SpecPath)),
		spec: OpenAPI,
	}
}

// Register attaches DocsPath and SpecPath to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	h := NewDocsHandler()
	mux.HandleFunc(DocsPath, h.HandlePage)
	mux.HandleFunc(SpecPath, h.HandleSpec)
}

// HandlePage serves the ReDoc HTML.
func (h *DocsHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	serve(w, r, "text/html; charset=utf-8", h.page)
}

// HandleSpec serves the raw OpenAPI YAML.
func (h *DocsHandler) HandleSpec(w http.ResponseWriter, r *http.Request) {
	serve(w, r, "application/yaml; charset=utf-8", h.spec)
}

func serve(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(body)
}
