// Package site serves the embedded landing page.
package site

import (
	"context"
	_ "embed"
	"net/http"
)

//go:embed static/index.html
var indexPage []byte

// Register attaches the landing page to mux. It owns "/" so it also answers
// 404 for any path no other handler claims.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/", NewRootHandler().HandleRoot)
}

// RootHandler serves the landing page on exactly "/".
type RootHandler struct {
	page []byte
}

// NewRootHandler creates a handler over the embedded page.
func NewRootHandler() *RootHandler {
	return &RootHandler{page: indexPage}
}

// HandleRoot answers GET and HEAD on "/" with the landing page.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(h.page)
}
