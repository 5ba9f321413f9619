package handler

import (
	"fmt"
	"net/http"
)

// PagesHandler serves the minimal page routes. UI rendering lives in the
// frontend assets; these routes only anchor the redirect-to-login behavior
// for unauthenticated page requests.
type PagesHandler struct{}

// NewPagesHandler creates a new PagesHandler.
func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

// Index handles GET /. It sits behind the page-auth middleware, so reaching
// it means the request carried a valid credential.
func (h *PagesHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!DOCTYPE html><title>stockdeck</title><p>dashboard")
}

// LoginPage handles GET /login.
func (h *PagesHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!DOCTYPE html><title>stockdeck login</title><p>sign in")
}
