package handlers

import (
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/jepicoco/galerie-sub002/internal/gallery"
)

// AdminGalleryHandler lists the scanned activities; rescanning happens on
// every request since the filesystem is the catalogue.
type AdminGalleryHandler struct {
	*AdminHandler
	Scanner *gallery.Scanner
}

func (h *AdminGalleryHandler) ListGalleries(w http.ResponseWriter, r *http.Request) {
	activities, err := h.Scanner.Scan()
	if err != nil {
		http.Error(w, "Error scanning galleries", http.StatusInternalServerError)
		return
	}

	tmpl := h.Templates.Get("admin_galleries.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, "admin-session")
	data := map[string]interface{}{
		"Activities": activities,
		"CsrfField":  csrf.TemplateField(r),
		"Flashes":    GetFlash(session),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}
