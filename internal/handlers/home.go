package handlers

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/jepicoco/galerie-sub002/internal/appdb"
	"github.com/jepicoco/galerie-sub002/internal/gallery"
)

type HomeHandler struct {
	Scanner      *gallery.Scanner
	AppDB        *appdb.DB
	Templates    *TemplateCache
	SessionStore *sessions.CookieStore
}

// Index lists every activity gallery.
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	activities, err := h.Scanner.Scan()
	if err != nil {
		http.Error(w, "Error loading galleries", http.StatusInternalServerError)
		return
	}

	tmpl := h.Templates.Get("index.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, "order-session")
	data := map[string]interface{}{
		"Activities": activities,
		"Flashes":    GetFlash(session),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

// Gallery shows one activity's photos and logs the consultation.
func (h *HomeHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("activity")
	activity, err := h.Scanner.ScanActivity(key)
	if err != nil {
		http.Error(w, "Gallery not found", http.StatusNotFound)
		return
	}

	h.AppDB.RecordConsultation(activity.Key)

	tmpl := h.Templates.Get("gallery.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, "order-session")
	data := map[string]interface{}{
		"Activity": activity,
		"Flashes":  GetFlash(session),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}
