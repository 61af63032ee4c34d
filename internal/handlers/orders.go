package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/jepicoco/galerie-sub002/internal/gallery"
	"github.com/jepicoco/galerie-sub002/internal/mailer"
	"github.com/jepicoco/galerie-sub002/internal/models"
	"github.com/jepicoco/galerie-sub002/internal/store"
)

type OrderHandler struct {
	Store        *store.Store
	Scanner      *gallery.Scanner
	Templates    *TemplateCache
	SessionStore *sessions.CookieStore
	Mailer       mailer.Mailer
	BaseURL      string
	PhotoPrice   float64
	USBPrice     float64
}

func (h *OrderHandler) statusLink(token string) string {
	return h.BaseURL + "/order/status/" + token
}

// OrderForm shows the cart form for one activity.
func (h *OrderHandler) OrderForm(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("activity")
	activity, err := h.Scanner.ScanActivity(key)
	if err != nil {
		http.Error(w, "Gallery not found", http.StatusNotFound)
		return
	}

	tmpl := h.Templates.Get("order.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, "order-session")
	data := map[string]interface{}{
		"Activity":   activity,
		"PhotoPrice": h.PhotoPrice,
		"USBPrice":   h.USBPrice,
		"CsrfField":  csrf.TemplateField(r),
		"Flashes":    GetFlash(session),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

// SubmitOrder creates the order in status temp and mails the magic link.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, "order-session")
	defer session.Save(r, w)

	if err := r.ParseForm(); err != nil {
		session.AddFlash(FlashMessage{Type: "error", Message: "Invalid form data."})
		http.Redirect(w, r, r.Referer(), http.StatusSeeOther)
		return
	}

	activityKey := r.FormValue("activity")
	name := r.FormValue("name")
	email := r.FormValue("email")
	phone := r.FormValue("phone")

	// Validation
	formErrors := make(map[string]string)
	if name == "" {
		formErrors["name"] = "Your name is required."
	}
	if email == "" {
		formErrors["email"] = "Email address is required."
	} else if !isValidEmail(email) {
		formErrors["email"] = "Please enter a valid email address."
	}

	var items []models.LineItem
	for _, fileName := range r.Form["photos"] {
		qty := 1
		if q, err := strconv.Atoi(r.FormValue("qty_" + fileName)); err == nil && q > 0 {
			qty = q
		}
		items = append(items, models.LineItem{
			ActivityKey: activityKey,
			ItemType:    models.ItemTypePhoto,
			FileName:    fileName,
			UnitPrice:   h.PhotoPrice,
			Quantity:    qty,
		})
	}
	if q, err := strconv.Atoi(r.FormValue("usb_qty")); err == nil && q > 0 {
		items = append(items, models.LineItem{
			ActivityKey: activityKey,
			ItemType:    models.ItemTypeUSB,
			FileName:    "usb-" + activityKey,
			UnitPrice:   h.USBPrice,
			Quantity:    q,
		})
	}
	if len(items) == 0 {
		formErrors["items"] = "Select at least one photo or USB key."
	}

	if len(formErrors) > 0 {
		for _, msg := range formErrors {
			session.AddFlash(FlashMessage{Type: "error", Message: msg})
		}
		http.Redirect(w, r, r.Referer(), http.StatusSeeOther)
		return
	}

	order := &models.Order{
		Customer:  models.Customer{Name: name, Email: email, Phone: phone},
		LineItems: items,
	}
	if err := h.Store.Create(order); err != nil {
		slog.Error("Failed to create order", "error", err)
		session.AddFlash(FlashMessage{Type: "error", Message: "Failed to place order. Please try again."})
		http.Redirect(w, r, r.Referer(), http.StatusSeeOther)
		return
	}

	if err := h.Mailer.SendOrderConfirmation(order, h.statusLink(order.MagicToken)); err != nil {
		slog.Warn("Order confirmation mail failed", "reference", order.Reference, "error", err)
	}

	session.AddFlash(FlashMessage{Type: "success", Message: "Order placed! Confirm it on the next page."})
	http.Redirect(w, r, "/order/status/"+order.MagicToken, http.StatusSeeOther)
}

// ViewOrderStatus shows one order to its customer (magic link).
func (h *OrderHandler) ViewOrderStatus(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	order, err := h.Store.GetByToken(token)
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	tmpl := h.Templates.Get("order_status.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, "order-session")
	data := map[string]interface{}{
		"Order":     order,
		"Total":     order.TotalAmount(),
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

// ConfirmOrder is the checkout confirmation: temp -> validated, which also
// enqueues the order for preparation.
func (h *OrderHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionByToken(w, r, models.StatusValidated, "Order confirmed!")
}

// CancelOrder cancels an order from temp or validated; the store rejects
// anything later in the lifecycle.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionByToken(w, r, models.StatusCancelled, "Order cancelled.")
}

func (h *OrderHandler) transitionByToken(w http.ResponseWriter, r *http.Request, next models.Status, successMsg string) {
	session, _ := h.SessionStore.Get(r, "order-session")
	defer session.Save(r, w)

	token := r.FormValue("token")
	order, err := h.Store.GetByToken(token)
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	if _, err := h.Store.AdvanceStatus(order.Reference, next); err != nil {
		msg := "Could not update the order."
		if errors.Is(err, store.ErrInvalidTransition) {
			msg = "This order can no longer be changed. Please contact us."
		}
		slog.Warn("Customer transition rejected", "reference", order.Reference, "to", next, "error", err)
		session.AddFlash(FlashMessage{Type: "error", Message: msg})
		http.Redirect(w, r, "/order/status/"+token, http.StatusSeeOther)
		return
	}

	session.AddFlash(FlashMessage{Type: "success", Message: successMsg})
	http.Redirect(w, r, "/order/status/"+token, http.StatusSeeOther)
}

// RequestStatusLink shows the "find my orders" form.
func (h *OrderHandler) RequestStatusLink(w http.ResponseWriter, r *http.Request) {
	tmpl := h.Templates.Get("status_request.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, "order-session")
	data := map[string]interface{}{
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

// SendStatusLink mails the magic links for every order of an email address.
// The response is the same whether or not orders exist, to avoid leaking
// which addresses have ordered.
func (h *OrderHandler) SendStatusLink(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, "order-session")
	defer session.Save(r, w)

	email := r.FormValue("email")
	if !isValidEmail(email) {
		session.AddFlash(FlashMessage{Type: "error", Message: "Please enter a valid email address."})
		http.Redirect(w, r, "/status-request", http.StatusSeeOther)
		return
	}

	orders, err := h.Store.GetByEmail(email)
	if err != nil {
		slog.Error("Failed to look up orders by email", "error", err)
	}
	if len(orders) > 0 {
		if err := h.Mailer.SendStatusLinks(email, orders, func(o models.Order) string {
			return h.statusLink(o.MagicToken)
		}); err != nil {
			slog.Warn("Status link mail failed", "error", err)
		}
	}

	session.AddFlash(FlashMessage{Type: "success", Message: "If orders exist for this address, an email is on its way."})
	http.Redirect(w, r, "/status-request", http.StatusSeeOther)
}

// Basic email validation regex
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
