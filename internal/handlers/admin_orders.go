package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/csrf"

	"github.com/jepicoco/galerie-sub002/internal/models"
	"github.com/jepicoco/galerie-sub002/internal/store"
)

// ListOrders shows the live table through one of the named filters.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := store.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		http.Error(w, "Unknown filter", http.StatusBadRequest)
		return
	}

	orders, err := h.Store.Load(filter)
	if err != nil {
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}

	tmpl := h.Templates.Get("admin_orders.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	session, _ := h.SessionStore.Get(r, "admin-session")
	data := map[string]interface{}{
		"Orders":    orders,
		"Stats":     store.ComputeStatistics(orders),
		"Filter":    string(filter),
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

// OrderDetail shows one order with its line items.
func (h *AdminHandler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	reference := r.PathValue("reference")
	order, err := h.Store.Get(reference)
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	tmpl := h.Templates.Get("admin_order_detail.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, "admin-session")
	data := map[string]interface{}{
		"Order":     order,
		"Total":     order.TotalAmount(),
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

// UpdateOrderStatus advances one order along the lifecycle.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	reference := r.FormValue("reference")
	next := models.Status(r.FormValue("status"))

	session, _ := h.SessionStore.Get(r, "admin-session")
	defer session.Save(r, w)

	if _, err := h.Store.AdvanceStatus(reference, next); err != nil {
		session.AddFlash(FlashMessage{Type: "error", Message: transitionErrorMessage(err, reference)})
		http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
		return
	}

	session.AddFlash(FlashMessage{Type: "success", Message: "Order " + reference + " updated!"})
	http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
}

// RecordPayment attaches a payment to an order. Advancing to paid stays a
// separate action, as on paper.
func (h *AdminHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	reference := r.FormValue("reference")
	session, _ := h.SessionStore.Get(r, "admin-session")
	defer session.Save(r, w)

	payment := models.PaymentInfo{
		Mode: models.PaymentMode(r.FormValue("payment_mode")),
	}
	if d, err := time.Parse("2006-01-02", r.FormValue("payment_date")); err == nil {
		payment.Date = d
	}
	if d, err := time.Parse("2006-01-02", r.FormValue("deposit_desired")); err == nil {
		payment.DepositDesired = d
	}
	if d, err := time.Parse("2006-01-02", r.FormValue("deposit_actual")); err == nil {
		payment.DepositActual = d
	}

	if _, err := h.Store.RecordPayment(reference, payment); err != nil {
		session.AddFlash(FlashMessage{Type: "error", Message: transitionErrorMessage(err, reference)})
		http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
		return
	}

	session.AddFlash(FlashMessage{Type: "success", Message: "Payment recorded for " + reference + "."})
	http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
}

// MarkRetrieved hands an order over to its customer.
func (h *AdminHandler) MarkRetrieved(w http.ResponseWriter, r *http.Request) {
	reference := r.FormValue("reference")
	session, _ := h.SessionStore.Get(r, "admin-session")
	defer session.Save(r, w)

	if _, err := h.Store.MarkRetrieved(reference); err != nil {
		session.AddFlash(FlashMessage{Type: "error", Message: transitionErrorMessage(err, reference)})
		http.Redirect(w, r, "/admin/orders?filter=to_retrieve", http.StatusSeeOther)
		return
	}

	session.AddFlash(FlashMessage{Type: "success", Message: "Order " + reference + " handed over."})
	http.Redirect(w, r, "/admin/orders?filter=to_retrieve", http.StatusSeeOther)
}

// CorrectCustomer fixes contact details on an existing order.
func (h *AdminHandler) CorrectCustomer(w http.ResponseWriter, r *http.Request) {
	reference := r.FormValue("reference")
	session, _ := h.SessionStore.Get(r, "admin-session")
	defer session.Save(r, w)

	customer := models.Customer{
		Name:  r.FormValue("name"),
		Email: r.FormValue("email"),
		Phone: r.FormValue("phone"),
	}
	if customer.Name == "" || customer.Email == "" {
		session.AddFlash(FlashMessage{Type: "error", Message: "Name and email are required."})
		http.Redirect(w, r, "/admin/orders/"+reference, http.StatusSeeOther)
		return
	}

	if _, err := h.Store.CorrectCustomer(reference, customer); err != nil {
		session.AddFlash(FlashMessage{Type: "error", Message: transitionErrorMessage(err, reference)})
		http.Redirect(w, r, "/admin/orders/"+reference, http.StatusSeeOther)
		return
	}

	session.AddFlash(FlashMessage{Type: "success", Message: "Customer details updated."})
	http.Redirect(w, r, "/admin/orders/"+reference, http.StatusSeeOther)
}

// RegenerateToken invalidates the current magic link and issues a new one,
// for when a customer forwarded theirs to the wrong person.
func (h *AdminHandler) RegenerateToken(w http.ResponseWriter, r *http.Request) {
	reference := r.FormValue("reference")
	session, _ := h.SessionStore.Get(r, "admin-session")
	defer session.Save(r, w)

	if _, err := h.Store.RegenerateToken(reference); err != nil {
		session.AddFlash(FlashMessage{Type: "error", Message: transitionErrorMessage(err, reference)})
		http.Redirect(w, r, "/admin/orders/"+reference, http.StatusSeeOther)
		return
	}

	session.AddFlash(FlashMessage{Type: "success", Message: "New status link issued for " + reference + "."})
	http.Redirect(w, r, "/admin/orders/"+reference, http.StatusSeeOther)
}

// PreparationList shows the items still to prepare.
func (h *AdminHandler) PreparationList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.PreparationQueue()
	if err != nil {
		http.Error(w, "Error fetching preparation queue", http.StatusInternalServerError)
		return
	}

	tmpl := h.Templates.Get("admin_preparation.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, "admin-session")
	data := map[string]interface{}{
		"Entries":   entries,
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

// ExportPreparation pulls the pending queue entries into a printer export
// exactly once.
func (h *AdminHandler) ExportPreparation(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, "admin-session")
	defer session.Save(r, w)

	pending, err := h.Store.ExportPreparation()
	if err != nil {
		session.AddFlash(FlashMessage{Type: "error", Message: "Export failed."})
		http.Redirect(w, r, "/admin/preparation", http.StatusSeeOther)
		return
	}

	session.AddFlash(FlashMessage{Type: "success", Message: strconv.Itoa(len(pending)) + " item(s) exported."})
	http.Redirect(w, r, "/admin/preparation", http.StatusSeeOther)
}

// ArchiveOld moves old terminal orders to the archive file.
func (h *AdminHandler) ArchiveOld(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, "admin-session")
	defer session.Save(r, w)

	days, err := strconv.Atoi(r.FormValue("days"))
	if err != nil || days < 0 {
		session.AddFlash(FlashMessage{Type: "error", Message: "Invalid retention window."})
		http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
		return
	}

	moved, err := h.Store.ArchiveOlderThan(days)
	if err != nil {
		session.AddFlash(FlashMessage{Type: "error", Message: "Archiving failed."})
		http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
		return
	}

	session.AddFlash(FlashMessage{Type: "success", Message: strconv.Itoa(moved) + " order(s) archived."})
	http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
}

// Inconsistencies shows the reconciliation report for manual remediation.
func (h *AdminHandler) Inconsistencies(w http.ResponseWriter, r *http.Request) {
	report, err := h.Store.DetectInconsistencies()
	if err != nil {
		http.Error(w, "Error scanning orders", http.StatusInternalServerError)
		return
	}

	tmpl := h.Templates.Get("admin_inconsistencies.html")
	if tmpl == nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	session, _ := h.SessionStore.Get(r, "admin-session")
	data := map[string]interface{}{
		"Report":  report,
		"Flashes": GetFlash(session),
	}
	session.Save(r, w)
	tmpl.Execute(w, data)
}

// transitionErrorMessage maps store errors to operator-readable text, always
// naming the reference.
func transitionErrorMessage(err error, reference string) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "Order " + reference + " not found."
	case errors.Is(err, store.ErrInvalidTransition):
		return "Order " + reference + ": this status change is not allowed."
	case errors.Is(err, store.ErrInconsistentPayment):
		return "Order " + reference + ": record a payment mode and date first."
	case errors.Is(err, store.ErrLockTimeout):
		return "Order " + reference + ": the order file is busy, try again."
	default:
		return "Order " + reference + ": update failed."
	}
}
