package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"sort"

	"dashv/internal/adapter"
	"dashv/internal/codec"
	"dashv/internal/domain"
	"dashv/internal/repository"
	"dashv/internal/service"
)

// PortProber scans the ports of an address
type PortProber interface {
	Scan(ctx context.Context, address string, ports []int) ([]adapter.PortStatus, error)
}

// ServicesHandler serves the dashboard service list and its preferences
type ServicesHandler struct {
	dashboard *service.Dashboard
	catalog   *domain.Catalog
	prober    PortProber
}

// NewServicesHandler creates a new services handler
func NewServicesHandler(dashboard *service.Dashboard, catalog *domain.Catalog) *ServicesHandler {
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	return &ServicesHandler{dashboard: dashboard, catalog: catalog}
}

// SetPortProber enables the port probe endpoint
func (h *ServicesHandler) SetPortProber(p PortProber) {
	h.prober = p
}

// List returns the visible services with overrides applied
func (h *ServicesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.dashboard.Services(), http.StatusOK)
}

// Preferences returns hidden services and icon overrides
func (h *ServicesHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.dashboard.Preferences(), http.StatusOK)
}

type hideRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Hidden bool   `json:"hidden"`
}

// Hide hides or shows a service
func (h *ServicesHandler) Hide(w http.ResponseWriter, r *http.Request) {
	var req hideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.dashboard.SetHidden(r.Context(), req.ID, req.Name, req.Hidden); err != nil {
		h.fail(w, "Missing service id", err)
		return
	}
	writeJSON(w, SuccessResponse{Success: true}, http.StatusOK)
}

type iconRequest struct {
	ID      string `json:"id"`
	IconURL string `json:"iconUrl"`
}

// Icon sets a custom icon URL for a service
func (h *ServicesHandler) Icon(w http.ResponseWriter, r *http.Request) {
	var req iconRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.dashboard.SetIcon(r.Context(), req.ID, req.IconURL); err != nil {
		h.fail(w, "Missing id or iconUrl", err)
		return
	}
	writeJSON(w, SuccessResponse{Success: true}, http.StatusOK)
}

type serviceResponse struct {
	Success bool           `json:"success"`
	Service domain.Service `json:"service"`
}

// AddManual creates an operator-defined service
func (h *ServicesHandler) AddManual(w http.ResponseWriter, r *http.Request) {
	var req domain.ManualService
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	s, err := h.dashboard.AddManual(r.Context(), req)
	if err != nil {
		h.fail(w, "Missing name or url", err)
		return
	}
	writeJSON(w, serviceResponse{Success: true, Service: s}, http.StatusOK)
}

// DeleteManual removes an operator-defined service
func (h *ServicesHandler) DeleteManual(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboard.DeleteManual(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "Missing id", err)
		return
	}
	writeJSON(w, SuccessResponse{Success: true}, http.StatusOK)
}

// Edit renames and/or re-ports a service
func (h *ServicesHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req service.ServiceEdit
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	s, err := h.dashboard.Edit(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.fail(w, "Missing service id", err)
		return
	}
	writeJSON(w, serviceResponse{Success: true, Service: s}, http.StatusOK)
}

// PortsResponse is the result of a port probe
type PortsResponse struct {
	ID      string               `json:"id"`
	Address string               `json:"address"`
	Ports   []adapter.PortStatus `json:"ports"`
}

// Ports probes the service address for the catalog's known ports
func (h *ServicesHandler) Ports(w http.ResponseWriter, r *http.Request) {
	if h.prober == nil {
		writeError(w, "Port probing not available", "no port scanner configured", http.StatusServiceUnavailable)
		return
	}

	id := r.PathValue("id")
	s, ok := h.dashboard.Lookup(id)
	if !ok {
		writeError(w, "Service not found", id, http.StatusNotFound)
		return
	}
	if _, err := netip.ParseAddr(s.IP); err != nil {
		writeError(w, "Service has no address", fmt.Sprintf("address of %s is %q", id, s.IP), http.StatusUnprocessableEntity)
		return
	}

	ports := h.catalog.KnownPorts()
	if s.Port > 0 && !containsPort(ports, s.Port) {
		ports = append(ports, s.Port)
	}
	sort.Ints(ports)

	statuses, err := h.prober.Scan(r.Context(), s.IP, ports)
	if err != nil {
		if errors.Is(err, adapter.ErrNmapUnavailable) {
			writeError(w, "Port probing not available", err.Error(), http.StatusServiceUnavailable)
			return
		}
		log.Printf("Port probe of %s (%s) failed: %v", id, s.IP, err)
		writeError(w, "Port probe failed", err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, PortsResponse{ID: id, Address: s.IP, Ports: statuses}, http.StatusOK)
}

// Export downloads the visible services as JSON or YAML
func (h *ServicesHandler) Export(w http.ResponseWriter, r *http.Request) {
	exporter, err := codec.ExporterFor(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename=services."+exporter.Format())

	if err := exporter.Export(h.dashboard.Services(), w); err != nil {
		log.Printf("Failed to export services as %s: %v", exporter.Format(), err)
		// Can't write error response as we already set headers
	}
}

// fail maps dashboard errors onto status codes. invalid is the message
// used for bad input.
func (h *ServicesHandler) fail(w http.ResponseWriter, invalid string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, invalid, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, "Service not found", err.Error(), http.StatusNotFound)
	default:
		log.Printf("Dashboard request failed: %v", err)
		writeError(w, "Internal error", err.Error(), http.StatusInternalServerError)
	}
}

func containsPort(ports []int, p int) bool {
	for _, q := range ports {
		if q == p {
			return true
		}
	}
	return false
}
