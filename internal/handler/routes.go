package handler

import (
	"net/http"
)

// Routes registers every API endpoint on mux. events serves the SSE
// stream.
func Routes(mux *http.ServeMux, services *ServicesHandler, proxmox *ProxmoxHandler, events http.Handler) {
	mux.HandleFunc("GET /health", Health)

	// Dashboard
	mux.HandleFunc("GET /api/services", services.List)
	mux.HandleFunc("GET /api/services/preferences", services.Preferences)
	mux.HandleFunc("POST /api/services/hide", services.Hide)
	mux.HandleFunc("POST /api/services/icon", services.Icon)
	mux.HandleFunc("POST /api/services/manual", services.AddManual)
	mux.HandleFunc("DELETE /api/services/manual/{id}", services.DeleteManual)
	mux.HandleFunc("POST /api/services/edit/{id}", services.Edit)
	mux.HandleFunc("GET /api/services/{id}/ports", services.Ports)
	mux.HandleFunc("GET /api/export/services", services.Export)

	// Platform
	mux.HandleFunc("POST /api/containers/start", proxmox.StartContainer)
	mux.HandleFunc("GET /api/proxmox/status", proxmox.Status)
	mux.HandleFunc("POST /api/proxmox/connect", proxmox.Connect)
	mux.HandleFunc("POST /api/proxmox/auto-setup", proxmox.AutoSetup)
	mux.HandleFunc("POST /api/proxmox/disconnect", proxmox.Disconnect)
	mux.HandleFunc("POST /api/proxmox/discover", proxmox.Discover)
	mux.HandleFunc("GET /api/proxmox/discover-status", proxmox.DiscoverStatus)

	if events != nil {
		mux.Handle("GET /events", events)
	}
}
