package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"dashv/internal/adapter"
	"dashv/internal/domain"
	"dashv/internal/service"
)

// ProxmoxHandler serves the platform connection and discovery endpoints
type ProxmoxHandler struct {
	connections *service.ConnectionManager
	discovery   *service.Discovery
}

// NewProxmoxHandler creates a new Proxmox handler
func NewProxmoxHandler(connections *service.ConnectionManager, discovery *service.Discovery) *ProxmoxHandler {
	return &ProxmoxHandler{connections: connections, discovery: discovery}
}

// Status reports whether a platform is connected
func (h *ProxmoxHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.connections.Status(), http.StatusOK)
}

// Connect verifies and saves an operator supplied API token
func (h *ProxmoxHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req service.ConnectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := h.connections.Connect(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, "Missing required fields", err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrConnectFailed):
			writeError(w, "Failed to connect to Proxmox", err.Error(), http.StatusUnauthorized)
		default:
			log.Printf("Error connecting to Proxmox: %v", err)
			writeError(w, "Failed to connect to Proxmox", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, SuccessResponse{Success: true}, http.StatusOK)
}

// TokenInfo names the token created by auto-setup
type TokenInfo struct {
	User      string `json:"user"`
	TokenName string `json:"tokenName"`
}

// AutoSetupResponse is the reply to a successful auto-setup
type AutoSetupResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	TokenInfo TokenInfo `json:"tokenInfo"`
}

// AutoSetup creates an API token over SSH and connects with it
func (h *ProxmoxHandler) AutoSetup(w http.ResponseWriter, r *http.Request) {
	var req service.AutoSetupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	cred, err := h.connections.AutoSetup(r.Context(), req)
	if err != nil {
		var perr *adapter.ProvisionError
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, "Missing required fields: host, sshUser, sshPassword", err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrConnectFailed):
			writeError(w, "Token created but connection failed", err.Error(), http.StatusUnauthorized)
		case errors.As(err, &perr):
			writeError(w, perr.Error(), string(perr.Stage), http.StatusInternalServerError)
		default:
			writeError(w, "Auto-setup failed", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, AutoSetupResponse{
		Success:   true,
		Message:   "Auto-setup completed successfully",
		TokenInfo: TokenInfo{User: cred.AccountName, TokenName: cred.TokenName},
	}, http.StatusOK)
}

// Disconnect stops discovery and forgets the connection
func (h *ProxmoxHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.connections.Disconnect(r.Context()); err != nil {
		log.Printf("Error disconnecting from Proxmox: %v", err)
		writeError(w, "Failed to disconnect", err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, SuccessResponse{Success: true}, http.StatusOK)
}

// DiscoverResponse is the reply to a manual discovery trigger
type DiscoverResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	service.TriggerResult
}

// Discover runs a discovery cycle now. It waits behind a cycle already in
// flight instead of failing.
func (h *ProxmoxHandler) Discover(w http.ResponseWriter, r *http.Request) {
	log.Printf("Discovery: manual trigger")
	res, err := h.discovery.Trigger(r.Context())
	if err != nil {
		log.Printf("Discovery: manual trigger failed: %v", err)
		writeError(w, "Failed to trigger discovery", err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, DiscoverResponse{Success: true, Message: "Discovery triggered", TriggerResult: res}, http.StatusOK)
}

// ServiceSummary is the short form of a service in the status report
type ServiceSummary struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	ContainerName string              `json:"containerName"`
	ContainerKind domain.WorkloadKind `json:"containerType"`
	Status        string              `json:"status"`
	IP            string              `json:"ip"`
	Port          int                 `json:"port"`
}

// DiscoverStatusResponse is the discovery diagnostics report
type DiscoverStatusResponse struct {
	service.Status
	Services []ServiceSummary `json:"services"`
}

// DiscoverStatus reports the reconciler state and the discovered services
func (h *ProxmoxHandler) DiscoverStatus(w http.ResponseWriter, r *http.Request) {
	services := h.discovery.Services()
	resp := DiscoverStatusResponse{
		Status:   h.discovery.Status(),
		Services: make([]ServiceSummary, len(services)),
	}
	for i, s := range services {
		resp.Services[i] = ServiceSummary{
			ID:            s.ID,
			Name:          s.Name,
			ContainerName: s.ContainerName,
			ContainerKind: s.ContainerKind,
			Status:        s.Status,
			IP:            s.IP,
			Port:          s.Port,
		}
	}
	if resp.LastUpdate.IsZero() {
		resp.LastUpdate = time.Now()
	}
	writeJSON(w, resp, http.StatusOK)
}

type startRequest struct {
	Node string              `json:"node"`
	ID   adapter.FlexInt     `json:"id"`
	Kind domain.WorkloadKind `json:"type"`
}

// StartContainer powers on a stopped container or VM
func (h *ProxmoxHandler) StartContainer(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	err := h.connections.StartWorkload(r.Context(), req.Node, req.Kind, int(req.ID))
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, "Missing node, id or type", err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error starting container: %v", err)
		writeError(w, "Failed to start container", err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, SuccessResponse{Success: true}, http.StatusOK)
}
