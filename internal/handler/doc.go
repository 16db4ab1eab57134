// Package handler implements the DashV HTTP API.
//
// ServicesHandler serves the dashboard list and the operator's preferences
// (hidden services, icon overrides, manual services, edits), port probes
// and exports. ProxmoxHandler serves the platform connection, SSH
// auto-setup and discovery endpoints. Routes registers both on a
// ServeMux; Chain wraps the mux with Recover, CORS and Logger.
//
// Success responses are JSON. Errors are JSON with an {error, details}
// body and a matching status code: 400 for missing fields, 401 when the
// platform rejects a token, 404 for unknown services, 503 when port
// probing is unavailable.
package handler
