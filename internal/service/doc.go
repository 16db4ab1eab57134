// Package service holds the DashV engine: the discovery reconciler, the
// dashboard overlay and the platform connection manager.
//
// # Discovery
//
// Discovery lists workloads through an adapter.WorkloadLister, resolves
// their addresses, maps them to services with a Mapper and reconciles the
// result against the previous snapshot. Each cycle publishes one event per
// actual change (added and updated before removed) and mirrors it to the
// repository. Cycles never overlap: timer ticks that find a cycle running
// are skipped, manual triggers wait their turn.
//
// # Dashboard
//
// Dashboard layers operator state over the discovered list: manual
// services, hidden services, icon overrides and name/port edits.
//
// # Connections
//
// ConnectionManager verifies and saves the Proxmox connection, provisions
// API tokens over SSH and binds the platform to Discovery.
//
// All components publish domain.ChangeEvent values through a Publisher,
// normally an EventBus feeding the SSE hub.
package service
