// Package domain defines the core types of the DashV service dashboard.
//
// # Core Types
//
// Workload is a container or virtual machine reported by the Proxmox API
// during one discovery cycle.
//
// Service is a browsable endpoint derived from a workload and one of its
// ports. Discovered services are identified by "{workloadID}-{port}", which
// keeps identity stable across cycles without any stored mapping. Manual
// services are created by operators and are never touched by discovery.
//
// ChangeEvent is the added/updated/removed notification fanned out to
// subscribers.
//
// Catalog holds the ordered pattern tables that map workload names to ports
// and icons.
//
// Credential is an API token created over SSH by the provisioner.
//
// # Design Principles
//
// - No database or network dependencies
// - Value types, copied rather than shared
package domain
