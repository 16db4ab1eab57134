// Package repository defines the persistence collaborator of DashV.
//
// Persistence is best effort. Discovery keeps its snapshot in memory and
// only mirrors it here, so a failing or missing database degrades the
// process to memory-only mode instead of stopping it. Unavailable is the
// implementation used in that mode.
//
// The sqlite subpackage provides the real implementation. It keeps
// discovered services (unique per container and port), a change log, the
// last saved platform connection, manual services and per-service
// dashboard overrides.
package repository
