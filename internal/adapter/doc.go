// Package adapter connects DashV to the outside world.
//
// # Proxmox
//
// Client is a small Proxmox VE API client authenticated with an API token
// ("account!token=secret"). Lister enumerates LXC containers and QEMU VMs of
// every online node, and Resolver finds a workload's IPv4 address by walking
// an ordered chain of strategies:
//
//	tag              operator-pinned 10.x.x.x tag, no API call
//	interface config static ip= of the container's netN keys
//	runtime status   addresses reported by the running container
//	guest agent      QEMU guest agent interfaces (VMs only)
//
// The first strategy to produce an address wins. Failures are logged and the
// chain moves on; a workload nothing resolves is reported as "unknown".
//
// MockPlatform serves a fixed roster for development without a cluster.
//
// # Credential provisioning
//
// Provisioner creates an API token over SSH by trying several pveum syntax
// variants in turn, then extracts the secret from the command output.
// SSHRunner runs exactly one command per connection.
//
// # Port probing
//
// PortScanner checks a service address with nmap.
package adapter
