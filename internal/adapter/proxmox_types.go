package adapter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dashv/internal/domain"
)

// NodeInfo is an entry of GET /nodes
type NodeInfo struct {
	Node   string `json:"node"`
	Status string `json:"status"`
}

// Online reports whether the node is worth querying. Nodes without a
// reported status are assumed online.
func (n NodeInfo) Online() bool {
	return n.Status == "" || n.Status == "online"
}

// WorkloadInfo is an entry of GET /nodes/{node}/lxc or /qemu
type WorkloadInfo struct {
	VMID   FlexInt `json:"vmid"`
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Tags   string  `json:"tags"`
}

// Workload converts a roster entry into a workload record
func (w WorkloadInfo) Workload(kind domain.WorkloadKind, node string) domain.Workload {
	name := w.Name
	if name == "" {
		name = fmt.Sprintf("%s-%d", kind, int(w.VMID))
	}
	return domain.Workload{
		ID:     int(w.VMID),
		Name:   name,
		Status: w.Status,
		Kind:   kind,
		Node:   node,
		Tags:   domain.ParseTags(w.Tags),
	}
}

// GuestInterface is an entry of the guest agent's network-get-interfaces
type GuestInterface struct {
	Name        string           `json:"name"`
	HardwareMAC string           `json:"hardware-address,omitempty"`
	IPAddresses []GuestIPAddress `json:"ip-addresses"`
}

// GuestIPAddress is one address reported for an interface
type GuestIPAddress struct {
	Type    string `json:"ip-address-type"`
	Address string `json:"ip-address"`
	Prefix  int    `json:"prefix"`
}

// FlexInt decodes integers the API sometimes sends as strings
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		var fl float64
		if jerr := json.Unmarshal(data, &fl); jerr != nil {
			return fmt.Errorf("invalid integer %s", data)
		}
		n = int(fl)
	}
	*f = FlexInt(n)
	return nil
}

// Version response of GET /version
type versionInfo struct {
	Version string `json:"version"`
	Release string `json:"release"`
	RepoID  string `json:"repoid"`
}

// agentResult wraps the guest agent payload
type agentResult struct {
	Result []GuestInterface `json:"result"`
}
