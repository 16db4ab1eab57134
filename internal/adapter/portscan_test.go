package adapter

import (
	"context"
	"errors"
	"testing"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortStatuses(t *testing.T) {
	result := &nmap.Run{
		Hosts: []nmap.Host{
			{
				Addresses: []nmap.Address{{Addr: "192.168.1.20", AddrType: "ipv4"}},
				Status:    nmap.Status{State: "up"},
				Ports: []nmap.Port{
					{
						ID:       443,
						Protocol: "tcp",
						State:    nmap.State{State: "closed"},
					},
					{
						ID:       80,
						Protocol: "tcp",
						State:    nmap.State{State: "open"},
						Service:  nmap.Service{Name: "http", Product: "nginx", Version: "1.24.0"},
					},
				},
			},
			{
				Addresses: []nmap.Address{{Addr: "192.168.1.99", AddrType: "ipv4"}},
				Ports:     []nmap.Port{{ID: 22, Protocol: "tcp", State: nmap.State{State: "open"}}},
			},
		},
	}

	got := portStatuses(result, "192.168.1.20", []int{80, 443, 8080})

	require.Len(t, got, 3)
	assert.Equal(t, PortStatus{Port: 80, Protocol: "tcp", State: "open", Service: "http", Product: "nginx 1.24.0", Open: true}, got[0])
	assert.Equal(t, PortStatus{Port: 443, Protocol: "tcp", State: "closed"}, got[1])
	assert.Equal(t, PortStatus{Port: 8080, Protocol: "tcp", State: "unknown"}, got[2])
}

func TestPortStatuses_NilResult(t *testing.T) {
	got := portStatuses(nil, "10.0.0.1", []int{80})
	assert.Equal(t, []PortStatus{{Port: 80, Protocol: "tcp", State: "unknown"}}, got)
}

func TestFormatPorts(t *testing.T) {
	s, err := formatPorts([]int{80, 443, 8096})
	require.NoError(t, err)
	assert.Equal(t, "80,443,8096", s)

	_, err = formatPorts(nil)
	assert.Error(t, err)
	_, err = formatPorts([]int{0})
	assert.Error(t, err)
	_, err = formatPorts([]int{70000})
	assert.Error(t, err)
}

func TestPortScanner_Unavailable(t *testing.T) {
	s := NewPortScanner()
	s.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	assert.False(t, s.Available())
	_, err := s.Scan(context.Background(), "10.0.0.1", []int{80})
	assert.ErrorIs(t, err, ErrNmapUnavailable)
}

func TestPortScanner_RejectsBadInput(t *testing.T) {
	s := NewPortScanner()
	s.lookPath = func(string) (string, error) { return "/usr/bin/nmap", nil }

	_, err := s.Scan(context.Background(), "unknown", []int{80})
	assert.Error(t, err)

	_, err = s.Scan(context.Background(), "10.0.0.1", nil)
	assert.Error(t, err)
}
