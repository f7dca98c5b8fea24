package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// Manifest is the node-inventory document enumerating the hosts expected to
// join the cluster. It follows the agent-config layout: a rendezvous address
// plus an ordered host list with roles and network interfaces.
type Manifest struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Metadata   struct {
		Name string `json:"name"`
	} `json:"metadata"`
	RendezvousIP string         `json:"rendezvousIP"`
	Hosts        []ManifestHost `json:"hosts"`
}

// ManifestHost describes one expected host.
type ManifestHost struct {
	Hostname   string              `json:"hostname"`
	Role       string              `json:"role"`
	IP         string              `json:"ip,omitempty"`
	Interfaces []ManifestInterface `json:"interfaces"`
}

// ManifestInterface is a physical NIC with its MAC address.
type ManifestInterface struct {
	Name       string `json:"name"`
	MacAddress string `json:"macAddress"`
}

// LoadManifest reads and parses the node-inventory manifest. A missing or
// unparseable manifest disables manifest-dependent features for the process
// lifetime, so callers should treat an error here as a configuration-level
// problem rather than a transient one.
func LoadManifest(path string) (*Manifest, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	if len(m.Hosts) == 0 {
		return nil, fmt.Errorf("manifest %s lists no hosts", path)
	}

	return &m, nil
}

// ExpectedNodeCount is the number of hosts the manifest says will join.
func (m *Manifest) ExpectedNodeCount() int {
	return len(m.Hosts)
}

// HostnameForMAC looks up the manifest hostname owning the given MAC
// address. Comparison is case-insensitive. Returns "" when no interface
// matches.
func (m *Manifest) HostnameForMAC(mac string) string {
	if mac == "" {
		return ""
	}
	for _, h := range m.Hosts {
		for _, iface := range h.Interfaces {
			if strings.EqualFold(iface.MacAddress, mac) {
				return h.Hostname
			}
		}
	}
	return ""
}

// BootstrapHostname returns the hostname of the host acting as the
// bootstrap: the one owning the rendezvous address when identifiable,
// otherwise the first master in the ordered host list.
func (m *Manifest) BootstrapHostname() string {
	for i, h := range m.Hosts {
		if h.Role != "master" {
			continue
		}
		if ip := m.HostIP(i); ip != "" && ip == m.RendezvousIP {
			return h.Hostname
		}
	}
	for _, h := range m.Hosts {
		if h.Role == "master" {
			return h.Hostname
		}
	}
	return ""
}

// HostIP returns the address of the i-th host. An explicit ip field wins;
// otherwise the address is derived from the rendezvous address by adding the
// host's position in the ordered list to its final octet.
func (m *Manifest) HostIP(i int) string {
	if i < 0 || i >= len(m.Hosts) {
		return ""
	}
	if m.Hosts[i].IP != "" {
		return m.Hosts[i].IP
	}

	base := net.ParseIP(m.RendezvousIP)
	if base == nil {
		return ""
	}
	v4 := base.To4()
	if v4 == nil {
		return ""
	}

	derived := make(net.IP, len(v4))
	copy(derived, v4)
	octet := int(derived[3]) + i
	if octet > 255 {
		return ""
	}
	derived[3] = byte(octet)
	return derived.String()
}
