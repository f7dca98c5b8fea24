package monitor

import (
	"strings"

	"github.com/agentmon/agentmon/internal/config"
	"github.com/agentmon/agentmon/internal/installapi"
)

// ResolveHostname produces a display name for a host record. The name
// becomes known at different bootstrap phases from different sources, so a
// priority chain is walked and the first non-empty answer wins; the final
// placeholder guarantees the view never shows a blank.
//
// Chain: requested hostname, inventory hostname, manifest lookup by MAC,
// first inventoried IPv4 address, bootstrap-master heuristic against the
// manifest, synthesized "<role>-<id-prefix>".
func ResolveHostname(host installapi.Host, manifest *config.Manifest) string {
	if host.RequestedHostname != "" {
		return host.RequestedHostname
	}

	inv, invOK := host.DecodeInventory()

	if invOK && inv.Hostname != "" {
		return inv.Hostname
	}

	if invOK && manifest != nil {
		for _, iface := range inv.Interfaces {
			if name := manifest.HostnameForMAC(iface.MacAddress); name != "" {
				return name
			}
		}
	}

	if invOK {
		for _, iface := range inv.Interfaces {
			for _, addr := range iface.IPv4Addresses {
				if addr == "" {
					continue
				}
				// Addresses are CIDR-formed ("192.168.1.201/24").
				return strings.SplitN(addr, "/", 2)[0]
			}
		}
	}

	if manifest != nil && host.Role == "master" && host.Bootstrap {
		if name := manifest.BootstrapHostname(); name != "" {
			return name
		}
	}

	role := host.Role
	if role == "" || role == "auto-assign" {
		role = "unknown"
	}
	idPrefix := host.ID
	if len(idPrefix) > 8 {
		idPrefix = idPrefix[:8]
	}
	if idPrefix == "" {
		return role
	}
	return role + "-" + idPrefix
}
