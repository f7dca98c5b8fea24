package installapi

import (
	"encoding/json"
	"fmt"
)

// Cluster is the orchestration API's view of the installation.
type Cluster struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	StatusInfo string   `json:"status_info"`
	Progress   Progress `json:"progress"`
}

// Progress carries the API's own reported completion percentage.
type Progress struct {
	TotalPercentage int    `json:"total_percentage"`
	CurrentStage    string `json:"current_stage"`
}

// Host is one machine registered with the orchestration API. The inventory
// and validations_info fields arrive as embedded JSON strings and are decoded
// on demand; a malformed embedded document never invalidates the host record
// itself.
type Host struct {
	ID                string   `json:"id"`
	InfraEnvID        string   `json:"infra_env_id"`
	RequestedHostname string   `json:"requested_hostname"`
	Role              string   `json:"role"`
	Bootstrap         bool     `json:"bootstrap"`
	Status            string   `json:"status"`
	StatusInfo        string   `json:"status_info"`
	Progress          Progress `json:"progress"`

	Inventory       string `json:"inventory"`
	ValidationsInfo string `json:"validations_info"`
}

// Inventory is the hardware inventory a host reports about itself.
type Inventory struct {
	Hostname   string      `json:"hostname"`
	Interfaces []Interface `json:"interfaces"`
	Disks      []Disk      `json:"disks"`
}

// Interface is one NIC from the hardware inventory.
type Interface struct {
	Name          string   `json:"name"`
	MacAddress    string   `json:"mac_address"`
	IPv4Addresses []string `json:"ipv4_addresses"`
}

// Disk is one block device from the hardware inventory.
type Disk struct {
	Name                    string                  `json:"name"`
	SizeBytes               int64                   `json:"size_bytes"`
	InstallationEligibility InstallationEligibility `json:"installation_eligibility"`
}

// InstallationEligibility says whether a disk can host the installation.
type InstallationEligibility struct {
	Eligible           bool     `json:"eligible"`
	NotEligibleReasons []string `json:"not_eligible_reasons"`
}

// ValidationCheck is one entry of a host's validations_info.
type ValidationCheck struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Event is one entry of the installation event feed.
type Event struct {
	Name      string `json:"name"`
	ClusterID string `json:"cluster_id"`
	HostID    string `json:"host_id"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	EventTime string `json:"event_time"`
}

// DedupKey identifies an event for once-per-lifetime emission. The feed has
// no dedicated id field, but an event is fully determined by its timestamp,
// subject host, and message.
func (e Event) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s", e.EventTime, e.HostID, e.Message)
}

// DecodeInventory parses the embedded inventory document. The boolean is
// false when the field is empty or malformed; the host record stays usable
// either way.
func (h *Host) DecodeInventory() (Inventory, bool) {
	var inv Inventory
	if h.Inventory == "" {
		return inv, false
	}
	if err := json.Unmarshal([]byte(h.Inventory), &inv); err != nil {
		return Inventory{}, false
	}
	return inv, true
}

// DecodeValidations parses the embedded validations_info document, grouped
// by category. Order within a category is preserved as received.
func (h *Host) DecodeValidations() (map[string][]ValidationCheck, bool) {
	if h.ValidationsInfo == "" {
		return nil, false
	}
	var checks map[string][]ValidationCheck
	if err := json.Unmarshal([]byte(h.ValidationsInfo), &checks); err != nil {
		return nil, false
	}
	return checks, true
}
