package domain

const (
	StateOnline  = "Online"
	StateOffline = "Offline"
)

// ServerStatus is one monitored server as shown on the status page.
type ServerStatus struct {
	Name   string `json:"name"`
	State  string `json:"state"`
	Online bool   `json:"online"`
}

// Report is the parsed status page.
type Report struct {
	// Maintenance is the cleaned announcement, empty when no state reads Offline.
	Maintenance string
	Servers     []ServerStatus
}
