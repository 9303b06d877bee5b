package handlers

type StatusResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"ts"`
	Version   string         `json:"version"`
	Revision  string         `json:"revision"`
	BuildDate string         `json:"buildDate"`
	Watches   int            `json:"watches"`
	Frontends int            `json:"frontends"`
	Versions  map[string]int `json:"versions,omitempty"`
	Runtime   *RuntimeStatus `json:"runtime,omitempty"`
}

// RuntimeStatus describes the daemon process.
type RuntimeStatus struct {
	PID        int32   `json:"pid"`
	StartedAt  string  `json:"startedAt"`
	Uptime     string  `json:"uptime"`
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Goroutines int     `json:"goroutines"`
}
