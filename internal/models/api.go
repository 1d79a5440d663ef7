package models

// DecideRequest asks for the header decision of an ad-hoc title.
type DecideRequest struct {
	Tags  []string `json:"tags"`
	Title string   `json:"title"`
}

// Decision is the outcome of a header decision.
type Decision struct {
	Title    string   `json:"title"`
	Header   string   `json:"header,omitempty"`
	Action   string   `json:"action"`
	NewTitle string   `json:"new_title,omitempty"`
	Emoji    []string `json:"emoji"`
}

// RenamesPage is one page of the rename journal.
type RenamesPage struct {
	Renames []*RenameRecord `json:"renames"`
	Total   int64           `json:"total"`
	Offset  int             `json:"offset"`
	Limit   int             `json:"limit"`
}

// StatusConfig is the configuration part of Status.
type StatusConfig struct {
	DatabasePath string   `json:"database_path,omitempty"`
	Extensions   []string `json:"extensions,omitempty"`
	Recursive    bool     `json:"recursive"`
	DebounceMS   int      `json:"debounce_ms,omitempty"`
}

// Status is the shape of GET /api/v1/status.
type Status struct {
	Notes          int           `json:"notes"`
	Renames        int64         `json:"renames"`
	FailedRenames  int64         `json:"failed_renames"`
	Directories    []string      `json:"directories"`
	DiskUsageBytes *int64        `json:"disk_usage_bytes,omitempty"`
	Config         *StatusConfig `json:"config,omitempty"`
}
