package backupapi

// Backup payloads are owned by the backup service. Only the fields the
// console needs to identify and page through a backup are typed; option
// groups are passed through untouched.

type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusPaused     Status = "Paused"
	StatusToDelete   Status = "ToDelete"
)

type Options map[string]any

type Job struct {
	Id      string `json:"id,omitempty"`
	Status  string `json:"status,omitempty"`
	Source  string `json:"source,omitempty"`
	Created string `json:"created,omitempty"`
	Updated string `json:"updated,omitempty"`
}

type Backup struct {
	Id              string  `json:"id,omitempty"`
	Type            string  `json:"type,omitempty"`
	Strategy        string  `json:"strategy,omitempty"`
	Project         string  `json:"project,omitempty"`
	Target          Options `json:"target,omitempty"`
	SnapshotOptions Options `json:"snapshot_options,omitempty"`
	MirrorOptions   Options `json:"mirror_options,omitempty"`
	BigQueryOptions Options `json:"bigquery_options,omitempty"`
	GCSOptions      Options `json:"gcs_options,omitempty"`
	Status          Status  `json:"status,omitempty"`
	Sink            string  `json:"sink,omitempty"`
	SinkProject     string  `json:"sink_project,omitempty"`
	Created         string  `json:"created,omitempty"`
	Updated         string  `json:"updated,omitempty"`
	Deleted         string  `json:"deleted,omitempty"`
	Jobs            []Job   `json:"jobs,omitempty"`
	JobsTotal       int     `json:"jobs_total,omitempty"`
}

type CreateRequest struct {
	Type            string  `json:"type,omitempty"`
	Strategy        string  `json:"strategy,omitempty"`
	Project         string  `json:"project,omitempty"`
	Target          Options `json:"target,omitempty"`
	SnapshotOptions Options `json:"snapshot_options,omitempty"`
	MirrorOptions   Options `json:"mirror_options,omitempty"`
	BigQueryOptions Options `json:"bigquery_options,omitempty"`
	GCSOptions      Options `json:"gcs_options,omitempty"`
}

type UpdateRequest struct {
	BackupId       string   `json:"backup_id,omitempty"`
	Status         Status   `json:"status,omitempty"`
	MirrorTTL      int      `json:"mirror_ttl,omitempty"`
	SnapshotTTL    int      `json:"snapshot_ttl,omitempty"`
	ArchiveTTM     int      `json:"archive_ttm,omitempty"`
	IncludePath    []string `json:"include_path,omitempty"`
	ExcludePath    []string `json:"exclude_path,omitempty"`
	Table          []string `json:"table,omitempty"`
	ExcludedTables []string `json:"excluded_tables,omitempty"`
}

type Cost struct {
	Cost        float64 `json:"cost"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Period      int     `json:"period"`
	SizeInBytes int64   `json:"size_in_bytes"`
}

type ComplianceCheck struct {
	Field       string `json:"field"`
	Passed      bool   `json:"passed"`
	Description string `json:"description"`
	Details     string `json:"details"`
}

type RestoreResponse struct {
	BackupId string   `json:"backup_id"`
	Actions  []Action `json:"actions"`
}

type Action struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

type User struct {
	Email string `json:"email"`
}
