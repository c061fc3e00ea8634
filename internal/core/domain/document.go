package domain

import "time"

// Stage identifies a step of the ingestion pipeline tracked per document.
type Stage string

const (
	StageRawAvailable     Stage = "raw-available"
	StagePreviewReady     Stage = "preview-ready"
	StageVectorized       Stage = "vectorized"
	StageSQLIndexed       Stage = "sql-indexed"
	StageExternallySynced Stage = "externally-synced"
)

// State is the status of one pipeline stage.
type State string

const (
	StateNotStarted State = "not-started"
	StateInProgress State = "in-progress"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// StageStatus records the outcome of one pipeline stage.
type StageStatus struct {
	State State  `json:"state"`
	Error string `json:"error,omitempty"`
}

// Tag is a scope identifier with its display name.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Source describes where a document came from.
type Source struct {
	// SourceTag labels the originating system (e.g. "upload", "crawler").
	SourceTag string `json:"source_tag"`

	// URL is the provenance link back to the original location.
	URL string `json:"url,omitempty"`

	// Type is the source-specific kind (e.g. "web", "filesystem").
	Type string `json:"type,omitempty"`
}

// File describes the ingested file.
type File struct {
	Name     string `json:"name,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// DocumentRecord is the structured metadata facet of a document, owned by
// the metadata store. It is created on ingestion start, mutated by each
// pipeline stage, and deleted independently of the document's vectors and
// content blob; the audit subsystem reconciles divergence.
type DocumentRecord struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`

	Source Source `json:"source"`
	File   File   `json:"file"`

	Tags []Tag `json:"tags,omitempty"`

	Confidential bool   `json:"confidential"`
	License      string `json:"license,omitempty"`

	Processing map[Stage]StageStatus `json:"processing,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagIDs returns the document's tag identifiers.
func (d *DocumentRecord) TagIDs() []string {
	ids := make([]string, len(d.Tags))
	for i, t := range d.Tags {
		ids[i] = t.ID
	}
	return ids
}

// TagNames returns the document's tag display names.
func (d *DocumentRecord) TagNames() []string {
	names := make([]string, len(d.Tags))
	for i, t := range d.Tags {
		names[i] = t.Name
	}
	return names
}

// StageDone reports whether the given pipeline stage completed.
func (d *DocumentRecord) StageDone(s Stage) bool {
	return d.Processing[s].State == StateDone
}

// SetStage records the status of a pipeline stage.
func (d *DocumentRecord) SetStage(s Stage, state State, errText string) {
	if d.Processing == nil {
		d.Processing = make(map[Stage]StageStatus)
	}
	d.Processing[s] = StageStatus{State: state, Error: errText}
}
