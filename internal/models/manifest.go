package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Manifest is the trigger document for one orchestration run. It associates a
// run label with, for each requested job type, the location of its samplesheet.
// A job type with no samplesheet entry is simply not requested for this run.
type Manifest struct {
	RunLabel  string    `json:"run_label" validate:"required"`
	Timestamp time.Time `json:"timestamp"`

	// Samplesheets maps job type -> samplesheet artifact URI.
	Samplesheets map[string]string `json:"samplesheets" validate:"required,min=1"`

	// Parameters maps job type -> optional parameters file URI, passed through
	// to the launch request untouched.
	Parameters map[string]string `json:"parameters,omitempty"`

	// OutputBase is the URI prefix under which per-job output locators are built.
	OutputBase string `json:"output_base" validate:"required"`
}

var manifestValidator = validator.New()

// ManifestFromJSON deserializes and validates a manifest document
func ManifestFromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ToJSON serializes the manifest
func (m *Manifest) ToJSON() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// Validate checks required manifest fields
func (m *Manifest) Validate() error {
	if err := manifestValidator.Struct(m); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}

// SamplesheetFor returns the samplesheet URI for a job type, and whether the
// job type was requested in this manifest at all.
func (m *Manifest) SamplesheetFor(jobType string) (string, bool) {
	uri, ok := m.Samplesheets[jobType]
	if !ok || uri == "" {
		return "", false
	}
	return uri, true
}
