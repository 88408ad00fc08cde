package models

import (
	"strings"
	"time"
)

// WorkflowEntry maps a job type name to the workflow definition registered
// with the workflow-run service. Read-only at orchestration time; written
// only by the provisioner.
type WorkflowEntry struct {
	Name          string    `json:"name" badgerhold:"key"` // Job type name, e.g. "mag"
	Version       string    `json:"version"`
	DefinitionRef string    `json:"definition_ref"` // Workflow definition ARN/ID
	ExecutionRole string    `json:"execution_role"`
	ResourceGroup string    `json:"resource_group"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefinitionName derives the registered workflow definition name for a
// catalog entry. Dots in the version are not valid in definition names, so
// they are replaced with hyphens: ("mag", "1.0.0") -> "nfcore-mag-1-0-0".
func DefinitionName(name, version string) string {
	return "nfcore-" + name + "-" + strings.ReplaceAll(version, ".", "-")
}
