package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
)

// Resolver turns a trigger manifest plus the workflow registry into the set
// of JobSpecs to launch. Pure transformation: no side effects, no state.
type Resolver struct {
	registry interfaces.Registry
	logger   arbor.ILogger
}

// NewResolver creates a new manifest resolver. The registry is an explicit
// read-only dependency, never an ambient lookup at call time.
func NewResolver(registry interfaces.Registry, logger arbor.ILogger) *Resolver {
	return &Resolver{
		registry: registry,
		logger:   logger,
	}
}

// Resolve produces one JobSpec per job type whose samplesheet is present in
// the manifest. An absent samplesheet means the workflow was not requested
// for this run and is silently skipped. A requested job type with no registry
// entry is a configuration error for that job type only: it is logged and
// skipped, and the rest of the batch resolves normally.
//
// Job types are emitted in lexical order so launch ordering is deterministic.
func (r *Resolver) Resolve(ctx context.Context, manifest *models.Manifest) ([]models.JobSpec, error) {
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	jobTypes := make([]string, 0, len(manifest.Samplesheets))
	for jobType := range manifest.Samplesheets {
		jobTypes = append(jobTypes, jobType)
	}
	sort.Strings(jobTypes)

	specs := make([]models.JobSpec, 0, len(jobTypes))
	for _, jobType := range jobTypes {
		samplesheet, ok := manifest.SamplesheetFor(jobType)
		if !ok {
			r.logger.Info().
				Str("run_label", manifest.RunLabel).
				Str("job_type", jobType).
				Msg("No samplesheet for job type, skipping")
			continue
		}

		entry, err := r.registry.Lookup(ctx, jobType)
		if err != nil {
			cfgErr := &ConfigurationError{JobType: jobType, Cause: err}
			r.logger.Warn().
				Err(cfgErr).
				Str("run_label", manifest.RunLabel).
				Str("job_type", jobType).
				Msg("Registry lookup failed for requested job type, skipping")
			continue
		}

		extra := map[string]string{}
		if params, ok := manifest.Parameters[jobType]; ok && params != "" {
			extra["params"] = params
		}

		spec := models.JobSpec{
			JobType:          jobType,
			RunLabel:         manifest.RunLabel,
			InputLocator:     samplesheet,
			OutputLocator:    fmt.Sprintf("%s/%s/%s/", manifest.OutputBase, manifest.RunLabel, jobType),
			ExtraParameters:  extra,
			JobDefinitionRef: entry.DefinitionRef,
			ExecutionRole:    entry.ExecutionRole,
			ResourceGroup:    entry.ResourceGroup,
		}
		if err := spec.Validate(); err != nil {
			r.logger.Warn().
				Err(err).
				Str("job_type", jobType).
				Msg("Resolved job spec failed validation, skipping")
			continue
		}

		specs = append(specs, spec)
	}

	r.logger.Info().
		Str("run_label", manifest.RunLabel).
		Int("requested", len(manifest.Samplesheets)).
		Int("resolved", len(specs)).
		Msg("Manifest resolved")

	return specs, nil
}
