// Package provisioner ensures the workflow-run service and the local registry
// agree on the set of workflow definitions Strand can launch. It runs at
// startup or via the registry CLI and is idempotent: existing definitions are
// reused, missing ones created, and the registry populated once every expected
// definition is visible.
package provisioner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
	"github.com/ternarybob/strand/internal/omics"
)

const (
	// listRetryMax bounds how long we wait for created definitions to become
	// visible in listings; the service's list view lags creation.
	listRetryMax        = 10
	listRetryBaseDelay  = 2 * time.Second
	listRetryDelayCap   = 20 * time.Second
	listRetryMultiplier = 1.5
)

// CatalogEntry is one workflow definition the deployment expects to exist
type CatalogEntry struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Catalog is the declarative set of expected workflow definitions
type Catalog struct {
	Workflows []CatalogEntry `yaml:"workflows"`
}

// LoadCatalog reads the workflow catalog from a YAML file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	if len(catalog.Workflows) == 0 {
		return nil, fmt.Errorf("catalog %s lists no workflows", path)
	}
	return &catalog, nil
}

// Provisioner reconciles the catalog against the service and the registry
type Provisioner struct {
	api           omics.RunService
	registry      interfaces.RegistryStorage
	artifactsBase string
	executionRole string
	resourceGroup string
	logger        arbor.ILogger
	sleep         func(time.Duration)
}

// NewProvisioner creates a provisioner. artifactsBase is the URI prefix under
// which definition bundles were uploaded.
func NewProvisioner(api omics.RunService, registry interfaces.RegistryStorage, artifactsBase, executionRole, resourceGroup string, logger arbor.ILogger) *Provisioner {
	return &Provisioner{
		api:           api,
		registry:      registry,
		artifactsBase: artifactsBase,
		executionRole: executionRole,
		resourceGroup: resourceGroup,
		logger:        logger,
		sleep:         time.Sleep,
	}
}

// DefinitionURI is the bundle location for a catalog entry
func (p *Provisioner) DefinitionURI(entry CatalogEntry) string {
	return fmt.Sprintf("%s/%s/nf-core-%s_%s.zip", p.artifactsBase, entry.Name, entry.Name, entry.Version)
}

// Provision ensures every catalog entry exists as a workflow definition and
// is recorded in the registry. Safe to run repeatedly.
func (p *Provisioner) Provision(ctx context.Context, catalog *Catalog) error {
	expected := make(map[string]CatalogEntry, len(catalog.Workflows))
	for _, entry := range catalog.Workflows {
		defName := models.DefinitionName(entry.Name, entry.Version)
		expected[defName] = entry

		if err := p.ensureWorkflow(ctx, defName, entry); err != nil {
			return err
		}
	}

	found, err := p.awaitVisible(ctx, expected)
	if err != nil {
		return err
	}

	for defName, entry := range expected {
		summary := found[defName]
		record := &models.WorkflowEntry{
			Name:          entry.Name,
			Version:       entry.Version,
			DefinitionRef: summary.ID,
			ExecutionRole: p.executionRole,
			ResourceGroup: p.resourceGroup,
		}
		if err := p.registry.Put(ctx, record); err != nil {
			return fmt.Errorf("failed to record workflow %s in registry: %w", entry.Name, err)
		}
		p.logger.Info().
			Str("workflow", entry.Name).
			Str("version", entry.Version).
			Str("definition_id", summary.ID).
			Msg("Workflow registered")
	}

	return nil
}

// ensureWorkflow creates the definition unless one with the same name exists
func (p *Provisioner) ensureWorkflow(ctx context.Context, defName string, entry CatalogEntry) error {
	existing, err := p.api.ListWorkflows(ctx, defName)
	if err != nil {
		return fmt.Errorf("failed to list workflows for %s: %w", defName, err)
	}
	if len(existing) > 0 {
		p.logger.Debug().
			Str("definition", defName).
			Str("definition_id", existing[0].ID).
			Msg("Workflow definition already present")
		return nil
	}

	uri := p.DefinitionURI(entry)
	p.logger.Info().
		Str("definition", defName).
		Str("definition_uri", uri).
		Msg("Creating workflow definition")

	_, err = p.api.CreateWorkflow(ctx, omics.CreateWorkflowRequest{
		Name:          defName,
		Description:   fmt.Sprintf("nf-core/%s %s", entry.Name, entry.Version),
		DefinitionURI: uri,
		Tags: map[string]string{
			"workflow": entry.Name,
			"version":  entry.Version,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create workflow %s: %w", defName, err)
	}
	return nil
}

// awaitVisible polls workflow listings until every expected definition shows
// up, backing off between attempts. Newly created definitions can take a few
// listing cycles to appear.
func (p *Provisioner) awaitVisible(ctx context.Context, expected map[string]CatalogEntry) (map[string]omics.WorkflowSummary, error) {
	found := make(map[string]omics.WorkflowSummary, len(expected))
	delay := listRetryBaseDelay

	for attempt := 1; attempt <= listRetryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		all, err := p.api.ListWorkflows(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list workflows: %w", err)
		}
		for _, summary := range all {
			if _, want := expected[summary.Name]; want {
				found[summary.Name] = summary
			}
		}
		if len(found) == len(expected) {
			return found, nil
		}

		p.logger.Warn().
			Int("attempt", attempt).
			Int("found", len(found)).
			Int("expected", len(expected)).
			Msg("Waiting for workflow definitions to become visible")

		p.sleep(delay)
		delay = time.Duration(float64(delay) * listRetryMultiplier)
		if delay > listRetryDelayCap {
			delay = listRetryDelayCap
		}
	}

	missing := make([]string, 0)
	for defName := range expected {
		if _, ok := found[defName]; !ok {
			missing = append(missing, defName)
		}
	}
	return nil, fmt.Errorf("workflow definitions never became visible: %v", missing)
}
