package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
)

func TestResolveOrderAndShape(t *testing.T) {
	resolver := NewResolver(&fakeRegistry{}, arbor.NewLogger())

	specs, err := resolver.Resolve(context.Background(), testManifest())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("resolved %d specs, want 2", len(specs))
	}

	// Lexical order keeps launch ordering deterministic
	if specs[0].JobType != "mag" || specs[1].JobType != "metatdenovo" {
		t.Errorf("job types = %q, %q; want mag, metatdenovo", specs[0].JobType, specs[1].JobType)
	}

	spec := specs[0]
	if spec.InputLocator != "s3://in/batch-42/samplesheet_mag.csv" {
		t.Errorf("InputLocator = %q", spec.InputLocator)
	}
	if spec.OutputLocator != "s3://out/batch-42/mag/" {
		t.Errorf("OutputLocator = %q", spec.OutputLocator)
	}
	if spec.JobDefinitionRef != "wf-mag" {
		t.Errorf("JobDefinitionRef = %q", spec.JobDefinitionRef)
	}
	if spec.ExecutionRole != "role-x" || spec.ResourceGroup != "group-x" {
		t.Errorf("role/group = %q/%q", spec.ExecutionRole, spec.ResourceGroup)
	}
}

func TestResolveSkipsAbsentSamplesheet(t *testing.T) {
	manifest := testManifest()
	manifest.Samplesheets["ampliseq"] = ""

	resolver := NewResolver(&fakeRegistry{}, arbor.NewLogger())
	specs, err := resolver.Resolve(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	for _, spec := range specs {
		if spec.JobType == "ampliseq" {
			t.Error("job type with empty samplesheet must not resolve")
		}
	}
	if len(specs) != 2 {
		t.Errorf("resolved %d specs, want 2", len(specs))
	}
}

func TestResolveSkipsUnregisteredJobType(t *testing.T) {
	registry := &fakeRegistry{
		lookupFunc: func(ctx context.Context, jobType string) (*models.WorkflowEntry, error) {
			if jobType == "mag" {
				return nil, interfaces.ErrWorkflowNotFound
			}
			return &models.WorkflowEntry{Name: jobType, DefinitionRef: "wf-" + jobType}, nil
		},
	}

	resolver := NewResolver(registry, arbor.NewLogger())
	specs, err := resolver.Resolve(context.Background(), testManifest())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Configuration error for one job type does not abort the batch
	if len(specs) != 1 {
		t.Fatalf("resolved %d specs, want 1", len(specs))
	}
	if specs[0].JobType != "metatdenovo" {
		t.Errorf("resolved job type = %q, want metatdenovo", specs[0].JobType)
	}
}

func TestResolveParametersPassThrough(t *testing.T) {
	manifest := testManifest()
	manifest.Parameters = map[string]string{"mag": "s3://in/batch-42/params_mag.json"}

	resolver := NewResolver(&fakeRegistry{}, arbor.NewLogger())
	specs, err := resolver.Resolve(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	for _, spec := range specs {
		if spec.JobType == "mag" {
			if spec.ExtraParameters["params"] != "s3://in/batch-42/params_mag.json" {
				t.Errorf("params = %q", spec.ExtraParameters["params"])
			}
		} else if len(spec.ExtraParameters) != 0 {
			t.Errorf("%s should carry no extra parameters", spec.JobType)
		}
	}
}

func TestResolveRejectsInvalidManifest(t *testing.T) {
	resolver := NewResolver(&fakeRegistry{}, arbor.NewLogger())

	_, err := resolver.Resolve(context.Background(), &models.Manifest{RunLabel: "x"})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestResolveAllLookupsFail(t *testing.T) {
	registry := &fakeRegistry{
		lookupFunc: func(ctx context.Context, jobType string) (*models.WorkflowEntry, error) {
			return nil, errors.New("registry unavailable")
		},
	}

	resolver := NewResolver(registry, arbor.NewLogger())
	specs, err := resolver.Resolve(context.Background(), testManifest())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(specs) != 0 {
		t.Errorf("resolved %d specs, want 0", len(specs))
	}
}
