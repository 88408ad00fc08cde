package samples

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/strand/internal/models"
)

// headerByJobType controls samplesheet columns per job type. Job types not
// listed fall back to the sample/fastq_1/fastq_2 convention.
var headerByJobType = map[string][]string{
	"mag":         {"sample", "fastq_1", "fastq_2"},
	"metatdenovo": {"sample", "fastq_1", "fastq_2"},
	"ampliseq":    {"sampleID", "forwardReads", "reverseReads"},
	"rnaseq":      {"sample", "fastq_1", "fastq_2", "strandedness"},
}

var defaultHeader = []string{"sample", "fastq_1", "fastq_2"}

// SamplesheetFileName is the conventional file name for a job type's samplesheet
func SamplesheetFileName(jobType string) string {
	return fmt.Sprintf("samplesheet_%s.csv", strings.ToLower(jobType))
}

// WriteSamplesheet writes the samplesheet for one job type into dir. Read
// file references are absolute URIs built from inputBase and runLabel, since
// the launched job reads them from the artifact store, not the local disk.
func WriteSamplesheet(dir, jobType, inputBase, runLabel string, pairs []FastqPair) (string, error) {
	jt := strings.ToLower(jobType)
	header, ok := headerByJobType[jt]
	if !ok {
		header = defaultHeader
	}

	outPath := filepath.Join(dir, SamplesheetFileName(jt))
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create samplesheet: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write samplesheet header: %w", err)
	}

	for _, pair := range pairs {
		r1 := fmt.Sprintf("%s/%s/%s", inputBase, runLabel, pair.R1)
		r2 := fmt.Sprintf("%s/%s/%s", inputBase, runLabel, pair.R2)

		row := []string{pair.Sample, r1, r2}
		if jt == "rnaseq" {
			row = append(row, "auto")
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write samplesheet row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush samplesheet: %w", err)
	}
	return outPath, nil
}

// WriteManifest writes a run_manifest.json into dir covering the given job
// types, referencing each samplesheet by its artifact URI.
func WriteManifest(dir, runLabel, inputBase, outputBase string, jobTypes []string) (string, error) {
	manifest := &models.Manifest{
		RunLabel:     runLabel,
		Timestamp:    time.Now().UTC(),
		Samplesheets: make(map[string]string, len(jobTypes)),
		OutputBase:   outputBase,
	}
	for _, jobType := range jobTypes {
		jt := strings.ToLower(jobType)
		manifest.Samplesheets[jt] = fmt.Sprintf("%s/%s/%s", inputBase, runLabel, SamplesheetFileName(jt))
	}

	data, err := manifest.ToJSON()
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(dir, "run_manifest.json")
	if err := os.WriteFile(outPath, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return outPath, nil
}
