package samples

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ternarybob/strand/internal/models"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFindPairs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"sampleA_R1.fastq.gz", "sampleA_R2.fastq.gz",
		"sampleB_1.fastq.gz", "sampleB_2.fastq.gz",
		"sampleC_R1.fastq.gz", "sampleC_2.fastq.gz", // mixed suffix conventions pair up
		"orphan_R1.fastq.gz",           // no mate
		"notes.txt", "index.fastq.gz",  // not read files
	)

	pairs, err := FindPairs(dir)
	if err != nil {
		t.Fatalf("FindPairs failed: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("found %d pairs, want 3: %+v", len(pairs), pairs)
	}

	// Sorted by sample name
	if pairs[0].Sample != "sampleA" || pairs[1].Sample != "sampleB" || pairs[2].Sample != "sampleC" {
		t.Errorf("pair order = %+v", pairs)
	}
	if pairs[0].R1 != "sampleA_R1.fastq.gz" || pairs[0].R2 != "sampleA_R2.fastq.gz" {
		t.Errorf("sampleA pair = %+v", pairs[0])
	}
	if pairs[2].R1 != "sampleC_R1.fastq.gz" || pairs[2].R2 != "sampleC_2.fastq.gz" {
		t.Errorf("sampleC pair = %+v", pairs[2])
	}
}

func TestFindPairsEmptyDir(t *testing.T) {
	pairs, err := FindPairs(t.TempDir())
	if err != nil {
		t.Fatalf("FindPairs failed: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("found %d pairs, want 0", len(pairs))
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestWriteSamplesheetDefaultHeader(t *testing.T) {
	dir := t.TempDir()
	pairs := []FastqPair{
		{Sample: "s1", R1: "s1_R1.fastq.gz", R2: "s1_R2.fastq.gz"},
	}

	path, err := WriteSamplesheet(dir, "mag", "s3://in", "batch-42", pairs)
	if err != nil {
		t.Fatalf("WriteSamplesheet failed: %v", err)
	}
	if filepath.Base(path) != "samplesheet_mag.csv" {
		t.Errorf("file name = %q", filepath.Base(path))
	}

	rows := readCSV(t, path)
	if strings.Join(rows[0], ",") != "sample,fastq_1,fastq_2" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "s3://in/batch-42/s1_R1.fastq.gz" {
		t.Errorf("fastq_1 = %q", rows[1][1])
	}
}

func TestWriteSamplesheetAmpliseqHeader(t *testing.T) {
	dir := t.TempDir()
	pairs := []FastqPair{{Sample: "s1", R1: "s1_R1.fastq.gz", R2: "s1_R2.fastq.gz"}}

	path, err := WriteSamplesheet(dir, "ampliseq", "s3://in", "r", pairs)
	if err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, path)
	if strings.Join(rows[0], ",") != "sampleID,forwardReads,reverseReads" {
		t.Errorf("header = %v", rows[0])
	}
}

func TestWriteSamplesheetRnaseqStrandedness(t *testing.T) {
	dir := t.TempDir()
	pairs := []FastqPair{{Sample: "s1", R1: "s1_R1.fastq.gz", R2: "s1_R2.fastq.gz"}}

	path, err := WriteSamplesheet(dir, "rnaseq", "s3://in", "r", pairs)
	if err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, path)
	if strings.Join(rows[0], ",") != "sample,fastq_1,fastq_2,strandedness" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][3] != "auto" {
		t.Errorf("strandedness = %q", rows[1][3])
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteManifest(dir, "batch-42", "s3://in", "s3://out", []string{"mag", "rnaseq"})
	if err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	manifest, err := models.ManifestFromJSON(data)
	if err != nil {
		t.Fatalf("written manifest does not validate: %v", err)
	}
	if manifest.RunLabel != "batch-42" || manifest.OutputBase != "s3://out" {
		t.Errorf("manifest = %+v", manifest)
	}
	if manifest.Samplesheets["mag"] != "s3://in/batch-42/samplesheet_mag.csv" {
		t.Errorf("mag samplesheet = %q", manifest.Samplesheets["mag"])
	}
	if manifest.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}
