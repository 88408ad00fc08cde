// Package samples prepares raw sequencing read directories for orchestration:
// it pairs FASTQ files, writes per-job-type samplesheets and emits the
// run_manifest.json that triggers a run.
package samples

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// FastqPair is the forward/reverse read file pair for one sample
type FastqPair struct {
	Sample string
	R1     string
	R2     string
}

var (
	readSuffixR     = regexp.MustCompile(`^(.+)_(R[12])\.fastq\.gz$`)
	readSuffixDigit = regexp.MustCompile(`^(.+)_([12])\.fastq\.gz$`)
)

// FindPairs scans a directory for *.fastq.gz files and pairs them by sample
// name. Both _R1/_R2 and bare _1/_2 suffix conventions are recognized, and a
// pair may mix them. Unpaired files are ignored.
func FindPairs(dir string) ([]FastqPair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".gz" {
			names[entry.Name()] = true
		}
	}

	seen := make(map[string]bool)
	var pairs []FastqPair
	var sorted []string
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	for _, fname := range sorted {
		sample, read, ok := splitRead(fname)
		if !ok || seen[sample] {
			continue
		}

		var r1, r2 string
		if read == "R1" {
			r1 = fname
			r2 = firstPresent(names, sample+"_R2.fastq.gz", sample+"_2.fastq.gz")
		} else {
			r2 = fname
			r1 = firstPresent(names, sample+"_R1.fastq.gz", sample+"_1.fastq.gz")
		}
		if r1 == "" || r2 == "" {
			continue
		}

		pairs = append(pairs, FastqPair{Sample: sample, R1: r1, R2: r2})
		seen[sample] = true
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Sample < pairs[j].Sample })
	return pairs, nil
}

// splitRead extracts the sample name and normalized read designator (R1/R2)
func splitRead(fname string) (sample, read string, ok bool) {
	if m := readSuffixR.FindStringSubmatch(fname); m != nil {
		return m[1], m[2], true
	}
	if m := readSuffixDigit.FindStringSubmatch(fname); m != nil {
		return m[1], "R" + m[2], true
	}
	return "", "", false
}

func firstPresent(names map[string]bool, candidates ...string) string {
	for _, c := range candidates {
		if names[c] {
			return c
		}
	}
	return ""
}
