// Package samples derives per-sample completeness views from a catalog.
//
// The pipeline writes each sample's quantification outputs under
// "<project>/Salmon_Quant/<sample>/…" and drops a terminal
// "<project>/Salmon_Quant/<sample>.done" marker once the sample finishes.
// Aggregate reconstructs that per-sample state from the flat key listing.
package samples

import (
	"sort"
	"strings"
	"time"

	"github.com/seqops/seqbrowse/internal/catalog"
)

// OutputArea is the path segment that marks the sample-output area.
const OutputArea = "Salmon_Quant/"

// Expected artifact names within one sample's output directory.
const (
	quantFile     = "quant.sf"               // primary quantification
	geneQuantFile = "quant.genes.sf"         // secondary per-feature quantification
	logFile       = "salmon_quant.log"       // run log
	metaFile      = "lib_format_counts.json" // library metadata
	doneSuffix    = ".done"                  // terminal marker
)

// SampleRecord is the derived, read-only completeness view of one sample.
type SampleRecord struct {
	SampleID string `json:"sample_id"`

	// Complete is true when the sample's terminal marker file exists.
	Complete bool `json:"complete"`

	// Presence flags for the expected artifact types.
	HasQuant     bool `json:"has_quant"`
	HasGeneQuant bool `json:"has_gene_quant"`
	HasLog       bool `json:"has_log"`
	HasMeta      bool `json:"has_meta"`

	// FileCount counts every key attributed to the sample, matched or not.
	FileCount int `json:"file_count"`

	// LatestModified is the newest timestamp across the sample's files.
	LatestModified time.Time `json:"latest_modified"`
}

// Aggregate computes the sample view for cat. It is a pure function of its
// input: the same set of records yields the same output regardless of row
// order, and the catalog is never mutated.
//
// Samples whose keys match none of the expected artifact patterns are
// excluded from the result. Output is sorted complete-first, then by
// ascending SampleID.
func Aggregate(cat *catalog.Catalog) []SampleRecord {
	if cat == nil {
		return nil
	}

	bySample := map[string]*SampleRecord{}

	for _, rec := range cat.Records {
		id, rest, ok := splitSampleKey(rec.Key)
		if !ok {
			continue
		}

		sr := bySample[id]
		if sr == nil {
			sr = &SampleRecord{SampleID: id}
			bySample[id] = sr
		}

		sr.FileCount++
		if rec.LastModified.After(sr.LatestModified) {
			sr.LatestModified = rec.LastModified
		}

		switch {
		case rest == "":
			// the ".done" marker itself
			sr.Complete = true
		case baseName(rest) == quantFile:
			sr.HasQuant = true
		case baseName(rest) == geneQuantFile:
			sr.HasGeneQuant = true
		case baseName(rest) == logFile:
			sr.HasLog = true
		case baseName(rest) == metaFile:
			sr.HasMeta = true
		}
	}

	out := make([]SampleRecord, 0, len(bySample))
	for _, sr := range bySample {
		if !sr.Complete && !sr.HasQuant && !sr.HasGeneQuant && !sr.HasLog && !sr.HasMeta {
			continue
		}
		out = append(out, *sr)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Complete != out[j].Complete {
			return out[i].Complete
		}
		return out[i].SampleID < out[j].SampleID
	})
	return out
}

// splitSampleKey extracts the sample id from a key under the output area.
//
// Two structural patterns identify a sample, preferring (a) when a key
// could satisfy both:
//
//	(a) a directory segment immediately after the marker:
//	    "proj/Salmon_Quant/S1/quant.sf"    → id "S1", rest "quant.sf"
//	(b) the stem of the terminal marker file:
//	    "proj/Salmon_Quant/S1.done"        → id "S1", rest ""
//
// Keys outside the output area, or bare files under it that are not done
// markers, yield ok == false.
func splitSampleKey(key string) (id, rest string, ok bool) {
	idx := outputAreaIndex(key)
	if idx < 0 {
		return "", "", false
	}
	tail := key[idx+len(OutputArea):]
	if tail == "" {
		return "", "", false
	}

	if head, remainder, found := strings.Cut(tail, "/"); found {
		if head == "" || remainder == "" {
			return "", "", false
		}
		return head, remainder, true
	}

	if stem, found := strings.CutSuffix(tail, doneSuffix); found && stem != "" {
		return stem, "", true
	}
	return "", "", false
}

// outputAreaIndex returns the offset of the output-area marker when it
// appears as a whole path segment, or -1. A mid-segment match (e.g.
// "Old_Salmon_Quant/") is not the output area.
func outputAreaIndex(key string) int {
	if strings.HasPrefix(key, OutputArea) {
		return 0
	}
	if i := strings.Index(key, "/"+OutputArea); i >= 0 {
		return i + 1
	}
	return -1
}

func baseName(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}
