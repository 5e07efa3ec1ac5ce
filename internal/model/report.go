package model

import "time"

// Report is the complete analysis of one input document
type Report struct {
	Subject     string     `json:"subject"`              // Human-readable name of the input (file name, URL path)
	Source      string     `json:"source"`               // Path or URL the text came from
	ProcessedAt time.Time  `json:"processed_at"`         // When the pipeline ran
	FetchMeta   *FetchMeta `json:"fetch_meta,omitempty"` // HTTP metadata for URL inputs

	Sentences int            `json:"sentences"` // Number of annotated sentences
	Triples   []CausalTriple `json:"triples"`   // Extracted, tagged, adapted triples

	Terms           []RecognizedTerm `json:"terms,omitempty"`            // Financial terms found in the text
	TimeExpressions []string         `json:"time_expressions,omitempty"` // Explicit dates and relative time words

	Stats Stats `json:"stats"`
}

// FetchMeta contains HTTP metadata from fetching a URL input
type FetchMeta struct {
	StatusCode   int               `json:"status_code"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	FromCache    bool              `json:"from_cache"`
}

// RecognizedTerm is a dictionary term found in the input by fuzzy lookup
type RecognizedTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Category   string `json:"category,omitempty"` // Empty when the taxonomy has no bucket for it
}

// Stats summarizes a report's triples
type Stats struct {
	Total          int                      `json:"total"`
	ByTemporal     map[TemporalRelation]int `json:"by_temporal"`
	BySource       map[string]int           `json:"by_source"`
	MeanConfidence float64                  `json:"mean_confidence"`
}

// ComputeStats builds Stats from a triple list
func ComputeStats(triples []CausalTriple) Stats {
	stats := Stats{
		Total:      len(triples),
		ByTemporal: make(map[TemporalRelation]int),
		BySource:   make(map[string]int),
	}

	sum := 0.0
	for _, t := range triples {
		if t.TemporalRelation != nil {
			stats.ByTemporal[*t.TemporalRelation]++
		}
		stats.BySource[strategyOf(t.Source)]++
		sum += t.Confidence
	}
	if len(triples) > 0 {
		stats.MeanConfidence = sum / float64(len(triples))
	}

	return stats
}

// strategyOf maps "pattern:lead_to" to "pattern"
func strategyOf(source string) string {
	for i := 0; i < len(source); i++ {
		if source[i] == ':' {
			return source[:i]
		}
	}
	if source == "" {
		return "unknown"
	}
	return source
}
