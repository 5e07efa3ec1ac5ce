package model

import "fmt"

// RelationType is the kind of causal link in a triple
type RelationType string

const (
	RelationCauses RelationType = "CAUSES"
)

// TemporalRelation orders a cause and its effect in time
type TemporalRelation string

const (
	TemporalBefore       TemporalRelation = "BEFORE"
	TemporalAfter        TemporalRelation = "AFTER"
	TemporalDuring       TemporalRelation = "DURING"
	TemporalStarts       TemporalRelation = "STARTS"
	TemporalEnds         TemporalRelation = "ENDS"
	TemporalSimultaneous TemporalRelation = "SIMULTANEOUS"
	TemporalWith         TemporalRelation = "WITH"
	TemporalUnknown      TemporalRelation = "UNKNOWN"
)

// TemporalRelations lists the closed set of temporal labels
var TemporalRelations = []TemporalRelation{
	TemporalBefore, TemporalAfter, TemporalDuring, TemporalStarts,
	TemporalEnds, TemporalSimultaneous, TemporalWith, TemporalUnknown,
}

// Valid reports whether r belongs to the closed set
func (r TemporalRelation) Valid() bool {
	for _, known := range TemporalRelations {
		if r == known {
			return true
		}
	}
	return false
}

// CausalTriple is one extracted "cause -> effect" statement
type CausalTriple struct {
	Cause            string            `json:"cause"`
	Effect           string            `json:"effect"`
	RelationType     RelationType      `json:"relation_type"`
	Confidence       float64           `json:"confidence"`
	TemporalRelation *TemporalRelation `json:"temporal_relation"`
	DomainCategory   *string           `json:"domain_category"`

	Source   string `json:"source,omitempty"` // Which strategy produced it (e.g., "pattern:lead_to")
	Sentence int    `json:"sentence"`         // Sentence index in the document (0-based)
}

// SetTemporalRelation sets the temporal label
func (t *CausalTriple) SetTemporalRelation(r TemporalRelation) {
	t.TemporalRelation = &r
}

// Temporal returns the temporal label or "" when unset
func (t CausalTriple) Temporal() TemporalRelation {
	if t.TemporalRelation == nil {
		return ""
	}
	return *t.TemporalRelation
}

func (t CausalTriple) String() string {
	category := ""
	if t.DomainCategory != nil {
		category = *t.DomainCategory
	}
	return fmt.Sprintf("CausalTriple{cause='%s', effect='%s', relationType='%s', confidence=%.2f, temporalRelation='%s', domainCategory='%s'}",
		t.Cause, t.Effect, t.RelationType, t.Confidence, t.Temporal(), category)
}
