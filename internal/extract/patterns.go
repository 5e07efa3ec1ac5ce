package extract

import "regexp"

// Roles maps a pattern's capture groups to cause and effect
type Roles struct {
	CauseGroup  int
	EffectGroup int
}

// Forward reads group 1 as cause and group 2 as effect
var Forward = Roles{CauseGroup: 1, EffectGroup: 2}

// Reversed reads group 1 as effect and group 2 as cause ("B，是因为A")
var Reversed = Roles{CauseGroup: 2, EffectGroup: 1}

// Pattern is one row of the causal pattern table
type Pattern struct {
	Name  string
	Re    *regexp.Regexp
	Roles Roles
}

// DefaultMarkers returns the causal marker words. A sentence containing none
// of them is not tried against any pattern.
func DefaultMarkers() []string {
	return []string{
		"因为", "由于", "导致", "引起", "致使", "使得", "所以", "因此", "造成",
		"引发", "促使", "促进", "带来", "产生", "形成", "决定", "影响", "源于",
		"基于", "取决于", "归因于", "缘于", "出于", "鉴于", "考虑到",
	}
}

// DefaultPatterns returns the causal pattern table, in evaluation order
func DefaultPatterns() []Pattern {
	return []Pattern{
		// 因为A，所以B
		{Name: "because_so", Re: regexp.MustCompile(`因为(.+?)，\s*所以(.+)`), Roles: Forward},
		// 由于A，B
		{Name: "due_to", Re: regexp.MustCompile(`由于(.+?)，(.+)`), Roles: Forward},
		// A导致B
		{Name: "lead_to", Re: regexp.MustCompile(`(.+?)导致(.+)`), Roles: Forward},
		// A引起B
		{Name: "give_rise_to", Re: regexp.MustCompile(`(.+?)引起(.+)`), Roles: Forward},
		// A致使B
		{Name: "result_in", Re: regexp.MustCompile(`(.+?)致使(.+)`), Roles: Forward},
		// A使得B
		{Name: "make", Re: regexp.MustCompile(`(.+?)使得(.+)`), Roles: Forward},
		// 因A而B
		{Name: "because_of", Re: regexp.MustCompile(`因(.+?)而(.+)`), Roles: Forward},
	}
}

// DefaultDependencyLabels returns the relation labels treated as causal
func DefaultDependencyLabels() []string {
	return []string{"conj:因为", "conj:所以", "advmod", "mark"}
}
