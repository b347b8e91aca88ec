// Package lifecycle defines the ordered delivery stages a project moves
// through and the rules for moving between them. The registry is a fixed
// process-wide table; everything exported here is a pure function over it.
package lifecycle

// Stage is a machine key for one of the nine delivery stages.
type Stage string

const (
	StagePreSales     Stage = "pre_sales"
	StageDiscovery    Stage = "discovery"
	StageProvisioning Stage = "provisioning"
	StageBobConfig    Stage = "bob_config"
	StageMapping      Stage = "mapping"
	StageBuild        Stage = "build"
	StageUAT          Stage = "uat"
	StageGoLive       Stage = "go_live"
	StageSupport      Stage = "support"
)

// StageInfo describes one registry entry. Slug is empty for stages that
// have no routable sub-page (pre_sales and support).
type StageInfo struct {
	Key   Stage  `json:"key"`
	Label string `json:"label"`
	Slug  string `json:"slug,omitempty"`
}

// Stages is the canonical ordered registry. Order is the source of truth
// for every index comparison; do not reorder.
var Stages = []StageInfo{
	{Key: StagePreSales, Label: "Pre-Sales"},
	{Key: StageDiscovery, Label: "Discovery", Slug: "discovery"},
	{Key: StageProvisioning, Label: "Provisioning", Slug: "provisioning"},
	{Key: StageBobConfig, Label: "Bob Configuration", Slug: "bob-config"},
	{Key: StageMapping, Label: "Data Mapping", Slug: "mapping"},
	{Key: StageBuild, Label: "Build", Slug: "build"},
	{Key: StageUAT, Label: "UAT", Slug: "uat"},
	{Key: StageGoLive, Label: "Go-Live", Slug: "go-live"},
	{Key: StageSupport, Label: "Support"},
}

// Status is the derived per-stage UI state for a project.
type Status string

const (
	StatusComplete Status = "complete"
	StatusActive   Status = "active"
	StatusLocked   Status = "locked"
)

// Index returns the zero-based position of key in the registry, or -1 if
// key is not a member. The -1 sentinel is the basis for every ordering
// comparison in this package.
func Index(key Stage) int {
	for i, s := range Stages {
		if s.Key == key {
			return i
		}
	}
	return -1
}

// IsValid reports whether key is a member of the registry.
func IsValid(key Stage) bool {
	return Index(key) >= 0
}

// Parse converts an externally supplied string into a Stage. It is the
// single fallible string-to-enum boundary; internal code passes Stage
// values around and never re-validates.
func Parse(s string) (Stage, error) {
	key := Stage(s)
	if !IsValid(key) {
		return "", ErrInvalidStage
	}
	return key, nil
}

// Label returns the human-readable label for key, falling back to the raw
// key for unrecognized input.
func Label(key Stage) string {
	if i := Index(key); i >= 0 {
		return Stages[i].Label
	}
	return string(key)
}

// Slug returns the routable URL segment for key, or "" when the stage has
// no sub-page or the key is unrecognized.
func Slug(key Stage) string {
	if i := Index(key); i >= 0 {
		return Stages[i].Slug
	}
	return ""
}

// FromSlug is the inverse of Slug. The second return is false for an
// unrecognized slug. Slugless stages are not reachable this way.
func FromSlug(slug string) (Stage, bool) {
	if slug == "" {
		return "", false
	}
	for _, s := range Stages {
		if s.Slug == slug {
			return s.Key, true
		}
	}
	return "", false
}

// Next returns the stage one position forward and true, or false when key
// is unrecognized or already the last stage.
func Next(key Stage) (Stage, bool) {
	i := Index(key)
	if i < 0 || i >= len(Stages)-1 {
		return "", false
	}
	return Stages[i+1].Key, true
}

// Prev returns the stage one position back and true, or false when key is
// unrecognized or already the first stage.
func Prev(key Stage) (Stage, bool) {
	i := Index(key)
	if i <= 0 {
		return "", false
	}
	return Stages[i-1].Key, true
}

// DeriveStatus classifies target relative to a project's current stage:
// complete when target sits before current, active when equal, locked when
// after. An unrecognized target has index -1 and therefore classifies as
// complete against any valid current stage; callers that need strictness
// must Parse first.
func DeriveStatus(target, current Stage) Status {
	ti, ci := Index(target), Index(current)
	switch {
	case ti < ci:
		return StatusComplete
	case ti == ci:
		return StatusActive
	default:
		return StatusLocked
	}
}

// First and Last return the boundary stages of the registry.
func First() Stage { return Stages[0].Key }
func Last() Stage  { return Stages[len(Stages)-1].Key }
