package command

// Phase is a fixed point in the expansion lifecycle at which queued
// commands run.
type Phase int

// Phases in execution order. Interpolation resolution happens between
// PreResolution and PostResolution, key filtering between PreFiltering and
// PostFiltering.
const (
	PreExpansion Phase = iota + 1
	AtExpansion
	PostExpansion
	PreResolution
	PostResolution
	PreFiltering
	PostFiltering
)

var phaseNames = map[Phase]string{
	PreExpansion:   "pre_expansion",
	AtExpansion:    "at_expansion",
	PostExpansion:  "post_expansion",
	PreResolution:  "pre_resolution",
	PostResolution: "post_resolution",
	PreFiltering:   "pre_filtering",
	PostFiltering:  "post_filtering",
}

// Phases returns every phase in execution order.
func Phases() []Phase {
	return []Phase{
		PreExpansion,
		AtExpansion,
		PostExpansion,
		PreResolution,
		PostResolution,
		PreFiltering,
		PostFiltering,
	}
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}
