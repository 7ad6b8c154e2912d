// Package resource defines exclusive-use tokens for actuator groups.
package resource

// Resource is a named token for one controllable actuator group.
// Resources are compared by pointer identity; the name is for humans and config.
type Resource struct {
	name     string
	periodic func() error
}

// New creates a resource with the given name.
func New(name string) *Resource {
	return &Resource{name: name}
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.name }

// String implements fmt.Stringer.
func (r *Resource) String() string { return r.name }

// OnPeriodic installs a hook called once per period by the scheduler,
// whether or not an action currently owns the resource.
func (r *Resource) OnPeriodic(fn func() error) {
	r.periodic = fn
}

// HasPeriodic reports whether a periodic hook is installed.
func (r *Resource) HasPeriodic() bool {
	return r.periodic != nil
}

// Periodic runs the installed hook, if any.
func (r *Resource) Periodic() error {
	if r.periodic == nil {
		return nil
	}
	return r.periodic()
}

// Union returns the resources of all sets in first-seen order without duplicates.
func Union(sets ...[]*Resource) []*Resource {
	var out []*Resource
	seen := make(map[*Resource]struct{})
	for _, set := range sets {
		for _, r := range set {
			if r == nil {
				continue
			}
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// Names returns the names of the given resources, in order.
func Names(rs []*Resource) []string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.name
	}
	return names
}
