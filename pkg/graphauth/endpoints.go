package graphauth

import (
	"fmt"
	"sort"
	"sync"
)

// EndpointRegistry maps cloud identifiers to their endpoint sets.
// It provides thread-safe lookup; resolution is pure and performs no I/O.
type EndpointRegistry struct {
	mu     sync.RWMutex
	clouds map[Cloud]EndpointSet
}

// DefaultEndpoints is the registry preloaded with the supported clouds.
var DefaultEndpoints = NewEndpointRegistry(
	EndpointSet{
		Cloud:        CloudCommercial,
		AuthorityURL: "https://login.microsoftonline.com",
		GraphBaseURL: "https://graph.microsoft.com",
	},
	EndpointSet{
		Cloud:        CloudGovernment,
		AuthorityURL: "https://login.microsoftonline.us",
		GraphBaseURL: "https://graph.microsoft.us",
	},
	EndpointSet{
		Cloud:        CloudGCCHigh,
		AuthorityURL: "https://login.microsoftonline.us",
		GraphBaseURL: "https://dod-graph.microsoft.us",
	},
)

// NewEndpointRegistry creates a registry holding the given endpoint sets.
func NewEndpointRegistry(sets ...EndpointSet) *EndpointRegistry {
	r := &EndpointRegistry{clouds: make(map[Cloud]EndpointSet, len(sets))}
	for _, s := range sets {
		r.clouds[s.Cloud] = s
	}
	return r
}

// Register adds an endpoint set to the registry. Adding a cloud means
// adding an entry here, not changing call sites.
func (r *EndpointRegistry) Register(set EndpointSet) error {
	if set.Cloud == "" || set.AuthorityURL == "" || set.GraphBaseURL == "" {
		return ErrValidation("endpoint set requires cloud, authority URL, and graph base URL")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clouds[set.Cloud]; exists {
		return fmt.Errorf("cloud already registered: %s", set.Cloud)
	}
	r.clouds[set.Cloud] = set
	return nil
}

// Resolve returns the endpoint set for a cloud. A lookup miss fails loudly:
// a misconfigured sovereign-cloud deployment must never fall back to the
// commercial authority.
func (r *EndpointRegistry) Resolve(c Cloud) (EndpointSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, exists := r.clouds[c]
	if !exists {
		return EndpointSet{}, ErrUnknownCloud(c).WithOperation("resolve")
	}
	return set, nil
}

// List returns all registered endpoint sets, ordered by cloud identifier.
func (r *EndpointRegistry) List() []EndpointSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sets := make([]EndpointSet, 0, len(r.clouds))
	for _, s := range r.clouds {
		sets = append(sets, s)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Cloud < sets[j].Cloud })
	return sets
}

// ResolveCloud resolves a cloud against the default registry.
func ResolveCloud(c Cloud) (EndpointSet, error) {
	return DefaultEndpoints.Resolve(c)
}

// ParseCloud converts a user-supplied cloud name to a Cloud identifier.
// Unrecognized names pass through unchanged so Resolve can reject them
// with the cloud name in the error.
func ParseCloud(name string) Cloud {
	switch name {
	case "", "commercial", "global":
		return CloudCommercial
	case "government", "usgov":
		return CloudGovernment
	case "gcchigh", "usgovdod":
		return CloudGCCHigh
	default:
		return Cloud(name)
	}
}
