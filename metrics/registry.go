package metrics

import (
	"fmt"
	"sort"
	"sync"
)

// DuplicateMetric is the error returned by Registry.Register when a metric
// already exists.
type DuplicateMetric string

func (err DuplicateMetric) Error() string {
	return fmt.Sprintf("duplicate metric: %s", string(err))
}

// Registry holds references to a set of metrics by name.
type Registry interface {
	// Each calls fn for each registered metric, in name order.
	Each(fn func(name string, metric interface{}))

	// Get the metric by the given name or nil if none is registered.
	Get(name string) interface{}

	// GetOrRegister gets an existing metric or registers the one built by
	// ctor.
	GetOrRegister(name string, ctor func() interface{}) interface{}

	// Register the given metric under the given name.
	Register(name string, metric interface{}) error

	// Unregister the metric with the given name.
	Unregister(name string)
}

// StandardRegistry is the standard implementation of a Registry.
type StandardRegistry struct {
	metrics map[string]interface{}
	mutex   sync.Mutex
}

// NewRegistry creates a new registry.
func NewRegistry() Registry {
	return &StandardRegistry{metrics: make(map[string]interface{})}
}

// DefaultRegistry is used when a nil registry is passed in.
var DefaultRegistry = NewRegistry()

func (r *StandardRegistry) Each(fn func(string, interface{})) {
	r.mutex.Lock()
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	snapshot := make([]interface{}, len(names))
	for i, name := range names {
		snapshot[i] = r.metrics[name]
	}
	r.mutex.Unlock()

	for i, name := range names {
		fn(name, snapshot[i])
	}
}

func (r *StandardRegistry) Get(name string) interface{} {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.metrics[name]
}

func (r *StandardRegistry) GetOrRegister(name string, ctor func() interface{}) interface{} {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if metric, ok := r.metrics[name]; ok {
		return metric
	}
	metric := ctor()
	r.metrics[name] = metric
	return metric
}

func (r *StandardRegistry) Register(name string, metric interface{}) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.metrics[name]; ok {
		return DuplicateMetric(name)
	}
	r.metrics[name] = metric
	return nil
}

func (r *StandardRegistry) Unregister(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.metrics, name)
}

func getOrRegister[T any](name string, ctor func() T, r Registry) T {
	if r == nil {
		r = DefaultRegistry
	}
	return r.GetOrRegister(name, func() interface{} { return ctor() }).(T)
}
