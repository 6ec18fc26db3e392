package shipper

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry holds the shipping providers available to the bridge.
// The host framework addresses providers by name in its calculator
// arguments; when it names none, the default provider is used.
type Registry struct {
	shippers    map[string]Shipper
	defaultName string
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		shippers: make(map[string]Shipper),
	}
}

// Register adds a shipper. The first registered shipper becomes the
// default; SetDefault overrides.
func (r *Registry) Register(s Shipper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.shippers) == 0 {
		r.defaultName = s.Name()
	}
	r.shippers[s.Name()] = s
}

// SetDefault selects the provider used when a request names none.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shippers[name]; !ok {
		return fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
	}
	r.defaultName = name
	return nil
}

// Get returns a shipper by name. An empty name returns the default.
func (r *Registry) Get(name string) (Shipper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultName
	}
	if s, ok := r.shippers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// All returns all registered shippers.
func (r *Registry) All() []Shipper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Shipper, 0, len(r.shippers))
	for _, s := range r.shippers {
		result = append(result, s)
	}
	return result
}

// Names returns the names of all registered shippers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.shippers))
	for name := range r.shippers {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered shippers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shippers)
}

// GetAllQuotes fans the quote request out to every registered provider.
// Individual provider failures are collected, not fatal, so one
// provider outage doesn't blank the whole rate table.
func (r *Registry) GetAllQuotes(ctx context.Context, req *QuoteRequest) ([]*QuoteResponse, []error) {
	shippers := r.All()
	if len(shippers) == 0 {
		return nil, []error{ErrCarrierNotFound}
	}

	results := make([]*QuoteResponse, 0, len(shippers))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for _, s := range shippers {
		g.Go(func() error {
			resp, err := s.GetQuote(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
				return nil
			}
			results = append(results, resp)
			return nil
		})
	}

	g.Wait()
	return results, errs
}
