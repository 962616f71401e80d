package vocabulary

import (
	"fmt"
	"sync"

	"github.com/champtc/opencti-sub001/errors"
)

// Registry holds the entity descriptors for every registered entity type.
// Registration happens at construction time only; after that the registry is
// effectively immutable and safe for concurrent lookups.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[EntityType]*EntityDescriptor
}

// NewRegistry creates an empty descriptor registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[EntityType]*EntityDescriptor),
	}
}

// Register validates and stores a descriptor. It is called during startup;
// registering an invalid descriptor is a configuration error.
func (r *Registry) Register(d *EntityDescriptor) error {
	if err := validateDescriptor(d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[d.Type]; exists {
		return errors.WrapFatal(
			fmt.Errorf("%w: duplicate registration for %s", errors.ErrInvalidConfig, d.Type),
			"Registry", "Register", "descriptor registration")
	}
	r.descriptors[d.Type] = d
	return nil
}

// Lookup returns the descriptor for an entity type, failing fast for
// unregistered types.
func (r *Registry) Lookup(et EntityType) (*EntityDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.descriptors[et]; ok {
		return d, nil
	}
	return nil, errors.WrapFatal(
		fmt.Errorf("%w: %s", errors.ErrUnknownEntityType, et),
		"Registry", "Lookup", "descriptor lookup")
}

// Types returns the registered entity types.
func (r *Registry) Types() []EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]EntityType, 0, len(r.descriptors))
	for et := range r.descriptors {
		types = append(types, et)
	}
	return types
}

func validateDescriptor(d *EntityDescriptor) error {
	if d == nil || !d.Type.IsValid() {
		return errors.WrapFatal(
			fmt.Errorf("%w: descriptor has invalid entity type", errors.ErrInvalidConfig),
			"Registry", "Register", "descriptor validation")
	}
	if len(d.ClassMarkers) == 0 {
		return errors.WrapFatal(
			fmt.Errorf("%w: %s has no class markers", errors.ErrInvalidConfig, d.Type),
			"Registry", "Register", "descriptor validation")
	}
	for _, core := range []string{FieldID, FieldEntityType, FieldCreated, FieldModified} {
		if _, ok := d.Bindings[core]; !ok {
			return errors.WrapFatal(
				fmt.Errorf("%w: %s missing core field binding %q", errors.ErrInvalidConfig, d.Type, core),
				"Registry", "Register", "descriptor validation")
		}
	}
	for _, nk := range d.NaturalKeys {
		if _, ok := d.Bindings[nk]; !ok {
			return errors.WrapFatal(
				fmt.Errorf("%w: %s natural key %q is not a bound field", errors.ErrInvalidConfig, d.Type, nk),
				"Registry", "Register", "descriptor validation")
		}
	}
	for field := range d.Owned {
		if _, ok := d.Bindings[field]; !ok {
			return errors.WrapFatal(
				fmt.Errorf("%w: %s owned collection %q is not a bound field", errors.ErrInvalidConfig, d.Type, field),
				"Registry", "Register", "descriptor validation")
		}
	}
	for field := range d.Referenced {
		if _, ok := d.Bindings[field]; !ok {
			return errors.WrapFatal(
				fmt.Errorf("%w: %s referenced collection %q is not a bound field", errors.ErrInvalidConfig, d.Type, field),
				"Registry", "Register", "descriptor validation")
		}
	}
	for derived, raws := range d.Derived {
		for _, raw := range raws {
			if _, ok := d.Bindings[raw]; !ok {
				return errors.WrapFatal(
					fmt.Errorf("%w: %s derived field %q needs unbound raw field %q",
						errors.ErrInvalidConfig, d.Type, derived, raw),
					"Registry", "Register", "descriptor validation")
			}
		}
	}
	return nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry populated from the declarative
// descriptor tables in bindings.go. It is built exactly once.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, d := range defaultDescriptors() {
			if err := defaultRegistry.Register(d); err != nil {
				// Descriptor tables are compile-time data; a failure here is
				// a programming error, not a runtime condition.
				panic(err)
			}
		}
	})
	return defaultRegistry
}
