package capability

import "context"

// Store persists unified capability definitions.
type Store interface {
	// Upsert stores a definition, keeping the existing one when its
	// LastUpdated is fresher. Idempotent.
	Upsert(ctx context.Context, def *Definition) error

	// Lookup returns the definition for a key. A missing definition is an
	// expected result reported as ErrDefinitionNotFound, not a failure.
	Lookup(ctx context.Context, key Key) (*Definition, error)

	// List returns all stored definitions.
	List(ctx context.Context) ([]*Definition, error)
}

// DescriptorSource supplies raw vendor capability descriptors, one per known
// device model, consumed once per run by the parser.
type DescriptorSource interface {
	// Snapshot returns the current set of raw descriptors.
	Snapshot(ctx context.Context) ([]RawDescriptor, error)
}
