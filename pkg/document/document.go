// Package document lets entity types declare where and how they are stored.
package document

// Defaults applied to unset settings of a configured entity.
const (
	DefaultShards          = 5
	DefaultReplicas        = 1
	DefaultRefreshInterval = "1s"
	DefaultStoreType       = "fs"
)

// Config overrides the index and type an entity maps to and carries the
// index settings used at index creation. Blank names fall back to the
// lowercased type name.
type Config struct {
	Index           string
	Type            string
	Shards          int
	Replicas        *int // nil means DefaultReplicas
	RefreshInterval string
	StoreType       string
}

// Configurer is implemented by entity types (value or pointer receiver)
// that need explicit storage configuration.
type Configurer interface {
	DocumentConfig() Config
}

// Identifier lets an entity report its own id instead of having it read
// from a tagged field. ok is false while the entity has no id yet. Types
// implementing it need no id field.
type Identifier interface {
	DocumentID() (id string, ok bool)
}

// FieldSetter lets an entity accept highlight fragments by document path
// without reflection. It reports whether the path was applied.
type FieldSetter interface {
	SetDocumentField(path, value string) bool
}
