package engine

// Setting keys applied verbatim at index creation.
const (
	SettingShards          = "index.number_of_shards"
	SettingReplicas        = "index.number_of_replicas"
	SettingRefreshInterval = "index.refresh_interval"
	SettingStoreType       = "index.store.type"
)

// IndexSettings are the per-index settings derived from entity
// configuration. A zero shard count and empty strings are not sent;
// replicas are always sent since 0 is a valid single-node value.
type IndexSettings struct {
	Shards          int
	Replicas        int
	RefreshInterval string
	StoreType       string
}

// Map renders the settings as flat setting keys.
func (s *IndexSettings) Map() map[string]any {
	if s == nil {
		return nil
	}
	m := make(map[string]any, 4)
	if s.Shards > 0 {
		m[SettingShards] = s.Shards
	}
	m[SettingReplicas] = s.Replicas
	if s.RefreshInterval != "" {
		m[SettingRefreshInterval] = s.RefreshInterval
	}
	if s.StoreType != "" {
		m[SettingStoreType] = s.StoreType
	}
	return m
}

// SettingsBuilder is a fluent builder for IndexSettings.
type SettingsBuilder struct {
	s IndexSettings
}

// NewSettings starts building index settings.
func NewSettings() *SettingsBuilder {
	return &SettingsBuilder{}
}

// Shards sets the primary shard count.
func (b *SettingsBuilder) Shards(n int) *SettingsBuilder {
	b.s.Shards = n
	return b
}

// Replicas sets the replica count.
func (b *SettingsBuilder) Replicas(n int) *SettingsBuilder {
	b.s.Replicas = n
	return b
}

// RefreshInterval sets the refresh interval, e.g. "1s" or "-1".
func (b *SettingsBuilder) RefreshInterval(v string) *SettingsBuilder {
	b.s.RefreshInterval = v
	return b
}

// StoreType sets the index store type, e.g. "fs".
func (b *SettingsBuilder) StoreType(v string) *SettingsBuilder {
	b.s.StoreType = v
	return b
}

// Build returns the settings.
func (b *SettingsBuilder) Build() *IndexSettings {
	s := b.s
	return &s
}
