// Package mapping resolves how an entity type maps onto documents: index
// and type names, the id field, index settings and field paths used for
// highlight injection.
package mapping

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/kailas-cloud/esrepo/internal/domain"
	"github.com/kailas-cloud/esrepo/pkg/document"
	"github.com/kailas-cloud/esrepo/pkg/engine"
)

const tagKey = "esrepo"

// Metadata is the resolved, immutable mapping of one entity type.
type Metadata struct {
	Type     reflect.Type
	Index    string
	TypeName string
	IDField  string
	Settings *engine.IndexSettings // nil when the type carries no configuration

	idIndex []int
	paths   map[string]fieldPath
	selfID  bool // *T implements document.Identifier
	selfSet bool // *T implements document.FieldSetter
}

// fieldPath holds one field index sequence per nesting level.
type fieldPath [][]int

// Cache holds resolved metadata keyed by entity type. Entries are never
// invalidated. Safe for concurrent use.
type Cache struct {
	entries sync.Map // reflect.Type -> *Metadata
}

// NewCache creates an empty metadata cache.
func NewCache() *Cache {
	return &Cache{}
}

// For resolves metadata for T through c.
func For[T any](c *Cache) (*Metadata, error) {
	return c.Resolve(reflect.TypeFor[T]())
}

// Resolve returns cached metadata for t, resolving it on first use.
// Concurrent first resolutions converge on one stored value.
func (c *Cache) Resolve(t reflect.Type) (*Metadata, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if v, ok := c.entries.Load(t); ok {
		return v.(*Metadata), nil //nolint:forcetypeassert // only *Metadata is stored
	}
	m, err := resolve(t)
	if err != nil {
		return nil, err
	}
	actual, _ := c.entries.LoadOrStore(t, m)
	return actual.(*Metadata), nil //nolint:forcetypeassert // only *Metadata is stored
}

func resolve(t reflect.Type) (*Metadata, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, domain.Configf("type %v is not a struct", t)
	}

	m := &Metadata{
		Type:     t,
		Index:    strings.ToLower(t.Name()),
		TypeName: strings.ToLower(t.Name()),
	}

	if c, ok := reflect.New(t).Interface().(document.Configurer); ok {
		applyConfig(m, c.DocumentConfig())
	}

	_, m.selfID = reflect.New(t).Interface().(document.Identifier)
	_, m.selfSet = reflect.New(t).Interface().(document.FieldSetter)

	if err := resolveID(m, t); err != nil && !m.selfID {
		return nil, err
	}
	m.paths = make(map[string]fieldPath)
	collectPaths(m.paths, t, "", nil, map[reflect.Type]bool{t: true})
	return m, nil
}

func applyConfig(m *Metadata, cfg document.Config) {
	if s := strings.TrimSpace(cfg.Index); s != "" {
		m.Index = s
	}
	if s := strings.TrimSpace(cfg.Type); s != "" {
		m.TypeName = s
	}

	settings := &engine.IndexSettings{
		Shards:          cfg.Shards,
		Replicas:        document.DefaultReplicas,
		RefreshInterval: cfg.RefreshInterval,
		StoreType:       cfg.StoreType,
	}
	if settings.Shards <= 0 {
		settings.Shards = document.DefaultShards
	}
	if cfg.Replicas != nil {
		settings.Replicas = *cfg.Replicas
	}
	if settings.RefreshInterval == "" {
		settings.RefreshInterval = document.DefaultRefreshInterval
	}
	if settings.StoreType == "" {
		settings.StoreType = document.DefaultStoreType
	}
	m.Settings = settings
}

// resolveID picks the first field tagged `esrepo:"id"`, falling back to
// the first field named id in any case. Promoted fields participate.
func resolveID(m *Metadata, t reflect.Type) error {
	var byName *reflect.StructField
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || isFlattened(f) {
			continue
		}
		if hasIDTag(f) {
			m.IDField = f.Name
			m.idIndex = f.Index
			return nil
		}
		if byName == nil && strings.EqualFold(f.Name, "id") {
			byName = &f
		}
	}
	if byName == nil {
		return domain.Configf("no id field in %s (tag a field with `%s:\"id\"` or name it id)", t, tagKey)
	}
	m.IDField = byName.Name
	m.idIndex = byName.Index
	return nil
}

func hasIDTag(f reflect.StructField) bool {
	for _, opt := range strings.Split(f.Tag.Get(tagKey), ",") {
		if strings.TrimSpace(opt) == "id" {
			return true
		}
	}
	return false
}

// isFlattened reports an embedded struct whose fields are promoted into
// the parent document rather than nested under a key.
func isFlattened(f reflect.StructField) bool {
	if !f.Anonymous {
		return false
	}
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" {
		return false
	}
	ft := f.Type
	if ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	return ft.Kind() == reflect.Struct
}

// docName returns the document key for f, or "" when the field is not
// serialized.
func docName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

func collectPaths(dst map[string]fieldPath, t reflect.Type, prefix string, base fieldPath, seen map[reflect.Type]bool) {
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || isFlattened(f) {
			continue
		}
		name := docName(f)
		if name == "" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		p := append(append(fieldPath(nil), base...), f.Index)
		dst[key] = p

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && !seen[ft] {
			seen[ft] = true
			collectPaths(dst, ft, key, p, seen)
			delete(seen, ft)
		}
	}
}

// ExtractID returns the id of entity as a string. ok is false when the id
// is unset (nil pointer or empty string).
func (m *Metadata) ExtractID(entity any) (string, bool, error) {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false, domain.NilArgument("entity")
		}
		v = v.Elem()
	}
	if v.Type() != m.Type {
		return "", false, domain.Configf("entity of type %s, want %s", v.Type(), m.Type)
	}
	if m.selfID {
		p := reflect.New(m.Type)
		p.Elem().Set(v)
		id, ok := p.Interface().(document.Identifier).DocumentID() //nolint:forcetypeassert // checked at resolve
		return id, ok && id != "", nil
	}
	f, err := v.FieldByIndexErr(m.idIndex)
	if err != nil {
		return "", false, nil //nolint:nilerr // nil embedded pointer means no id yet
	}
	for f.Kind() == reflect.Pointer || f.Kind() == reflect.Interface {
		if f.IsNil() {
			return "", false, nil
		}
		f = f.Elem()
	}
	id := formatID(f)
	return id, id != "", nil
}

func formatID(v reflect.Value) string {
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	default:
		return fmt.Sprint(v.Interface())
	}
}

// SetField writes value into the field at the dotted document path. It
// reports false, leaving entity untouched, when the path is unknown, runs
// through a nil pointer, or ends in a non-string field.
func (m *Metadata) SetField(entity any, path, value string) bool {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	if m.selfSet {
		if fs, ok := entity.(document.FieldSetter); ok {
			return fs.SetDocumentField(path, value)
		}
	}
	v = v.Elem()
	if v.Type() != m.Type {
		return false
	}

	fp, ok := m.lookup(path)
	if !ok {
		return false
	}
	for i, idx := range fp {
		f, err := v.FieldByIndexErr(idx)
		if err != nil {
			return false
		}
		if i == len(fp)-1 {
			return setString(f, value)
		}
		for f.Kind() == reflect.Pointer {
			if f.IsNil() {
				return false
			}
			f = f.Elem()
		}
		v = f
	}
	return false
}

func (m *Metadata) lookup(path string) (fieldPath, bool) {
	if fp, ok := m.paths[path]; ok {
		return fp, true
	}
	for k, fp := range m.paths {
		if strings.EqualFold(k, path) {
			return fp, true
		}
	}
	return nil, false
}

func setString(f reflect.Value, value string) bool {
	if !f.CanSet() {
		return false
	}
	switch {
	case f.Kind() == reflect.String:
		f.SetString(value)
	case f.Kind() == reflect.Pointer && f.Type().Elem().Kind() == reflect.String:
		p := reflect.New(f.Type().Elem())
		p.Elem().SetString(value)
		f.Set(p)
	case f.Kind() == reflect.Interface && f.NumMethod() == 0:
		f.Set(reflect.ValueOf(value))
	default:
		return false
	}
	return true
}
