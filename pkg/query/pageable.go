package query

// DefaultPageSize is used when a Pageable is built without a positive size.
const DefaultPageSize = 10

// Direction is a sort direction. Anything other than a case-insensitive
// "desc" sorts ascending.
type Direction string

// Sort directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is one sort key.
type Order struct {
	Field     string
	Direction Direction
}

// Pageable carries 1-based paging plus sort keys, highest precedence first.
type Pageable struct {
	CurrentPage int
	PageSize    int
	Sorts       []Order
}

// NewPageable returns a Pageable with non-positive values replaced by
// defaults (page 1, DefaultPageSize).
func NewPageable(page, size int) *Pageable {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	return &Pageable{CurrentPage: page, PageSize: size}
}

// Sort adds a sort key. Re-adding a field updates its direction but keeps
// its original precedence.
func (p *Pageable) Sort(field string, dir Direction) *Pageable {
	for i := range p.Sorts {
		if p.Sorts[i].Field == field {
			p.Sorts[i].Direction = dir
			return p
		}
	}
	p.Sorts = append(p.Sorts, Order{Field: field, Direction: dir})
	return p
}

// Offset is (CurrentPage-1)*PageSize, never negative.
func (p *Pageable) Offset() int {
	off := (p.CurrentPage - 1) * p.PageSize
	if off < 0 {
		return 0
	}
	return off
}
