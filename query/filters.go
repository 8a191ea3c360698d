package query

import (
	"personyze/models"

	"github.com/huandu/go-sqlbuilder"
)

// EligibleFilter keeps published rows without an access password
type EligibleFilter struct{}

func (f *EligibleFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(
		sb.Equal("p.post_password", ""),
		sb.Equal("p.post_status", "publish"),
	)
}

// KindFilter keeps rows whose post_type belongs to the kind
type KindFilter struct {
	Kind models.Kind
}

func (f *KindFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	types := f.Kind.PostTypes()
	values := make([]interface{}, len(types))
	for i, t := range types {
		values[i] = t
	}
	sb.Where(sb.In("p.post_type", values...))
}

// CursorFilter keeps rows at or after the cursor
type CursorFilter struct {
	From int64
}

func (f *CursorFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	sb.Where(sb.GreaterEqualThan("p.ID", f.From))
}

var _ FilterStrategy = (*EligibleFilter)(nil)
var _ FilterStrategy = (*KindFilter)(nil)
var _ FilterStrategy = (*CursorFilter)(nil)
