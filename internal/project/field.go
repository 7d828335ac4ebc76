package project

type fieldOp uint8

const (
	fieldKeep fieldOp = iota
	fieldNull
	fieldSet
)

// Field is a partial-update value for a nullable column. The zero value
// leaves the column unchanged; Null clears it; Set stores a value.
//
//	update := AddressUpdate{
//	    EstimatedFlats: Set[uint16](6),   // store 6
//	    StreetID:       Null[int64](),    // detach from street
//	    // CircleRadius omitted: unchanged
//	}
type Field[T any] struct {
	op    fieldOp
	value T
}

// Set returns a Field that stores v.
func Set[T any](v T) Field[T] {
	return Field[T]{op: fieldSet, value: v}
}

// Null returns a Field that clears the column.
func Null[T any]() Field[T] {
	return Field[T]{op: fieldNull}
}

// SetOrNull returns Set(*v), or Null when v is nil.
func SetOrNull[T any](v *T) Field[T] {
	if v == nil {
		return Null[T]()
	}
	return Set(*v)
}

// IsUnchanged reports whether the column is left alone.
func (f Field[T]) IsUnchanged() bool { return f.op == fieldKeep }

// IsNull reports whether the column is cleared.
func (f Field[T]) IsNull() bool { return f.op == fieldNull }

// Value returns the value to store and whether there is one.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.op == fieldSet
}

// Apply returns the column's new value given its current one.
func (f Field[T]) Apply(current *T) *T {
	switch f.op {
	case fieldNull:
		return nil
	case fieldSet:
		v := f.value
		return &v
	default:
		return current
	}
}

// sqlArgs returns the two placeholders of
// "col = CASE WHEN ? THEN ? ELSE col END".
func (f Field[T]) sqlArgs() (apply bool, value any) {
	switch f.op {
	case fieldSet:
		return true, f.value
	case fieldNull:
		return true, nil
	default:
		return false, nil
	}
}
