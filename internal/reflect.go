package internal

import (
	"fmt"
	"github.com/mitchellh/reflectwalk"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// NonFiniteError reports a NaN or infinite float found while walking a value.
type NonFiniteError struct {
	Path  string // Field/index path from the root, e.g. "Positions[2].Z"
	Value float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("%s: value %v is not finite", e.Path, e.Value)
}

// CheckFinite walks v using reflection and returns a *NonFiniteError for the first NaN or
// infinite float (at any depth: struct fields, slices, arrays, maps and pointers).
// Remember that reflect is relatively slow: check loaded values once, not on every frame.
func CheckFinite(v interface{}) error {
	return reflectwalk.Walk(v, &finiteWalker{})
}

// finiteWalker keeps track of the path to the current value while reflectwalk visits it.
type finiteWalker struct {
	path    []string
	pending string
}

func (i *finiteWalker) Enter(loc reflectwalk.Location) error {
	switch loc {
	case reflectwalk.StructField, reflectwalk.SliceElem, reflectwalk.ArrayElem, reflectwalk.MapValue:
		i.path = append(i.path, i.pending)
		i.pending = ""
	}
	return nil
}

func (i *finiteWalker) Exit(loc reflectwalk.Location) error {
	switch loc {
	case reflectwalk.StructField, reflectwalk.SliceElem, reflectwalk.ArrayElem, reflectwalk.MapValue:
		i.path = i.path[:len(i.path)-1]
	}
	return nil
}

func (i *finiteWalker) Struct(_ reflect.Value) error { return nil }

func (i *finiteWalker) StructField(f reflect.StructField, _ reflect.Value) error {
	i.pending = "." + f.Name
	return nil
}

func (i *finiteWalker) Slice(_ reflect.Value) error { return nil }

func (i *finiteWalker) SliceElem(index int, _ reflect.Value) error {
	i.pending = "[" + strconv.Itoa(index) + "]"
	return nil
}

func (i *finiteWalker) Array(_ reflect.Value) error { return nil }

func (i *finiteWalker) ArrayElem(index int, _ reflect.Value) error {
	i.pending = "[" + strconv.Itoa(index) + "]"
	return nil
}

func (i *finiteWalker) Map(_ reflect.Value) error { return nil }

func (i *finiteWalker) MapElem(_, k, _ reflect.Value) error {
	i.pending = fmt.Sprintf("[%v]", k.Interface())
	return nil
}

func (i *finiteWalker) Primitive(value reflect.Value) error {
	switch value.Kind() {
	case reflect.Float32, reflect.Float64:
		if f := value.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return &NonFiniteError{Path: i.String(), Value: f}
		}
	}
	return nil
}

func (i *finiteWalker) String() string {
	p := strings.TrimPrefix(strings.Join(i.path, ""), ".")
	if p == "" {
		return "value"
	}
	return p
}
