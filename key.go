package chord

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Key identifies a registration in the container. There are three kinds:
// type keys (the nominal Go type), string keys (opaque labels), and generic
// keys (a base key qualified by ordered type arguments).
//
// Keys are comparable values: two keys are interchangeable as map keys
// exactly when they identify the same registration.
type Key interface {
	fmt.Stringer

	// sealed prevents external implementations so key equality stays total.
	sealed()
}

// typeKey identifies a service by its Go type.
type typeKey struct {
	t reflect.Type
}

func (k typeKey) sealed() {}

func (k typeKey) String() string {
	return formatType(k.t)
}

// stringKey identifies a service by an opaque label.
type stringKey string

func (k stringKey) sealed() {}

func (k stringKey) String() string {
	return string(k)
}

// GenericKey identifies a service by a base key plus ordered type arguments,
// keeping Repository[User] and Repository[Order] as distinct registrations.
//
// GenericKey values are interned: GenericOf returns the same pointer for the
// same (base, args) combination, so == and map lookups behave like any other
// key kind.
type GenericKey struct {
	base  Key
	args  []Key
	canon string
}

func (k *GenericKey) sealed() {}

// Base returns the base key.
func (k *GenericKey) Base() Key { return k.base }

// Args returns a copy of the ordered type arguments.
func (k *GenericKey) Args() []Key { return slices.Clone(k.args) }

func (k *GenericKey) String() string {
	parts := make([]string, len(k.args))
	for i, a := range k.args {
		parts[i] = a.String()
	}
	return k.base.String() + "[" + strings.Join(parts, ", ") + "]"
}

// genericKeys interns GenericKey values by canonical name so that pointer
// equality matches structural equality.
var genericKeys sync.Map // string -> *GenericKey

// KeyOf returns the type key for T.
//
// For interface types T, the key identifies the interface itself, not a
// concrete implementation:
//
//	chord.KeyOf[Logger]()       // interface key
//	chord.KeyOf[*UserService]() // pointer-to-struct key
func KeyOf[T any]() Key {
	return typeKey{t: reflect.TypeOf((*T)(nil)).Elem()}
}

// TypeKey returns the type key for a reflect.Type.
func TypeKey(t reflect.Type) Key {
	if t == nil {
		panic("chord: TypeKey called with nil type")
	}
	return typeKey{t: t}
}

// Named returns a string key for the given label.
func Named(name string) Key {
	return stringKey(name)
}

// GenericOf returns the canonical generic key for base qualified by the given
// type arguments. Two generic keys are equal iff the base and every argument
// match positionally; registering one never satisfies a resolve for another.
func GenericOf(base Key, args ...Key) Key {
	if base == nil {
		panic("chord: GenericOf called with nil base key")
	}
	canon := canonicalKey(base) + "["
	for i, a := range args {
		if a == nil {
			panic("chord: GenericOf called with nil type argument")
		}
		if i > 0 {
			canon += ","
		}
		canon += canonicalKey(a)
	}
	canon += "]"

	if v, ok := genericKeys.Load(canon); ok {
		return v.(*GenericKey)
	}
	gk := &GenericKey{base: base, args: slices.Clone(args), canon: canon}
	actual, _ := genericKeys.LoadOrStore(canon, gk)
	return actual.(*GenericKey)
}

// canonicalKey produces a collision-free textual identity for interning.
// Unlike String(), it always carries full package paths.
func canonicalKey(k Key) string {
	switch k := k.(type) {
	case typeKey:
		return canonicalType(k.t)
	case stringKey:
		return "\"" + string(k) + "\""
	case *GenericKey:
		return k.canon
	default:
		return k.String()
	}
}

func canonicalType(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return "*" + canonicalType(t.Elem())
	}
	if pkg := t.PkgPath(); pkg != "" {
		return pkg + "." + t.Name()
	}
	return t.String()
}
