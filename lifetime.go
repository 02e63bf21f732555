package chord

import (
	"encoding/json"
	"fmt"
)

// Lifetime specifies the caching and creation policy for a registration.
type Lifetime int

const (
	// Singleton specifies that a single instance of the service will be
	// created on first resolve and cached for the lifetime of the container.
	Singleton Lifetime = iota

	// Transient specifies that a new instance is created on every resolve.
	Transient

	// Scoped specifies one instance per scope. Resolving a Scoped service
	// outside of a scope fails with a ResolutionError.
	Scoped

	// Factory specifies that the registered factory function is re-invoked on
	// every resolve, with no caching at any level. Unlike Transient, a
	// Factory registration must carry a factory function, never a
	// constructor; the invocation policy is the factory call itself.
	Factory
)

// String returns the string representation of the Lifetime.
func (lt Lifetime) String() string {
	switch lt {
	case Singleton:
		return "Singleton"
	case Transient:
		return "Transient"
	case Scoped:
		return "Scoped"
	case Factory:
		return "Factory"
	default:
		return fmt.Sprintf("Unknown(%d)", int(lt))
	}
}

// IsValid checks if the lifetime is one of the defined values.
func (lt Lifetime) IsValid() bool {
	return lt >= Singleton && lt <= Factory
}

// MarshalText implements encoding.TextMarshaler.
func (lt Lifetime) MarshalText() ([]byte, error) {
	return []byte(lt.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (lt *Lifetime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Singleton", "singleton":
		*lt = Singleton
	case "Transient", "transient":
		*lt = Transient
	case "Scoped", "scoped":
		*lt = Scoped
	case "Factory", "factory":
		*lt = Factory
	default:
		return LifetimeError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (lt Lifetime) MarshalJSON() ([]byte, error) {
	return json.Marshal(lt.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (lt *Lifetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return lt.UnmarshalText([]byte(s))
}
