package chord

import "context"

// Disposable is implemented by services that need cleanup when their owning
// scope or container closes.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	// Close disposes the resource.
	Close() error
}

// DisposableWithContext allows disposal with a context for graceful
// shutdown. Implementations should respect context cancellation.
type DisposableWithContext interface {
	// Close disposes the resource with the provided context.
	Close(ctx context.Context) error
}

// disposeInstance invokes the instance's disposal capability, if any.
func disposeInstance(ctx context.Context, instance any) error {
	switch d := instance.(type) {
	case DisposableWithContext:
		return d.Close(ctx)
	case Disposable:
		return d.Close()
	default:
		return nil
	}
}

// isDisposable reports whether the instance exposes a disposal capability.
func isDisposable(instance any) bool {
	switch instance.(type) {
	case DisposableWithContext, Disposable:
		return true
	default:
		return false
	}
}
