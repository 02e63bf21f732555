package chord

// Interceptors observe and adjust resolution. An interceptor is any value
// implementing at least one of the capability interfaces below; the container
// checks each capability with a type assertion when it fires.

// BeforeResolver is notified before a key is resolved. Returning a non-nil
// error aborts the resolution, surfaced as a ResolutionError.
type BeforeResolver interface {
	BeforeResolve(key Key) error
}

// AfterResolver is notified after a key resolves and may replace the value.
// Returning a non-nil error fails the resolution.
type AfterResolver interface {
	AfterResolve(key Key, value any) (any, error)
}

// ErrorObserver is notified when a resolution fails. Observers cannot
// suppress the error.
type ErrorObserver interface {
	OnError(key Key, err error)
}

// InterceptorFuncs adapts plain functions into an interceptor. Nil fields
// are skipped.
type InterceptorFuncs struct {
	Before func(key Key) error
	After  func(key Key, value any) (any, error)
	Error  func(key Key, err error)
}

func (f InterceptorFuncs) BeforeResolve(key Key) error {
	if f.Before == nil {
		return nil
	}
	return f.Before(key)
}

func (f InterceptorFuncs) AfterResolve(key Key, value any) (any, error) {
	if f.After == nil {
		return value, nil
	}
	return f.After(key, value)
}

func (f InterceptorFuncs) OnError(key Key, err error) {
	if f.Error != nil {
		f.Error(key, err)
	}
}
