package clientcache

// Handle wraps a cached client for direct or scoped use. Handles are
// stateless and safe to share among concurrent callers for the duration of
// their validity.
type Handle[C Client] struct {
	client C
}

func newHandle[C Client](client C) *Handle[C] {
	return &Handle[C]{client: client}
}

// Client returns the wrapped client.
func (h *Handle[C]) Client() C {
	return h.client
}

// Release closes the client's individually owned resources. Clients bound
// to a shared session treat this as local bookkeeping only; the shared
// resource is never closed through a handle.
func (h *Handle[C]) Release() error {
	return h.client.Close()
}

// With runs fn against the client and releases the handle on every exit
// path, including when fn fails.
func (h *Handle[C]) With(fn func(C) error) (err error) {
	defer func() {
		if cerr := h.Release(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(h.client)
}
