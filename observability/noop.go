package observability

// NoOpObserver discards every operation.
type NoOpObserver struct{}

// ObserveOperation does nothing.
func (n *NoOpObserver) ObserveOperation(ctx OperationContext) {}

// NewNoOpObserver creates a new NoOpObserver.
func NewNoOpObserver() Observer {
	return &NoOpObserver{}
}

// multiObserver fans a single event out to several observers.
type multiObserver []Observer

func (m multiObserver) ObserveOperation(ctx OperationContext) {
	for _, o := range m {
		o.ObserveOperation(ctx)
	}
}

// Multi combines observers into one. Nil entries are skipped; with no
// remaining observers it returns a NoOpObserver.
//
// Example:
//
//	obs := observability.Multi(metricsObserver, auditObserver)
//	cache := schema_registry.NewSchemaCache(client).WithObserver(obs)
func Multi(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return NewNoOpObserver()
	case 1:
		return out[0]
	}
	return out
}
