package gshadow

// CorruptBuffers desynchronizes the attribute arrays from the slot arena.
func CorruptBuffers(r *Registry) {
	r.buf.sense = r.buf.sense[:0]
}

// SlotIDs returns registered ids in slot order.
func SlotIDs(r *Registry) []ID { return r.ids() }

// Adjacent returns the ids registered at endpoint key k.
func Adjacent(r *Registry, k EndpointKey) []ID { return r.adj[k] }
