// Package entstore is a normalized, layered entity store for a client-side
// graph cache. Entities are addressed by entity key; each holds records
// (scalars or lists of scalars) and links (references to other entities)
// under field keys.
//
// Components:
//   - Layers: optimistic overlays above a base map, ordered by priority.
//     Exclusive layers override; commutative layers settle into base in
//     bottom-up order once they hold data.
//   - Refcount GC: base links count references; unreferenced entities are
//     collected (cascading) once no layer is in flight.
//   - Dependencies: every pass records the entity keys (or root field keys)
//     it touched. Closing a write pass bumps their generations (GenStore),
//     so result caches can validate with a CAS-style snapshot compare.
//   - Persistence: changed keys are flushed to a Storage as wire-framed
//     codec payloads and hydrated back on startup.
//
// All access goes through a Pass; one pass is open at a time:
//
//	p, _ := st.BeginWrite(entstore.PassOptions{})
//	_ = p.WriteLink("Query", "me", value.Ref("User:1"))
//	_ = p.WriteRecord("User:1", "name", value.String("Ada"))
//	deps, _ := p.Dependencies() // [Query.me User:1]
//	_ = p.End()
//
// Maintenance (GC + flush) runs after write passes through Options.Schedule,
// a MaintenanceInterval loop, or an explicit Maintain call.
package entstore
