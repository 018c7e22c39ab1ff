// Package dispatch runs decoded protocol events through an ordered set of
// stateful handlers.
//
// Handlers live in an arena and are addressed by HandlerID, a slot index
// plus a generation counter so that a stale id never aliases a newer
// handler. For each event the Engine:
//
//  1. applies a pending terminal resize to every handler, in list order
//  2. calls OnEvent on every handler, in list order
//  3. drops handlers that returned Close and releases the rendering slots
//     they own
//  4. appends handlers plugged during the pass after the survivors
//
// A handler plugged while an event is being processed never sees that event.
//
// When several handlers could consume the same step id, the first one in
// list order to call Context.Claim wins; the others still see the event.
//
// Rendering goes through a Surface. Slots allocated through a Context belong
// to the calling handler and are released when it closes.
package dispatch
