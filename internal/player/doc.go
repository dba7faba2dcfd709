// Package player is the playback engine: one Session per voice
// destination owning a queue, a state machine, and the running
// resolve-transcode-deliver loop, plus the Registry that guarantees at
// most one live Session per destination.
//
// Sessions are independent of each other. Within one Session every
// control operation is serialized under the Session's lock, and the play
// loop is a single goroutine, so state transitions have a total order.
package player
