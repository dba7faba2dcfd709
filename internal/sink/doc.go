// Package sink delivers encoded audio frames to a voice transport at
// real-time rate. Delivery runs on an absolute deadline schedule, so
// timing error never accumulates across a track, and a slow transport
// surfaces as a TransportError rather than silent drift.
package sink
