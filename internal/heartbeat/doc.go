// Package heartbeat keeps a signed-in client's presence flag fresh.
//
// A Supervisor is an explicit state machine:
//
//	Idle ──mount──> Checking ──rejected──> Rejected ──teardown──> Stopped
//	                    │
//	                    └──approved──> Visible <──visible── Paused
//	                                      │ ──hidden──────────>  │
//	                                      └──teardown──> Stopped <┘
//
// While Visible it asserts "online" immediately and then once per interval.
// Going hidden cancels the timer and sends nothing; the server's staleness
// window decides when a backgrounded client counts as offline. Becoming
// visible again asserts online at once and starts a fresh interval.
// Teardown cancels the timer before dispatching a single offline beacon, and
// only if the loop ever started.
//
// Heartbeat failures are dropped. The next tick is the retry.
//
// Signal handlers and timers funnel events through Post, and Run applies
// them one at a time, so Handle never runs concurrently with itself.
package heartbeat
