// Package schedule provides named, cancellable deferred tasks for the game.
//
// Game rules depend on a handful of fixed delays: the pause before a pair of
// flipped cards is evaluated, the short wait before the completion handler
// runs, the celebration ticks and the automatic restart after a win. Each of
// these is scheduled through the Scheduler interface and identified by a
// Token, so an owner can cancel it before it fires.
//
// Implementations:
//
// RealTime runs callbacks on the wall clock via time.AfterFunc. Manual is a
// virtual clock that only advances when told to, used by tests to step
// through timer driven behavior deterministically:
//
//	clock := schedule.NewManual()
//	tok := clock.After(schedule.TaskAutoReset, 10*time.Second, reset)
//	clock.Advance(5 * time.Second) // nothing fires
//	tok.Cancel()                   // reset will never run
package schedule
