// Package scheduler provides the task-queue abstraction that drives the watch
// graph. The graph never spawns goroutines or timers itself: it asks a
// Scheduler to run a function as soon as possible (the flush) or after a delay
// (a delayed edge), and every such function runs on one logical thread.
//
// # Implementations
//
//   - Loop is the production implementation. A single goroutine (Run) drains
//     the task queue in FIFO order; timers created by After post their
//     callback back into the same queue, so graph code never runs
//     concurrently with itself. Code on other goroutines enters the loop
//     with Do.
//   - Manual is a deterministic implementation for tests. Nothing runs until
//     the test calls RunPending or Advance, and time only moves when Advance
//     is called.
//
// # Ordering
//
// Both implementations guarantee that tasks queued with Asap run in the order
// they were queued and that timers fire in deadline order, ties broken by
// creation order.
package scheduler
