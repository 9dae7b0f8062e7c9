// Package otpcore is a minimal, single-node OTP-style actor core: generic
// servers with a call/cast/timer mailbox loop, supervisors with the four
// standard restart strategies and restart-intensity limiting, a process
// registry, and a lifecycle event bus.
//
// There is no distribution, clustering, or wire protocol here - every Ref
// addresses a process local to this runtime. Start a generic server with
// Start, supervise a tree of them with StartSupervisor, and observe crashes
// and restarts with OnLifecycleEvent.
package otpcore
