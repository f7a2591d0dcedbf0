// Package process supervises a single external server process.
//
// Process starts a command with its stdout and stderr captured to log files
// in the instance workspace, runs exactly one cmd.Wait per child, and stops
// it with SIGTERM followed by SIGKILL after a grace period. Alive and
// Terminate provide the same lifecycle for a process known only by pid, as
// seen from a process that did not start it. WaitReady polls a readiness
// check and aborts early when the child dies.
package process
