// Package netutil allocates loopback TCP ports for redis-server instances.
//
// PortRegistry asks the kernel for an ephemeral port, closes the probe
// listener and hands the number to the caller, remembering it until Release
// so that two live instances in one process never receive the same port.
// Collisions with unrelated processes between the probe and the server's own
// bind remain possible; callers retry on early server exit.
package netutil
