// Package core provides the internal implementation of redisenv.
//
// An Instance composes a Workspace, a port from the shared PortRegistry and
// a supervised redis-server. Construction either yields a ready server or
// leaves nothing behind. Every mutating operation checks the ownership
// token recorded at construction, so a handle used from another process
// never signals the server or removes its workspace. Factory adds an
// optional seed: a data directory produced once per cache epoch by a
// caller-supplied initializer and cloned into each new instance.
package core
