// Package redisconf models the subset of redis.conf that redisenv manages
// (listen address, data directory, snapshot file name, logging) plus an open
// passthrough map for every other directive. Merge layers caller overrides on
// top of defaults, Render produces the server's native "directive value"
// text, and Parse reads it back.
package redisconf
