// Package workspace owns the private directory tree of one instance:
// redis.conf, the data directory and the captured server output.
package workspace
