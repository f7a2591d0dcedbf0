// Package fileutil holds the filesystem helpers behind instance workspaces:
// directory creation and idempotent removal, recursive data directory
// cloning, and atomic writes for redis.conf.
package fileutil
