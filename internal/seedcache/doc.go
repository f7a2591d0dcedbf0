// Package seedcache keeps one pre-built redis data directory (the seed) on
// disk so that many instances can start from the same initial dataset
// without re-running the code that produced it.
//
// Generation is serialized twice: concurrent callers in one process share a
// single in-flight build through singleflight, and builds in different
// processes sharing a cache directory serialize on an flock'd lock file next
// to the seed. The seed is built in a temporary directory and renamed into
// place, so readers never observe a partial seed.
package seedcache
