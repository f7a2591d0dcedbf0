// Package fakeredis turns a test binary into a stand-in for redis-server so
// that lifecycle tests run on machines without redis installed.
//
// A test package calls RunIfRequested at the top of TestMain and then uses
// the path returned by Enable as the redis-server binary. When the binary is
// re-executed as "<test binary> <dir>/redis.conf" with the marker variable
// set, it reads the config, serves the redis protocol through miniredis on
// the configured address, persists keys to the configured dbfilename on SAVE
// and on SIGTERM, and exits 0.
//
// The directive "fake-mode" selects misbehaviour for failure-path tests:
// "exit" exits with status 3 before listening, "hang" never listens, and
// "ignore-term" serves normally but ignores SIGTERM.
package fakeredis
