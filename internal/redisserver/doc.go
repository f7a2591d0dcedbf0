// Package redisserver runs one redis-server process: it renders redis.conf
// into the instance workspace, launches the binary under process
// supervision and waits until the server answers PING.
package redisserver
