package redisconf

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"dario.cat/mergo"
)

// Directive names with a dedicated Config field. They are rejected in Extra
// so that a value cannot be set twice with different meanings.
const (
	KeyBind       = "bind"
	KeyPort       = "port"
	KeyDir        = "dir"
	KeyDBFilename = "dbfilename"
	KeyLogFile    = "logfile"
	KeyDatabases  = "databases"
	KeyDaemonize  = "daemonize"
)

var reservedKeys = []string{KeyBind, KeyPort, KeyDir, KeyDBFilename, KeyLogFile, KeyDatabases, KeyDaemonize}

// Config is the server configuration of one instance. Zero values mean
// "not set" and are filled from the defaults by Merge.
type Config struct {
	Bind       string
	Port       int
	Dir        string
	DBFilename string
	// LogFile is empty to log to stdout, which the supervisor captures.
	LogFile   string
	Databases int
	// Extra holds any other directive, keyed by lower-case name. Each
	// element is one argument of the directive, so "save 900 1" is
	// {"save": {"900", "1"}} and a single empty argument is {""}.
	Extra map[string][]string
}

// Defaults returns the configuration every instance starts from.
func Defaults() Config {
	return Config{
		Bind:       "127.0.0.1",
		DBFilename: "dump.rdb",
		Extra:      map[string][]string{},
	}
}

// Merge returns base with every non-zero field of override applied on top.
// Extra maps are merged key by key; an override directive replaces all
// arguments of the base one. Neither argument is modified.
func Merge(base, override Config) (Config, error) {
	out := base
	out.Extra = normalizeExtra(base.Extra)
	src := override
	src.Extra = normalizeExtra(override.Extra)
	if err := mergo.Merge(&out, src, mergo.WithOverride); err != nil {
		return Config{}, fmt.Errorf("merge server config: %w", err)
	}
	return out, nil
}

func normalizeExtra(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = slices.Clone(v)
	}
	return out
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	if c.Bind == "" {
		errs = append(errs, errors.New("bind address must not be empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be in 1..65535, got %d", c.Port))
	}
	if c.Dir == "" {
		errs = append(errs, errors.New("data dir must not be empty"))
	}
	if c.DBFilename == "" {
		errs = append(errs, errors.New("dbfilename must not be empty"))
	}
	if c.Databases < 0 {
		errs = append(errs, fmt.Errorf("databases must not be negative, got %d", c.Databases))
	}
	for _, k := range slices.Sorted(maps.Keys(c.Extra)) {
		switch {
		case k == "":
			errs = append(errs, errors.New("extra directive name must not be empty"))
		case strings.ContainsAny(k, " \t\r\n\""):
			errs = append(errs, fmt.Errorf("extra directive %q contains whitespace or quotes", k))
		case slices.Contains(reservedKeys, strings.ToLower(k)):
			errs = append(errs, fmt.Errorf("directive %q is managed by redisenv and cannot be set through extra options", k))
		}
	}
	return errors.Join(errs...)
}

// Render produces redis.conf content. Managed directives come first in a
// fixed order, extra directives follow sorted by name.
//
// redis-server splits every line into arguments with its own tokenizer
// before looking at the directive, so each argument is written as a
// separate token and quoted on its own when it is empty or contains
// whitespace, quotes or control characters. A whole "900 1" quoted as one
// token would reach the server as a single argument and fail arity checks
// for directives such as save, replicaof or rename-command.
func (c Config) Render() string {
	var b strings.Builder
	line := func(k string, args ...string) {
		b.WriteString(k)
		for _, a := range args {
			b.WriteByte(' ')
			b.WriteString(quoteValue(a))
		}
		b.WriteByte('\n')
	}
	line(KeyBind, c.Bind)
	line(KeyPort, strconv.Itoa(c.Port))
	line(KeyDir, c.Dir)
	line(KeyDBFilename, c.DBFilename)
	line(KeyLogFile, c.LogFile)
	if c.Databases > 0 {
		line(KeyDatabases, strconv.Itoa(c.Databases))
	}
	line(KeyDaemonize, "no")
	for _, k := range slices.Sorted(maps.Keys(c.Extra)) {
		line(k, c.Extra[k]...)
	}
	return b.String()
}

// quoteValue returns v unchanged when redis would read it back as a single
// bare token, and a double-quoted string with \\, \" and \xHH escapes
// otherwise.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsFunc(v, needsQuoting) {
		return v
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c == '\\' || c == '"':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, "\\x%02x", c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func needsQuoting(r rune) bool {
	return r <= ' ' || r == '"' || r == '\'' || r == '\\' || r == 0x7f
}
