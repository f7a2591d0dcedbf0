package redisconf

import (
	"slices"
	"strings"
	"testing"
)

func validConfig() Config {
	c := Defaults()
	c.Port = 6390
	c.Dir = "/tmp/redisenv/data"
	return c
}

func TestMerge(t *testing.T) {
	t.Parallel()

	base := Defaults()
	base.Extra["appendonly"] = []string{"no"}
	base.Extra["save"] = []string{"3600", "1"}

	got, err := Merge(base, Config{
		Port:      7000,
		Databases: 4,
		Extra:     map[string][]string{"AppendOnly": {"yes"}, "save": {"900", "1", "300", "10"}},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if got.Bind != "127.0.0.1" {
		t.Errorf("Bind = %q, want default kept", got.Bind)
	}
	if got.Port != 7000 {
		t.Errorf("Port = %d, want 7000", got.Port)
	}
	if got.Databases != 4 {
		t.Errorf("Databases = %d, want 4", got.Databases)
	}
	if !slices.Equal(got.Extra["appendonly"], []string{"yes"}) {
		t.Errorf("Extra[appendonly] = %q, want override with normalized key", got.Extra["appendonly"])
	}
	if want := []string{"900", "1", "300", "10"}; !slices.Equal(got.Extra["save"], want) {
		t.Errorf("Extra[save] = %q, want %q replacing every base argument", got.Extra["save"], want)
	}
	if !slices.Equal(base.Extra["appendonly"], []string{"no"}) {
		t.Errorf("Merge modified base: Extra[appendonly] = %q", base.Extra["appendonly"])
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate  func(*Config)
		wantErr string
	}{
		"valid": {
			mutate: func(*Config) {},
		},
		"missing port": {
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: "port must be in 1..65535",
		},
		"port too large": {
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: "port must be in 1..65535",
		},
		"missing dir": {
			mutate:  func(c *Config) { c.Dir = "" },
			wantErr: "data dir must not be empty",
		},
		"negative databases": {
			mutate:  func(c *Config) { c.Databases = -1 },
			wantErr: "databases must not be negative",
		},
		"reserved extra": {
			mutate:  func(c *Config) { c.Extra = map[string][]string{"daemonize": {"yes"}} },
			wantErr: `directive "daemonize" is managed by redisenv`,
		},
		"extra with space": {
			mutate:  func(c *Config) { c.Extra = map[string][]string{"max memory": {"1mb"}} },
			wantErr: "contains whitespace or quotes",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := validConfig()
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	t.Parallel()

	err := Config{}.Validate()
	if err == nil {
		t.Fatal("Validate() on zero config returned nil")
	}
	for _, want := range []string{"bind", "port", "data dir", "dbfilename"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error %q does not mention %q", err, want)
		}
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Extra = map[string][]string{
		"save":           {"900", "1", "300", "10"},
		"replicaof":      {"127.0.0.1", "6380"},
		"rename-command": {"FLUSHALL", ""},
		"loadmodule":     {"/opt/redis modules/search.so", "MAXDOCTABLESIZE", "100"},
		"maxmemory":      {"1mb"},
		"requirepass":    {`p"w d`},
		"appendfsync":    {},
	}

	want := strings.Join([]string{
		"bind 127.0.0.1",
		"port 6390",
		"dir /tmp/redisenv/data",
		"dbfilename dump.rdb",
		`logfile ""`,
		"daemonize no",
		"appendfsync",
		`loadmodule "/opt/redis modules/search.so" MAXDOCTABLESIZE 100`,
		"maxmemory 1mb",
		`rename-command FLUSHALL ""`,
		"replicaof 127.0.0.1 6380",
		`requirepass "p\"w d"`,
		"save 900 1 300 10",
	}, "\n") + "\n"

	if got := c.Render(); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.Dir = "/tmp/with space/data"
	c.Databases = 2
	c.Extra = map[string][]string{
		"notify-keyspace-events": {"KEA\t\x01"},
		"save":                   {""},
		"rename-command":         {"CONFIG", "it's"},
	}

	got, err := Parse(c.Render())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := Directives{
		KeyBind:                  {"127.0.0.1"},
		KeyPort:                  {"6390"},
		KeyDir:                   {"/tmp/with space/data"},
		KeyDBFilename:            {"dump.rdb"},
		KeyLogFile:               {""},
		KeyDatabases:             {"2"},
		KeyDaemonize:             {"no"},
		"notify-keyspace-events": {"KEA\t\x01"},
		"save":                   {""},
		"rename-command":         {"CONFIG", "it's"},
	}
	if len(got) != len(want) {
		t.Fatalf("Parse() returned %d directives, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if !slices.Equal(got[k], v) {
			t.Errorf("Parse()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
