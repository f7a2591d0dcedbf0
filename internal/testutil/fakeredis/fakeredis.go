package fakeredis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alicebob/miniredis/v2"
	"github.com/alicebob/miniredis/v2/server"

	"github.com/giantswarm/redisenv/internal/fileutil"
	"github.com/giantswarm/redisenv/internal/redisconf"
)

// EnvVar marks a re-executed test binary as a fake server.
const EnvVar = "REDISENV_FAKE_SERVER"

// ModeKey is the redis.conf directive selecting a failure mode.
const ModeKey = "fake-mode"

// Failure modes understood by the fake.
const (
	ModeExit       = "exit"
	ModeHang       = "hang"
	ModeIgnoreTerm = "ignore-term"
)

// ExitCode is the status used by ModeExit.
const ExitCode = 3

// databases is how many logical databases are persisted.
const databases = 16

// Enable marks child processes of this binary as fakes and returns the path
// to use as the redis-server binary.
func Enable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve test executable: %w", err)
	}
	if err := os.Setenv(EnvVar, "1"); err != nil {
		return "", fmt.Errorf("set %s: %w", EnvVar, err)
	}
	return exe, nil
}

// RunIfRequested serves as a fake redis-server and exits if this process was
// started as one. Otherwise it returns immediately.
func RunIfRequested() {
	if os.Getenv(EnvVar) == "" || len(os.Args) != 2 || filepath.Base(os.Args[1]) != "redis.conf" {
		return
	}
	if err := serve(os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, "fake redis-server:", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func serve(confPath string) error {
	b, err := os.ReadFile(confPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	conf, err := redisconf.Parse(string(b))
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if err := checkArity(conf); err != nil {
		fmt.Fprintf(os.Stderr, "\n*** FATAL CONFIG FILE ERROR (fake) ***\n>>> %s\n", err)
		os.Exit(ExitCode)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, os.Interrupt)

	switch conf.Get(ModeKey) {
	case ModeExit:
		fmt.Fprintln(os.Stderr, "# Fatal error, can't open config file (fake)")
		os.Exit(ExitCode)
	case ModeHang:
		fmt.Println("# fake server hanging before listen")
		<-sigs
		return nil
	}

	snapshot := filepath.Join(conf.Get(redisconf.KeyDir), conf.Get(redisconf.KeyDBFilename))
	m := miniredis.NewMiniRedis()
	if err := load(m, snapshot); err != nil {
		return err
	}
	addr := net.JoinHostPort(conf.Get(redisconf.KeyBind), conf.Get(redisconf.KeyPort))
	if err := m.StartAddr(addr); err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	defer m.Close()

	if err := m.Server().Register("SAVE", func(c *server.Peer, _ string, _ []string) {
		if err := save(m, snapshot); err != nil {
			c.WriteError("ERR " + err.Error())
			return
		}
		c.WriteOK()
	}); err != nil {
		return fmt.Errorf("register SAVE: %w", err)
	}
	fmt.Printf("* Ready to accept connections tcp on %s\n", addr)

	for sig := range sigs {
		if conf.Get(ModeKey) == ModeIgnoreTerm && sig == syscall.SIGTERM {
			fmt.Println("# ignoring SIGTERM")
			continue
		}
		break
	}
	return save(m, snapshot)
}

// dump is the on-disk form of a fake dataset: db index to key to value.
// fixedArity lists directives the fake checks the way redis-server does.
var fixedArity = map[string]int{
	redisconf.KeyBind:       1,
	redisconf.KeyPort:       1,
	redisconf.KeyDir:        1,
	redisconf.KeyDBFilename: 1,
	"replicaof":             2,
	"rename-command":        2,
}

// checkArity rejects argument counts redis-server would refuse at startup.
func checkArity(conf redisconf.Directives) error {
	for name, n := range fixedArity {
		if args, ok := conf[name]; ok && len(args) != n {
			return fmt.Errorf("'%s' wrong number of arguments", name)
		}
	}
	if args, ok := conf["save"]; ok && len(args)%2 != 0 && (len(args) != 1 || args[0] != "") {
		return errors.New("'save' invalid save parameters")
	}
	return nil
}

type dump map[int]map[string]entry

type entry struct {
	Type   string            `json:"type"`
	String string            `json:"string,omitempty"`
	List   []string          `json:"list,omitempty"`
	Set    []string          `json:"set,omitempty"`
	Hash   map[string]string `json:"hash,omitempty"`
}

func save(m *miniredis.Miniredis, path string) error {
	d := dump{}
	for i := range databases {
		db := m.DB(i)
		for _, k := range db.Keys() {
			e := entry{Type: db.Type(k)}
			var err error
			switch e.Type {
			case "string":
				e.String, err = db.Get(k)
			case "list":
				e.List, err = db.List(k)
			case "set":
				e.Set, err = db.Members(k)
			case "hash":
				var fields []string
				fields, err = db.HKeys(k)
				e.Hash = make(map[string]string, len(fields))
				for _, f := range fields {
					e.Hash[f] = db.HGet(k, f)
				}
			default:
				continue
			}
			if err != nil {
				return fmt.Errorf("read key %q: %w", k, err)
			}
			if d[i] == nil {
				d[i] = map[string]entry{}
			}
			d[i][k] = e
		}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, b, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func load(m *miniredis.Miniredis, path string) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var d dump
	if err := json.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	for i, keys := range d {
		db := m.DB(i)
		for k, e := range keys {
			var err error
			switch e.Type {
			case "string":
				err = db.Set(k, e.String)
			case "list":
				_, err = db.Push(k, e.List...)
			case "set":
				_, err = db.SetAdd(k, e.Set...)
			case "hash":
				for f, v := range e.Hash {
					db.HSet(k, f, v)
				}
			}
			if err != nil {
				return fmt.Errorf("restore key %q: %w", k, err)
			}
		}
	}
	return nil
}
