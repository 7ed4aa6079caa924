package config

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"jidl/errs"
	"jidl/qualifier"
)

// iniSection is one `[name]` block of the external INI file, keys in
// declaration order (the grammar §6 defines needs no ordering guarantee
// beyond "last value wins", but preserving order keeps error messages and
// the YAML round-trip deterministic).
type iniSection struct {
	name string
	keys []string
	vals map[string]string
}

func (s *iniSection) get(key string) (string, bool) {
	v, ok := s.vals[key]
	return v, ok
}

// parseINI tokenizes the §6 INI grammar: `[section]` headers, `key=value`
// lines, `;` and `#` comment lines, blank lines ignored. It is
// intentionally small — no general-purpose INI library, no nested
// sections, no multi-line values — matching exactly what §6 defines and
// nothing more.
func parseINI(r io.Reader) ([]*iniSection, error) {
	var sections []*iniSection
	var cur *iniSection

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("config: %w: line %d: unterminated section header %q", errs.ErrConfigInvalid, lineNo, line)
			}
			name := strings.TrimSpace(line[1 : len(line)-1])
			cur = &iniSection{name: name, vals: map[string]string{}}
			sections = append(sections, cur)
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("config: %w: line %d: key=value outside any section", errs.ErrConfigInvalid, lineNo)
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			return nil, fmt.Errorf("config: %w: line %d: missing '=' in %q", errs.ErrConfigInvalid, lineNo, line)
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" {
			return nil, fmt.Errorf("config: %w: line %d: empty key", errs.ErrConfigInvalid, lineNo)
		}
		if _, dup := cur.vals[key]; !dup {
			cur.keys = append(cur.keys, key)
		}
		cur.vals[key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: scan: %w", err)
	}
	return sections, nil
}

// LoadINI reads the external `-c <path>` INI file (§6) and translates it
// into the internal Config tree. This is the CLI's only reachable path to
// a populated Config; cmd/jidl persists the result as the YAML mirror
// (§6's "Persisted state") so subsequent reopens of the same working
// directory can skip re-parsing INI.
func LoadINI(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	sections, err := parseINI(f)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	connIndex := map[string]int{}

	for _, s := range sections {
		switch {
		case s.name == "datalogger":
			if err := bindDatalogger(cfg, s); err != nil {
				return nil, err
			}
		case s.name == "dataarchiver":
			if err := bindArchiver(cfg, s); err != nil {
				return nil, err
			}
		case s.name == "":
			bindGlobal(cfg, s)
		default:
			q, qerr := qualifier.Parse(s.name)
			if qerr != nil {
				return nil, fmt.Errorf("config: %w: section %q: %v", errs.ErrConfigInvalid, s.name, qerr)
			}
			switch {
			case q.IsConnection():
				cc, err := bindConnection(s)
				if err != nil {
					return nil, err
				}
				if _, dup := connIndex[cc.Name]; dup {
					return nil, fmt.Errorf("config: %w: duplicate connection %q", errs.ErrConfigInvalid, cc.Name)
				}
				connIndex[cc.Name] = len(cfg.Connections)
				cfg.Connections = append(cfg.Connections, cc)
			case q.IsReader():
				vc, err := bindReader(s, q)
				if err != nil {
					return nil, err
				}
				idx, ok := connIndex[q.Connection]
				if !ok {
					return nil, fmt.Errorf("config: %w: variable %q references unknown connection %q", errs.ErrConfigInvalid, q.Var, q.Connection)
				}
				cfg.Connections[idx].Variables = append(cfg.Connections[idx].Variables, vc)
			case q.IsWriter():
				vc, err := bindWriter(s, q)
				if err != nil {
					return nil, err
				}
				idx, ok := connIndex[q.Connection]
				if !ok {
					return nil, fmt.Errorf("config: %w: writer %q references unknown connection %q", errs.ErrConfigInvalid, q.Var, q.Connection)
				}
				cfg.Connections[idx].Variables = append(cfg.Connections[idx].Variables, vc)
			}
		}
	}

	if cfg.Datalogger.Type == "" {
		return nil, fmt.Errorf("config: %w: missing [datalogger] section", errs.ErrConfigInvalid)
	}

	return cfg, nil
}

func bindDatalogger(cfg *Config, s *iniSection) error {
	d := Datalogger{}
	d.Type, _ = s.get("type")
	d.Name, _ = s.get("name")
	d.Dir, _ = s.get("dir")
	d.Server, _ = s.get("server")
	d.Username, _ = s.get("username")
	d.Password, _ = s.get("password")
	d.Key, _ = s.get("key")
	if p, ok := s.get("port"); ok {
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("config: %w: [datalogger] port: %v", errs.ErrConfigInvalid, err)
		}
		d.Port = n
	}
	if d.Type == "" {
		return fmt.Errorf("config: %w: [datalogger] missing type", errs.ErrConfigInvalid)
	}
	switch d.Type {
	case "dummy", "sqlite", "mariadb", "monetdb":
	default:
		return fmt.Errorf("config: %w: [datalogger] unknown type %q", errs.ErrConfigInvalid, d.Type)
	}
	if d.Name == "" {
		return fmt.Errorf("config: %w: [datalogger] missing name", errs.ErrConfigInvalid)
	}
	cfg.Datalogger = d
	return nil
}

var dayNumbers = map[string]int{
	"MONDAY": 1, "TUESDAY": 2, "WEDNESDAY": 3, "THURSDAY": 4,
	"FRIDAY": 5, "SATURDAY": 6, "SUNDAY": 7,
}

func bindArchiver(cfg *Config, s *iniSection) error {
	a := Archiver{Present: true}
	day, _ := s.get("day")
	day = strings.ToUpper(strings.TrimSpace(day))
	if _, ok := dayNumbers[day]; !ok {
		return fmt.Errorf("config: %w: [dataarchiver] unknown day %q", errs.ErrConfigInvalid, day)
	}
	a.Day = day

	iv, ok := s.get("interval")
	if !ok {
		return fmt.Errorf("config: %w: [dataarchiver] missing interval", errs.ErrConfigInvalid)
	}
	n, err := strconv.Atoi(iv)
	if err != nil {
		return fmt.Errorf("config: %w: [dataarchiver] interval: %v", errs.ErrConfigInvalid, err)
	}
	a.Interval = n

	if m, ok := s.get("monthly"); ok {
		b, err := strconv.ParseBool(m)
		if err != nil {
			return fmt.Errorf("config: %w: [dataarchiver] monthly: %v", errs.ErrConfigInvalid, err)
		}
		a.Monthly = b
	}
	maxRange := 52
	if a.Monthly {
		maxRange = 12
	}
	if a.Interval < 1 || a.Interval > maxRange {
		return fmt.Errorf("config: %w: [dataarchiver] interval %d out of range [1,%d]", errs.ErrConfigInvalid, a.Interval, maxRange)
	}
	cfg.Archiver = a
	return nil
}

// DayNumber returns the ISO-8601 weekday number (1=Monday..7=Sunday) for
// the archiver's configured day name.
func (a Archiver) DayNumber() int { return dayNumbers[a.Day] }

func bindGlobal(cfg *Config, s *iniSection) {
	if v, ok := s.get("ipc_port"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IPC.Port = n
		}
	}
	cfg.IPC.Keystore, _ = s.get("ipc_keystore")
	cfg.IPC.KeystorePassword, _ = s.get("ipc_keystorepw")
	cfg.IPC.Truststore, _ = s.get("ipc_truststore")
	cfg.IPC.TruststorePassword, _ = s.get("ipc_truststorepw")
	cfg.Salt, _ = s.get("salt")
	cfg.IV, _ = s.get("iv")
}

func bindConnection(s *iniSection) (ConnectionConfig, error) {
	cc := ConnectionConfig{Name: s.name}
	typ, ok := s.get("type")
	if !ok {
		return ConnectionConfig{}, fmt.Errorf("config: %w: [%s] missing type", errs.ErrConfigInvalid, s.name)
	}
	cc.Type = typ
	cc.Address, _ = s.get("address")

	switch typ {
	case "s7":
		if r, ok := s.get("rack"); ok {
			n, err := strconv.Atoi(r)
			if err != nil {
				return ConnectionConfig{}, fmt.Errorf("config: %w: [%s] rack: %v", errs.ErrConfigInvalid, s.name, err)
			}
			cc.Rack = n
		}
		if sl, ok := s.get("slot"); ok {
			n, err := strconv.Atoi(sl)
			if err != nil {
				return ConnectionConfig{}, fmt.Errorf("config: %w: [%s] slot: %v", errs.ErrConfigInvalid, s.name, err)
			}
			cc.Slot = n
		}
	case "modbus-tcp":
		if p, ok := s.get("port"); ok {
			n, err := strconv.Atoi(p)
			if err != nil {
				return ConnectionConfig{}, fmt.Errorf("config: %w: [%s] port: %v", errs.ErrConfigInvalid, s.name, err)
			}
			cc.Port = n
		}
		if rv, ok := s.get("reversed"); ok {
			b, err := strconv.ParseBool(rv)
			if err != nil {
				return ConnectionConfig{}, fmt.Errorf("config: %w: [%s] reversed: %v", errs.ErrConfigInvalid, s.name, err)
			}
			cc.Reversed = b
		}
	case "opcua":
		if p, ok := s.get("port"); ok {
			n, err := strconv.Atoi(p)
			if err != nil {
				return ConnectionConfig{}, fmt.Errorf("config: %w: [%s] port: %v", errs.ErrConfigInvalid, s.name, err)
			}
			cc.Port = n
		}
		cc.Path, _ = s.get("path")
		if d, ok := s.get("discovery"); ok {
			b, err := strconv.ParseBool(d)
			if err != nil {
				return ConnectionConfig{}, fmt.Errorf("config: %w: [%s] discovery: %v", errs.ErrConfigInvalid, s.name, err)
			}
			cc.Discovery = b
		}
		cc.Username, _ = s.get("username")
		cc.Password, _ = s.get("password")
		cc.Salt, _ = s.get("salt")
		cc.IV, _ = s.get("iv")
	case "json":
		// address only, handled above.
	default:
		return ConnectionConfig{}, fmt.Errorf("config: %w: [%s] unknown connection type %q", errs.ErrConfigInvalid, s.name, typ)
	}

	ticks, err := parseSampleTicks(s)
	if err != nil {
		return ConnectionConfig{}, fmt.Errorf("config: [%s]: %w", s.name, err)
	}
	cc.SampleTicks = ticks
	return cc, nil
}

// parseSampleTicks implements §6's sample-period rule: exactly one of
// `seconds`/`deciseconds` per connection; seconds is multiplied by 10;
// deciseconds > 9 is rounded to the nearest second then back to
// deciseconds.
func parseSampleTicks(s *iniSection) (int, error) {
	secStr, hasSec := s.get("seconds")
	deciStr, hasDeci := s.get("deciseconds")
	if hasSec == hasDeci {
		return 0, fmt.Errorf("%w: exactly one of seconds/deciseconds must be given", errs.ErrConfigInvalid)
	}
	if hasSec {
		n, err := strconv.Atoi(secStr)
		if err != nil {
			return 0, fmt.Errorf("%w: seconds: %v", errs.ErrConfigInvalid, err)
		}
		if n < 1 {
			return 0, fmt.Errorf("%w: seconds must be >= 1", errs.ErrConfigInvalid)
		}
		return n * 10, nil
	}
	n, err := strconv.Atoi(deciStr)
	if err != nil {
		return 0, fmt.Errorf("%w: deciseconds: %v", errs.ErrConfigInvalid, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: deciseconds must be >= 1", errs.ErrConfigInvalid)
	}
	if n > 9 {
		seconds := math.Round(float64(n) / 10)
		n = int(seconds) * 10
	}
	return n, nil
}

func bindReader(s *iniSection, q qualifier.Qualifier) (VariableConfig, error) {
	addr, ok := s.get("address")
	if !ok {
		return VariableConfig{}, fmt.Errorf("config: %w: [%s] missing address", errs.ErrConfigInvalid, s.name)
	}
	typ, ok := s.get("type")
	if !ok {
		return VariableConfig{}, fmt.Errorf("config: %w: [%s] missing type", errs.ErrConfigInvalid, s.name)
	}
	return VariableConfig{Name: q.Var, Address: addr, Type: typ}, nil
}

func bindWriter(s *iniSection, q qualifier.Qualifier) (VariableConfig, error) {
	addr, ok := s.get("address")
	if !ok {
		return VariableConfig{}, fmt.Errorf("config: %w: [%s] missing address", errs.ErrConfigInvalid, s.name)
	}
	return VariableConfig{
		Name:       q.Var,
		Address:    addr,
		IsWriter:   true,
		SourceVar:  q.SourceVar,
		SourceConn: q.SourceConn,
	}, nil
}
