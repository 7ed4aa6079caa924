package config

import (
	"fmt"
	"path/filepath"
	"time"

	"jidl/archiver"
	"jidl/connection"
	"jidl/datatype"
	"jidl/errs"
	"jidl/logger"
	"jidl/sink"
	"jidl/variable"
)

// deviceTimeout is the per-request device I/O timeout §4.2 pins at
// "1-3 s" for concrete protocol clients; the stub/JSON clients built here
// use it uniformly since none of them has a protocol-specific reason to
// differ.
const deviceTimeout = 2 * time.Second

// Bind walks cfg — already loaded via LoadINI or LoadYAML — and constructs
// the Logger's connection/variable graph plus its Sink and (if configured)
// Archiver, per SPEC_FULL.md's "Config binding" section. It is this walk,
// not INI tokenizing, that implements the budgeted "configuration binding"
// component.
func Bind(cfg *Config, logFn logger.LogFunc, fatal logger.FatalHandler) (*logger.Logger, error) {
	s, err := buildSink(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: sink: %w", err)
	}

	conns, readersByQualifier, err := buildConnections(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := bindWriters(cfg, conns, readersByQualifier); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var arch *archiver.Archiver
	if s.IsArchiver() {
		arch = archiver.New(s, filepath.Join(cfg.Datalogger.Dir, cfg.Datalogger.Name))
		if cfg.Archiver.Present {
			if err := arch.SetArchivingService(cfg.Archiver.DayNumber(), cfg.Archiver.Interval, cfg.Archiver.Monthly); err != nil {
				return nil, fmt.Errorf("config: archiver: %w", err)
			}
		}
	}

	connList := make([]*connection.Connection, 0, len(conns))
	for _, cc := range cfg.Connections {
		connList = append(connList, conns[cc.Name])
	}

	return logger.New(logger.Config{
		Name:        cfg.Datalogger.Name,
		WorkingDir:  cfg.Datalogger.Dir,
		Sink:        s,
		Connections: connList,
		Archiver:    arch,
		LogFunc:     logFn,
		Fatal:       fatal,
	})
}

func buildSink(cfg *Config) (sink.Sink, error) {
	d := cfg.Datalogger
	switch d.Type {
	case "dummy":
		return sink.NewDummy(), nil
	case "sqlite":
		return sink.NewSQLite(d.Dir, d.Name)
	case "mariadb":
		password, err := decryptDataloggerPassword(cfg)
		if err != nil {
			return nil, err
		}
		return sink.NewMariaDB(d.Server, d.Port, d.Username, password, d.Name)
	case "monetdb":
		password, err := decryptDataloggerPassword(cfg)
		if err != nil {
			return nil, err
		}
		return sink.NewMonetDB(d.Server, d.Port, d.Username, password, d.Name)
	default:
		return nil, fmt.Errorf("%w: unknown datalogger type %q", errs.ErrConfigInvalid, d.Type)
	}
}

func decryptDataloggerPassword(cfg *Config) (string, error) {
	return DecryptPassword(cfg.Datalogger.Password, cfg.Datalogger.Key, cfg.Salt, cfg.IV)
}

// protocolOf maps a §6 connection `type` key onto the variable package's
// Protocol enum and the connection.NewClient kind string (the latter is
// "modbus", not "modbus-tcp": the wire-protocol family, not the config
// spelling).
func protocolOf(connType string) (variable.Protocol, string, error) {
	switch connType {
	case "s7":
		return variable.ProtocolS7, "s7", nil
	case "modbus-tcp":
		return variable.ProtocolModbus, "modbus", nil
	case "opcua":
		return variable.ProtocolOPCUA, "opcua", nil
	case "json":
		return variable.ProtocolJSON, "json", nil
	default:
		return 0, "", fmt.Errorf("%w: unknown connection type %q", errs.ErrConfigInvalid, connType)
	}
}

// clientKey identifies a (kind, address) pair for the Shareable aliasing
// policy of §5: two connections of the same type at the same address alias
// one DeviceClient rather than opening a second one.
type clientKey struct {
	kind    string
	address string
}

// buildConnections constructs every connection and its readers (writers are
// bound in a second pass, bindWriters, since a writer's source reader may
// live on a connection not yet built). It returns the connections by name
// and a "var::connection" -> *variable.Reader index for the writer pass and
// for potential future cross-connection lookups.
func buildConnections(cfg *Config) (map[string]*connection.Connection, map[string]*variable.Reader, error) {
	conns := make(map[string]*connection.Connection, len(cfg.Connections))
	readers := make(map[string]*variable.Reader)
	clients := make(map[clientKey]variable.DeviceClient)

	keyCounts := make(map[clientKey]int, len(cfg.Connections))
	for _, cc := range cfg.Connections {
		_, kind, err := protocolOf(cc.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("connection %q: %w", cc.Name, err)
		}
		keyCounts[clientKey{kind: kind, address: cc.Address}]++
	}

	for _, cc := range cfg.Connections {
		protocol, kind, err := protocolOf(cc.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("connection %q: %w", cc.Name, err)
		}

		key := clientKey{kind: kind, address: cc.Address}
		client, shared := clients[key]
		if !shared {
			client, err = connection.NewClient(kind, cc.Address, deviceTimeout, nil)
			if err != nil {
				return nil, nil, fmt.Errorf("connection %q: %w", cc.Name, err)
			}
			clients[key] = client
		}
		shareable := keyCounts[key] > 1

		conn, err := connection.New(cc.Name, cc.Type, cc.Address, cc.SampleTicks, client, shareable)
		if err != nil {
			return nil, nil, err
		}

		for _, vc := range cc.Variables {
			if vc.IsWriter {
				continue // second pass
			}
			typ, err := datatype.Parse(vc.Type)
			if err != nil {
				return nil, nil, fmt.Errorf("connection %q: variable %q: %w", cc.Name, vc.Name, err)
			}
			r, err := variable.NewReader(vc.Name, vc.Address, typ, protocol)
			if err != nil {
				return nil, nil, fmt.Errorf("connection %q: %w", cc.Name, err)
			}
			if err := conn.AddReader(r); err != nil {
				return nil, nil, err
			}
			readers[vc.Name+"::"+cc.Name] = r
		}

		conns[cc.Name] = conn
	}

	return conns, readers, nil
}

// bindWriters builds every writer variable now that every reader across
// every connection has been constructed, resolving each writer's source
// qualifier into a *variable.Reader per §3's writer-binding grammar.
func bindWriters(cfg *Config, conns map[string]*connection.Connection, readers map[string]*variable.Reader) error {
	for _, cc := range cfg.Connections {
		conn := conns[cc.Name]
		protocol, _, err := protocolOf(cc.Type)
		if err != nil {
			return fmt.Errorf("connection %q: %w", cc.Name, err)
		}
		for _, vc := range cc.Variables {
			if !vc.IsWriter {
				continue
			}
			source, ok := readers[vc.SourceVar+"::"+vc.SourceConn]
			if !ok {
				return fmt.Errorf("connection %q: writer %q: %w: unknown source %s::%s",
					cc.Name, vc.Name, errs.ErrConfigInvalid, vc.SourceVar, vc.SourceConn)
			}
			w, err := variable.NewWriter(vc.Name, vc.Address, protocol, source)
			if err != nil {
				return fmt.Errorf("connection %q: %w", cc.Name, err)
			}
			if err := conn.AddWriter(w); err != nil {
				return err
			}
		}
	}
	return nil
}
