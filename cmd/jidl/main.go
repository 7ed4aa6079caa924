// Command jidl is the process entry point: flag parsing, configuration
// load, Logger construction and wiring, the interactive console loop, and
// signal handling, per §6's CLI contract.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"jidl/config"
	"jidl/logger"
	"jidl/logging"
	"jidl/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("c", "", "path to the INI configuration file")
	autostart := flag.Bool("a", false, "autostart logging after load")
	remoteControl := flag.Bool("r", false, "permit start/stop via IPC")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "jidl: -c <path> is required")
		return 1
	}

	cfg, err := config.LoadINI(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jidl: load config: %v\n", err)
		return 1
	}

	if cfg.Datalogger.Dir == "" {
		cfg.Datalogger.Dir = "."
	}
	if _, err := os.Stat(cfg.Datalogger.Dir); err != nil {
		fmt.Fprintf(os.Stderr, "jidl: working directory %q: %v\n", cfg.Datalogger.Dir, err)
		return 1
	}

	fileLog, err := logging.NewFileLogger(filepath.Join(cfg.Datalogger.Dir, "jidl.log"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "jidl: open log file: %v\n", err)
		return 1
	}
	defer fileLog.Close()

	// The protocol-level debug logger is independent of the operator log
	// above: it hex-dumps device/wire TX-RX traffic for troubleshooting and
	// is installed globally so connection/ipc packages can reach it without
	// threading it through every constructor.
	debugLog, err := logging.NewDebugLogger(filepath.Join(cfg.Datalogger.Dir, "debug.log"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "jidl: open debug log file: %v\n", err)
		return 1
	}
	logging.SetGlobalDebugLogger(debugLog)
	defer func() {
		logging.SetGlobalDebugLogger(nil)
		debugLog.Close()
	}()

	// Persist the YAML mirror of the loaded INI (§6's "Persisted state"),
	// best-effort: a failure here does not abort startup.
	if err := cfg.Save(filepath.Join(cfg.Datalogger.Dir, "jidl.yaml")); err != nil {
		fileLog.Log("warning: save config mirror: %v", err)
	}

	var fatalErr error
	fatal := func(err error) { fatalErr = err }

	l, err := config.Bind(cfg, fileLog.Log, fatal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jidl: bind config: %v\n", err)
		return 1
	}

	var srv *server.Server
	if cfg.IPC.Port != 0 {
		srv, err = startIPCServer(cfg, l, *remoteControl, fileLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jidl: start ipc server: %v\n", err)
			return 1
		}
		defer srv.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *autostart {
		if err := l.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "jidl: start logger: %v\n", err)
			return 1
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	cmdCh := make(chan byte)
	go readCommands(cmdCh)

	fmt.Println("jidl ready. commands: s=start p=pause/stop q=quit")
	for {
		select {
		case <-sigCh:
			l.Stop()
			return 0
		case cmd, ok := <-cmdCh:
			if !ok {
				l.Stop()
				return 0
			}
			switch cmd {
			case 's':
				if err := l.Start(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "start: %v\n", err)
				}
			case 'p':
				l.Stop()
			case 'q':
				l.Stop()
				return 0
			}
		}
		if fatalErr != nil {
			fmt.Fprintf(os.Stderr, "jidl: fatal: %v\n", fatalErr)
			return 1
		}
	}
}

// readCommands scans stdin for the single-character commands §6 defines,
// closing cmdCh on EOF (e.g. stdin redirected from /dev/null in a
// non-interactive run).
func readCommands(cmdCh chan<- byte) {
	defer close(cmdCh)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		cmdCh <- line[0]
	}
}

func startIPCServer(cfg *config.Config, l *logger.Logger, remoteControl bool, fileLog *logging.FileLogger) (*server.Server, error) {
	tlsCfg, err := server.TLSConfig{
		Keystore:           cfg.IPC.Keystore,
		KeystorePassword:   cfg.IPC.KeystorePassword,
		Truststore:         cfg.IPC.Truststore,
		TruststorePassword: cfg.IPC.TruststorePassword,
	}.Build()
	if err != nil {
		return nil, err
	}

	handler := server.NewRequestHandler(l, remoteControl)
	srv := server.New(fmt.Sprintf(":%d", cfg.IPC.Port), tlsCfg, handler)
	srv.SetLogFunc(fileLog.Log)
	if err := srv.Start(); err != nil {
		return nil, err
	}
	return srv, nil
}
