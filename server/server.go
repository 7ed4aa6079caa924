// Package server implements JidlServer: the TLS-gated IPC listener that
// exposes a running Logger's "values"/"start"/"stop"/"trends" methods to
// remote clients, per §4.6.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"jidl/ipc"
)

// defaultWorkers bounds the fixed pool of goroutines servicing accepted
// connections, keeping one slow client from starving the rest.
const defaultWorkers = 8

// requestTimeout bounds how long a single accepted connection may take to
// read its request, dispatch it, and write its response.
const requestTimeout = 10 * time.Second

// Server is the JidlServer of §4.6: a TLS listener requiring client
// certificates, dispatching each accepted connection to a bounded worker
// pool, idempotent on Start/Stop.
type Server struct {
	addr      string
	tlsConfig *tls.Config
	handler   *RequestHandler
	workers   int
	logFn     func(format string, args ...interface{})

	mu       sync.Mutex
	listener net.Listener
	running  bool
	stopCh   chan struct{}
	workCh   chan net.Conn
	wg       sync.WaitGroup
}

// New constructs a Server. addr is a "host:port" listen address; tlsConfig
// must already require and verify client certificates (see TLSConfig.Build).
func New(addr string, tlsConfig *tls.Config, handler *RequestHandler) *Server {
	return &Server{
		addr:      addr,
		tlsConfig: tlsConfig,
		handler:   handler,
		workers:   defaultWorkers,
		logFn:     func(string, ...interface{}) {},
	}
}

// SetLogFunc installs an operator-facing logging callback.
func (s *Server) SetLogFunc(fn func(format string, args ...interface{})) {
	s.logFn = fn
}

// IsStarted reports whether the accept loop is currently running.
func (s *Server) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start binds the TLS listener and begins accepting. Idempotent: calling
// Start while already started is a no-op.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	ln, err := tls.Listen("tcp", s.addr, s.tlsConfig)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}

	s.listener = ln
	s.running = true
	s.stopCh = make(chan struct{})
	s.workCh = make(chan net.Conn)
	stopCh, workCh := s.stopCh, s.workCh
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(workCh)
	}

	s.wg.Add(1)
	go s.acceptLoop(ln, stopCh, workCh)

	return nil
}

// Stop closes the listener, drains the worker pool, and waits for both to
// exit. Idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ln := s.listener
	stopCh := s.stopCh
	workCh := s.workCh
	s.mu.Unlock()

	close(stopCh)
	if ln != nil {
		ln.Close()
	}
	close(workCh)
	s.wg.Wait()
}

// acceptLoop accepts connections until stopCh closes, handing each one to
// the worker pool. A deliberate Stop() close of the listener is
// distinguished from a genuine accept error by checking stopCh first.
func (s *Server) acceptLoop(ln net.Listener, stopCh chan struct{}, workCh chan net.Conn) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-stopCh:
				return
			default:
				s.logFn("server: accept: %v", err)
				continue
			}
		}
		select {
		case workCh <- conn:
		case <-stopCh:
			conn.Close()
			return
		}
	}
}

// worker services accepted connections one at a time until workCh closes.
func (s *Server) worker(workCh chan net.Conn) {
	defer s.wg.Done()
	for conn := range workCh {
		s.handle(conn)
	}
}

// handle services exactly one request over conn, then closes it: each IPC
// exchange is one request/response round trip, not a persistent session.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(requestTimeout))

	method, payload, err := ipc.ReadRequest(conn)
	if err != nil {
		var perr *ipc.Error
		if errors.As(err, &perr) {
			ipc.WriteErrorResponse(conn, &perr.Code)
		} else {
			ipc.WriteErrorResponse(conn, nil)
		}
		s.logFn("server: read request: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, herr := s.handler.Handle(ctx, method, payload)
	if herr != nil {
		var perr *ipc.Error
		if errors.As(herr, &perr) {
			ipc.WriteErrorResponse(conn, &perr.Code)
		} else {
			ipc.WriteErrorResponse(conn, nil)
		}
		s.logFn("server: handle %q: %v", method, herr)
		return
	}
	if err := ipc.WritePayloadResponse(conn, result); err != nil {
		s.logFn("server: write response: %v", err)
	}
}
