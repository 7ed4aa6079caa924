// Package scheduler drives all of a logger's connections on a shared tick,
// dispatching reads in parallel and writes asynchronously, per §4.1/§5.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"jidl/connection"
	"jidl/errs"
	"jidl/sink"
)

const (
	fastTick = 100 * time.Millisecond
	slowTick = 1 * time.Second

	// fastTickThreshold: any connection with sampleTicks below this forces
	// the fast tick resolution for the whole run, per §4.1.
	fastTickThreshold = 10

	stopGrace = 3 * time.Second
)

// FatalHandler is invoked once, from the tick's dispatch goroutine after
// every read task of that tick has finished, when a SinkUnavailable
// propagates out of addEntry. Stop() is launched after it returns.
type FatalHandler func(error)

// Scheduler is the tick-driven dispatch loop of §4.1.
type Scheduler struct {
	connections []*connection.Connection
	sink        sink.Sink
	fatal       FatalHandler

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New constructs a Scheduler over connections, appending rows to sink.
// fatal may be nil.
func New(connections []*connection.Connection, s sink.Sink, fatal FatalHandler) *Scheduler {
	return &Scheduler{connections: connections, sink: s, fatal: fatal}
}

// Status reports true while the ticker is armed.
func (s *Scheduler) Status() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start begins ticking; it returns immediately. Fails with ErrLoggerNotReady
// if any connection is uninitialized and the sink cannot be opened.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	if openErr := s.sink.Open(ctx); openErr != nil {
		for _, c := range s.connections {
			if !c.IsInitialized() {
				s.mu.Unlock()
				return fmt.Errorf("scheduler: %w: %v", errs.ErrLoggerNotReady, openErr)
			}
		}
	}

	tickStep := slowTick
	for _, c := range s.connections {
		if c.SampleTicks() < fastTickThreshold {
			tickStep = fastTick
			break
		}
	}

	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go s.run(stop, done, tickStep)
	return nil
}

// Stop cancels ticking, waits up to a grace period for in-flight tasks,
// disconnects every connection, and is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.disconnectAll()
		return
	}
	stop, done := s.stop, s.done
	s.running = false
	s.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(stopGrace):
	}
	s.disconnectAll()
}

func (s *Scheduler) disconnectAll() {
	for _, c := range s.connections {
		if c.State() == connection.Connected {
			c.Disconnect()
		}
	}
}

func (s *Scheduler) run(stop, done chan struct{}, tickStep time.Duration) {
	defer close(done)

	ticker := time.NewTicker(tickStep)
	defer ticker.Stop()

	var counter int64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// counter advances in deciseconds, matching SampleTicks' unit
			// (config/ini.go's parseSampleTicks returns seconds*10): fast
			// tick -> 1, slow tick -> 10.
			counter += int64(tickStep / (100 * time.Millisecond))
			if !s.dispatchTick(counter) {
				return
			}
		}
	}
}

// dispatchTick runs one tick's full read barrier then launches write tasks.
// It returns false if a SinkUnavailable triggered a self-stop, signaling
// the caller to exit the ticker loop without double-stopping.
func (s *Scheduler) dispatchTick(counter int64) bool {
	var wg sync.WaitGroup
	var fatalErr error
	var fatalOnce sync.Once

	for _, c := range s.connections {
		if counter%int64(c.SampleTicks()) != 0 {
			continue
		}
		if !c.HasReaders() {
			continue
		}
		wg.Add(1)
		go func(c *connection.Connection) {
			defer wg.Done()
			if err := s.readTask(c); err != nil {
				var su *errs.SinkUnavailable
				if errors.As(err, &su) {
					fatalOnce.Do(func() { fatalErr = err })
				}
			}
		}(c)
	}
	wg.Wait()

	if fatalErr != nil {
		if s.fatal != nil {
			s.fatal(fatalErr)
		}
		go s.Stop()
		return false
	}

	for _, c := range s.connections {
		if counter%int64(c.SampleTicks()) != 0 {
			continue
		}
		if !c.Writeable() {
			continue
		}
		go s.writeTask(c)
	}
	return true
}

// readTask advances one connection through connect/read per §4.1's
// per-connection state machine, appending a row on success.
func (s *Scheduler) readTask(c *connection.Connection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	switch c.State() {
	case connection.Connected:
		row, err := c.Read(ctx)
		if err != nil {
			c.Disconnect()
			s.sink.Log(ctx, fmt.Sprintf("connection %q: %v", c.Name(), err), true)
			return nil
		}
		row["TIMESTAMP"] = sink.FormatTimestamp(time.Now())
		if err := s.sink.AddEntry(ctx, c.Name(), row); err != nil {
			return err
		}
		return nil
	case connection.Initialized, connection.Disconnected:
		if err := c.Connect(ctx); err != nil {
			s.sink.Log(ctx, fmt.Sprintf("connection %q: connect failed: %v", c.Name(), err), true)
		}
		return nil
	default:
		if err := c.Initialize(); err != nil {
			s.sink.Log(ctx, fmt.Sprintf("connection %q: initialize failed: %v", c.Name(), err), true)
		}
		return nil
	}
}

func (s *Scheduler) writeTask(c *connection.Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if c.State() != connection.Connected {
		return
	}
	if err := c.Write(ctx); err != nil {
		c.Disconnect()
		s.sink.Log(ctx, fmt.Sprintf("connection %q: write failed: %v", c.Name(), err), true)
	}
}
