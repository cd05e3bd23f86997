// Package server is the connection acceptor and dispatcher: a single
// accept loop handing each connection to a bounded worker pool, whose
// handlers parse the wire protocol, submit work to the pipeline, and
// write back the result.
package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/stationwatch/aggregator/internal/httpwire"
	"github.com/stationwatch/aggregator/internal/pipeline"
)

// DefaultPoolSize is the number of concurrent connection handlers.
const DefaultPoolSize = 10

// DefaultDrainDeadline bounds how long graceful shutdown waits for
// in-flight connections. Handlers still running when it elapses are not
// cancelled; Run returns and leaves them to finish on their own.
const DefaultDrainDeadline = 5 * time.Second

// Server owns the listening socket and the bounded handler pool.
type Server struct {
	addr     string
	poolSize int
	pipe     *pipeline.Pipeline
	log      *slog.Logger

	ln       net.Listener
	sem      chan struct{}
	wg       sync.WaitGroup
	ready    chan struct{}
	readyOne sync.Once
	stopping chan struct{}
}

// New builds a Server listening on addr (host:port) with a pool of
// poolSize concurrent connection handlers.
func New(addr string, poolSize int, pipe *pipeline.Pipeline, log *slog.Logger) *Server {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	return &Server{
		addr:     addr,
		poolSize: poolSize,
		pipe:     pipe,
		log:      log,
		sem:      make(chan struct{}, poolSize),
		ready:    make(chan struct{}),
		stopping: make(chan struct{}),
	}
}

// Ready returns a channel closed once the listening socket is bound, so
// tests and the admin surface's /readyz can synchronize on startup.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listen address. Only valid after Ready fires.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Run binds the listening socket and accepts connections until ctx is
// canceled, at which point it performs the shutdown sequence: stop
// accepting, close the listener, drain the handler pool with a bounded
// deadline, then return.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.readyOne.Do(func() { close(s.ready) })
	s.log.Info("acceptor listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		close(s.stopping)
		_ = s.ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopping:
				return s.drain()
			default:
				s.log.Error("accept failed", "error", err)
				return err
			}
		}

		select {
		case s.sem <- struct{}{}:
			s.wg.Add(1)
			go s.handleConn(conn)
		default:
			// Pool is saturated: the connection itself is accepted but
			// gets an immediate 503, mirroring FIFO-full backpressure at
			// the dispatcher layer rather than the FIFO itself.
			go s.rejectBusy(conn)
		}
	}
}

// drain waits for in-flight handlers to finish, up to DefaultDrainDeadline,
// and returns once either all have finished or the deadline elapses.
func (s *Server) drain() error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("acceptor drained cleanly")
	case <-time.After(DefaultDrainDeadline):
		s.log.Warn("acceptor drain deadline exceeded, returning with connections still in flight")
	}
	return nil
}

func (s *Server) rejectBusy(conn net.Conn) {
	defer conn.Close()
	_ = httpwire.WriteResponse(conn, 503, nil)
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() { <-s.sem }()
	defer conn.Close()

	reader := bufio.NewReader(conn)
	req, err := httpwire.ParseRequest(reader)
	if err != nil {
		if errors.Is(err, httpwire.ErrBadRequestLine) {
			_ = httpwire.WriteResponse(conn, 400, nil)
			return
		}
		if !errors.Is(err, io.EOF) {
			s.log.Error("connection read failed", "error", err, "peer", conn.RemoteAddr().String())
		}
		return
	}

	peer := conn.RemoteAddr().String()

	var item *pipeline.WorkItem
	switch req.Method {
	case "PUT":
		item = pipeline.NewPutItem(peer, req.LamportClock(), req.Body)
	case "GET":
		item = pipeline.NewGetItem(peer, req.LamportClock(), req.QueryParam("stationID"))
	default:
		_ = httpwire.WriteResponse(conn, 400, nil)
		return
	}

	if err := s.pipe.Submit(item); err != nil {
		_ = httpwire.WriteResponse(conn, 503, nil)
		return
	}

	res := item.Wait()
	if err := httpwire.WriteResponse(conn, res.Status, res.Body); err != nil {
		s.log.Error("response write failed", "error", err, "peer", peer)
	}
}
