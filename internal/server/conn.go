package server

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/moband/kaf/internal/kafka/protocol"
	"github.com/moband/kaf/internal/metrics"
	"github.com/moband/kaf/pkg/logger"
)

// connState is a step of the per-connection request cycle
type connState int

const (
	stateAwaitLength connState = iota
	stateAwaitBody
	stateDispatch
	stateRespond
	stateClosed
)

var connStateNames = [...]string{"AwaitLength", "AwaitBody", "Dispatch", "Respond", "Closed"}

func (s connState) String() string {
	if int(s) < len(connStateNames) {
		return connStateNames[s]
	}
	return "Unknown"
}

// connection runs the read-decode-dispatch-encode-write cycle for one client.
// Exactly one request is in flight at a time and nothing survives between
// requests except the transport.
type connection struct {
	srv    *Server
	conn   net.Conn
	logger *logger.Logger
	state  connState

	// current exchange
	length   int
	payload  []byte
	response *protocol.Response
	started  time.Time
}

func newConnection(srv *Server, conn net.Conn, logger *logger.Logger) *connection {
	return &connection{srv: srv, conn: conn, logger: logger, state: stateAwaitLength}
}

func (c *connection) serve(ctx context.Context) {
	for c.state != stateClosed {
		prev := c.state
		c.state = c.step(ctx)
		if c.logger.Enabled(logger.DEBUG) {
			c.logger.Debug("Connection state %s -> %s", prev, c.state)
		}
	}
}

// step runs the current state and returns the next one
func (c *connection) step(ctx context.Context) connState {
	switch c.state {
	case stateAwaitLength:
		if c.srv.shuttingDown() {
			return stateClosed
		}
		c.response = nil
		c.setReadDeadline()
		length, err := protocol.ReadFrameLength(c.conn, c.srv.parser.MaxFrameBytes())
		if err != nil {
			return c.fail(err)
		}
		c.length = length
		return stateAwaitBody

	case stateAwaitBody:
		c.setReadDeadline()
		payload, err := protocol.ReadFrameBody(c.conn, c.length)
		if err != nil {
			return c.fail(err)
		}
		c.payload = payload
		c.started = time.Now()
		return stateDispatch

	case stateDispatch:
		request, err := c.srv.parser.Parse(c.payload)
		if errors.Is(err, protocol.ErrUnsupportedAPIKey) && request != nil {
			c.recordError(metrics.ErrorUnsupportedAPI)
			c.response = c.srv.handler.HandleUnsupportedRequest(request.Header)
			return stateRespond
		}
		if err != nil {
			return c.fail(err)
		}
		response, err := c.srv.handler.HandleRequest(ctx, request)
		if err != nil {
			return c.fail(err)
		}
		c.response = response
		return stateRespond

	case stateRespond:
		if c.srv.config.WriteTimeout > 0 {
			c.conn.SetWriteDeadline(time.Now().Add(c.srv.config.WriteTimeout))
		}
		n, err := c.srv.handler.WriteResponse(c.conn, c.response)
		if err != nil {
			return c.fail(err)
		}
		if c.srv.metrics != nil {
			c.srv.metrics.RecordRequest(c.response.Body.APIKey().String(), c.response.Version,
				c.length+4, int(n), time.Since(c.started))
		}
		return stateAwaitLength
	}
	return stateClosed
}

func (c *connection) setReadDeadline() {
	if c.srv.config.IdleTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.srv.config.IdleTimeout))
	}
}

// fail logs err according to its class and closes the connection
func (c *connection) fail(err error) connState {
	switch {
	case c.state == stateAwaitLength && errors.Is(err, io.EOF):
		// peer closed between requests
	case c.srv.shuttingDown() || errors.Is(err, net.ErrClosed):
	case protocol.IsDecodeError(err):
		c.recordError(metrics.ErrorDecode)
		c.logger.Error("Error decoding request in state %s: %s", c.state, err.Error())
	default:
		c.recordError(metrics.ErrorTransport)
		c.logger.Error("Connection error in state %s: %s", c.state, err.Error())
	}
	return stateClosed
}

func (c *connection) recordError(kind string) {
	if c.srv.metrics != nil {
		c.srv.metrics.RecordError(kind)
	}
}
