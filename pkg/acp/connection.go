package acp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acplabs/acp-go/internal/ctxkey"
)

// Role identifies which side of the connection this process plays.
type Role int

const (
	RoleAgent Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleAgent {
		return "agent"
	}
	return "client"
}

// ConnectionOptions configures cross-cutting behavior the connection
// controller applies around every message, all of it optional.
type ConnectionOptions struct {
	// Logger receives one structured line per frame decode failure,
	// unmatched response, and policy denial. Defaults to slog.Default().
	Logger *slog.Logger

	// Policy, if set, gates every inbound request and notification before
	// it reaches the dispatcher (§4.9). A nil Policy is a pass-through.
	Policy *Policy

	// Metrics, if set, is instrumented at four points around dispatch
	// (§4.10). A nil Metrics is a no-op.
	Metrics *Metrics

	// RequestTimeout bounds how long SendRequest waits for a matching
	// response before returning ErrRequestTimeout. Zero means no timeout.
	RequestTimeout time.Duration
}

// Connection drives one JSON-RPC connection over a Content-Length framed
// byte stream: it owns the frame decoder, the message classifier, the
// pending-request table, the session registry, and the handler's
// per-connection state, and serializes every outbound write so concurrent
// SendRequest/SendNotification calls and concurrent response writes never
// interleave their bytes.
type Connection[S any] struct {
	role   Role
	connID string

	r io.Reader
	w io.Writer

	writeMu sync.Mutex

	pending    *pendingTable
	sessions   *sessionRegistry
	dispatcher *dispatcher[S]
	state      S

	logger  *slog.Logger
	policy  *Policy
	metrics *Metrics

	requestTimeout time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

// NewConnection builds a connection around transport r/w for the given
// role and handler, and runs the handler's Init callback to produce its
// connection-scoped state.
func NewConnection[S any](ctx context.Context, role Role, r io.Reader, w io.Writer, handler Handler[S], opts ConnectionOptions) (*Connection[S], error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	connID := uuid.NewString()
	logger = logger.With("conn_id", connID, "role", role.String())

	sessions := newSessionRegistry()
	conn := &Connection[S]{
		role:           role,
		connID:         connID,
		r:              r,
		w:              w,
		pending:        newPendingTable(),
		sessions:       sessions,
		dispatcher:     newDispatcher(handler, sessions),
		logger:         logger,
		policy:         opts.Policy,
		metrics:        opts.Metrics,
		requestTimeout: opts.RequestTimeout,
		done:           make(chan struct{}),
	}

	state, err := handler.Init(context.WithValue(ctx, ctxkey.LoggerKey{}, logger), conn)
	if err != nil {
		return nil, fmt.Errorf("acp: handler init: %w", err)
	}
	conn.state = state

	return conn, nil
}

// Run reads frames from the connection's transport until it hits EOF, a
// read error, or ctx is cancelled, dispatching every message it decodes.
// It returns once every in-flight handler goroutine it spawned has
// finished, so callers can rely on Run's return meaning the connection is
// fully quiesced.
func (c *Connection[S]) Run(ctx context.Context) error {
	defer c.shutdown()

	br := bufio.NewReaderSize(c.r, 64*1024)
	decoder := NewFrameDecoder()
	readErrCh := make(chan error, 1)
	frameCh := make(chan []byte)

	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := br.Read(buf)
			if n > 0 {
				decoder.Feed(buf[:n])
				for {
					payload, ok, derr := decoder.Next()
					if derr != nil {
						c.logger.Warn("discarding malformed frame", "error", derr)
						continue
					}
					if !ok {
						break
					}
					select {
					case frameCh <- payload:
					case <-c.done:
						return
					}
				}
			}
			if err != nil {
				readErrCh <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			c.wg.Wait()
			return ctx.Err()
		case err := <-readErrCh:
			c.shutdown()
			c.wg.Wait()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case payload := <-frameCh:
			c.handleFrame(ctx, payload)
		}
	}
}

func (c *Connection[S]) handleFrame(ctx context.Context, payload []byte) {
	msg, err := Classify(payload)
	if err != nil {
		c.logger.Warn("discarding invalid json message", "error", err)
		return
	}
	switch msg.Kind {
	case KindRequest:
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.serveRequest(ctx, msg)
		}()
	case KindNotification:
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.serveNotification(ctx, msg)
		}()
	case KindResponse, KindErrorResponse:
		if !c.pending.resolve(msg.ID, msg.Result, msg.Error) {
			c.logger.Warn("discarding unmatched response", "id", msg.ID.String())
		}
	default:
		c.logger.Warn("discarding malformed message")
	}
}

func (c *Connection[S]) serveRequest(ctx context.Context, msg Message) {
	method := lookupMethod(msg.Method)
	start := time.Now()

	if allowed, reason := c.checkPolicy(msg.Method, msg.Params); !allowed {
		c.writeError(msg.ID, errorToErrorObject(ErrPolicyDenied))
		c.metrics.observeMessage(c.role, msg.Method, "denied")
		c.logger.Warn("request denied by policy", "method", msg.Method, "reason", reason)
		return
	}

	if isNotificationMethod(method) {
		c.writeError(msg.ID, &ErrorObject{Code: CodeInvalidRequest, Message: "method is notification-only: " + msg.Method})
		c.metrics.observeMessage(c.role, msg.Method, "error")
		return
	}

	result, errObj := c.dispatcher.dispatchRequest(ctx, c.state, method, msg.Method, msg.Params)
	c.metrics.observeDispatch(c.role, msg.Method, time.Since(start))
	c.metrics.setPendingRequests(c.pending.len())
	c.metrics.setSessions(c.sessions.count())

	if errObj != nil {
		c.writeError(msg.ID, errObj)
		c.metrics.observeMessage(c.role, msg.Method, "error")
		return
	}
	c.writeResult(msg.ID, result)
	c.metrics.observeMessage(c.role, msg.Method, "ok")
}

func (c *Connection[S]) serveNotification(ctx context.Context, msg Message) {
	method := lookupMethod(msg.Method)
	if method != MethodUnknown && !isNotificationMethod(method) {
		c.logger.Warn("discarding request-only method sent as notification", "method", msg.Method)
		return
	}
	if allowed, reason := c.checkPolicy(msg.Method, msg.Params); !allowed {
		c.metrics.observeMessage(c.role, msg.Method, "denied")
		c.logger.Warn("notification denied by policy", "method", msg.Method, "reason", reason)
		return
	}
	c.dispatcher.dispatchNotification(ctx, c.state, method, msg.Params)
	c.metrics.observeMessage(c.role, msg.Method, "ok")
}

func (c *Connection[S]) checkPolicy(method string, params json.RawMessage) (bool, string) {
	if c.policy == nil {
		return true, ""
	}
	return c.policy.Evaluate(method, params)
}

// SendRequest issues an outbound request and blocks until a matching
// response arrives, ctx is cancelled, or the connection closes.
func (c *Connection[S]) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("acp: marshaling request params: %w", err)
	}
	id, ch := c.pending.register()

	if err := c.writeMessage(func() ([]byte, error) {
		return EncodeRequest(id, method, paramsJSON)
	}); err != nil {
		c.pending.cancel(id)
		return nil, err
	}

	var timeoutCh <-chan time.Time
	if c.requestTimeout > 0 {
		timer := time.NewTimer(c.requestTimeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if res.errObj != nil {
			return nil, res.errObj
		}
		return res.result, nil
	case <-ctx.Done():
		c.pending.cancel(id)
		return nil, ctx.Err()
	case <-timeoutCh:
		c.pending.cancel(id)
		return nil, ErrRequestTimeout
	}
}

// SendNotification issues an outbound notification; there is no response
// to wait for.
func (c *Connection[S]) SendNotification(method string, params any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("acp: marshaling notification params: %w", err)
	}
	return c.writeMessage(func() ([]byte, error) {
		return EncodeNotification(method, paramsJSON)
	})
}

func (c *Connection[S]) writeResult(id ID, result json.RawMessage) {
	_ = c.writeMessage(func() ([]byte, error) { return EncodeResult(id, result) })
}

func (c *Connection[S]) writeError(id ID, errObj *ErrorObject) {
	_ = c.writeMessage(func() ([]byte, error) { return EncodeError(id, errObj) })
}

func (c *Connection[S]) writeMessage(encode func() ([]byte, error)) error {
	payload, err := encode()
	if err != nil {
		return fmt.Errorf("acp: encoding message: %w", err)
	}
	frame := EncodeFrame(payload)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	if _, err := c.w.Write(frame); err != nil {
		return fmt.Errorf("acp: writing frame: %w", err)
	}
	return nil
}

// Close shuts the connection down: outstanding SendRequest calls return
// ErrConnectionClosed and in-flight prompts are cancelled. Run's own
// return from EOF/read-error calls this too, so calling Close explicitly
// is only needed to force a shutdown from outside the read loop.
func (c *Connection[S]) Close() {
	c.shutdown()
}

func (c *Connection[S]) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.sessions.cancelAll()
		c.pending.closeAll()
	})
}
