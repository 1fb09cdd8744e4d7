// Package natsutil provides typed NATS request/reply helpers that carry
// OpenTelemetry trace context in message headers.
package natsutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// DefaultTimeout bounds a Request whose context has no deadline.
const DefaultTimeout = 30 * time.Second

// ErrorReply is sent back when a request cannot be decoded or the handler
// fails.
type ErrorReply struct {
	Error string `json:"error"`
}

// headerCarrier adapts nats.Msg headers for the OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// marshal leaves <, > and & unescaped so tool text crosses the wire as is.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func newMsg(ctx context.Context, subject string, v any) (*nats.Msg, error) {
	data, err := marshal(v)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return msg, nil
}

// Publish serializes v as JSON and publishes it to subject.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	msg, err := newMsg(ctx, subject, v)
	if err != nil {
		return err
	}
	return nc.PublishMsg(msg)
}

// Request sends a JSON request and decodes the reply. The context deadline
// applies, or DefaultTimeout when there is none.
func Request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	msg, err := newMsg(ctx, subject, req)
	if err != nil {
		return zero, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}
	reply, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return zero, err
	}
	var out Resp
	if err := json.Unmarshal(reply.Data, &out); err != nil {
		return zero, err
	}
	return out, nil
}

// Handler answers one decoded request.
type Handler[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Serve subscribes handler to subject in the given queue group. Each request
// is decoded from JSON, with an empty body as the zero Req, and answered with
// the encoded response or an ErrorReply. An empty queue subscribes without a
// group.
func Serve[Req, Resp any](nc *nats.Conn, subject, queue string, handler Handler[Req, Resp]) (*nats.Subscription, error) {
	if handler == nil {
		return nil, errors.New("natsutil: nil handler")
	}
	return nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))

		var req Req
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				respond(msg, ErrorReply{Error: "invalid request: " + err.Error()})
				return
			}
		}
		resp, err := handler(ctx, req)
		if err != nil {
			respond(msg, ErrorReply{Error: err.Error()})
			return
		}
		respond(msg, resp)
	})
}

func respond(msg *nats.Msg, v any) {
	if msg.Reply == "" {
		return
	}
	data, err := marshal(v)
	if err != nil {
		data, _ = marshal(ErrorReply{Error: err.Error()})
	}
	_ = msg.Respond(data)
}
