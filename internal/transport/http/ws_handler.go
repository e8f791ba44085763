package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/droprelay/internal/config"
	"github.com/vovakirdan/droprelay/internal/core"
	"github.com/vovakirdan/droprelay/internal/metrics"
	"github.com/vovakirdan/droprelay/internal/proto"
	"github.com/vovakirdan/droprelay/internal/utils"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second
	// How often the server pings an idle peer, and how long it waits for the pong.
	pingPeriod = 30 * time.Second
	pongWait   = 10 * time.Second
	// Transport-level replies (parse errors) queued for the writer.
	replyBuffer = 16
)

// Hub is the part of core.Hub the transport depends on.
type Hub interface {
	RegisterClient(c *core.Client) error
	UnregisterClient(c *core.Client)
	Stats(ctx context.Context) (core.Stats, error)
}

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub     Hub
	metrics *metrics.Metrics
	log     *zerolog.Logger

	accept          *websocket.AcceptOptions
	maxMessageBytes int64
	sendBuffer      int
	rateLimit       int
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub Hub, m *metrics.Metrics, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	patterns, allowAll := originPatterns(cfg.AllowedOrigins, logger)
	return &WSHandler{
		hub:     hub,
		metrics: m,
		log:     logger,
		accept: &websocket.AcceptOptions{
			OriginPatterns:     patterns,
			InsecureSkipVerify: allowAll,
		},
		maxMessageBytes: cfg.MaxMessageBytes,
		sendBuffer:      cfg.SendBuffer,
		rateLimit:       cfg.RateLimitPerMinute,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		h.log.Error().Err(err).Str("remote", r.RemoteAddr).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(h.maxMessageBytes)

	client := core.NewClient(utils.NewID(), h.sendBuffer)
	if err := h.hub.RegisterClient(client); err != nil {
		h.log.Warn().Err(err).Str("client_id", client.ID).Msg("hub refused client")
		conn.Close(websocket.StatusTryAgainLater, "server shutting down")
		return
	}
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.rateLimit)
	limiter.startReset(ctx.Done())

	replies := make(chan proto.Outbound, replyBuffer)

	errCh := make(chan error, 3)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter, replies)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, replies)
	}()
	go func() {
		errCh <- h.keepAlive(ctx, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutines
	<-errCh
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *rateLimiter, replies chan<- proto.Outbound) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("read ws frame")
			return err
		}

		if !limiter.allow() {
			h.reply(client, replies, proto.NewError(proto.ErrCodeRateLimited, "too many messages, slow down"))
			continue
		}

		inbound, protoErr := decodeInbound(data)
		var cmd *core.Command
		if protoErr == nil {
			cmd, protoErr = inboundToCommand(inbound)
		}
		if protoErr != nil {
			h.metrics.InvalidFrames.Inc()
			h.log.Debug().Str("client_id", client.ID).Str("code", protoErr.Code).Int("bytes", len(data)).Msg("rejected inbound frame")
			h.reply(client, replies, proto.Outbound{Type: proto.OutboundTypeError, Payload: *protoErr})
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// reply queues a transport-level response without blocking the reader.
func (h *WSHandler) reply(client *core.Client, replies chan<- proto.Outbound, out proto.Outbound) {
	select {
	case replies <- out:
	default:
		h.metrics.DroppedEvents.Inc()
		h.log.Warn().Str("client_id", client.ID).Str("type", out.Type).Msg("reply queue full, dropping")
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, replies <-chan proto.Outbound) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := writeJSON(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Warn().Err(err).Str("client_id", client.ID).Stringer("event", event.Kind).Msg("write ws event")
				return err
			}
		case out := <-replies:
			if err := writeJSON(ctx, conn, out); err != nil {
				h.log.Warn().Err(err).Str("client_id", client.ID).Msg("write ws reply")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) keepAlive(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pongWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// writeJSON writes v as one text frame. HTML escaping is disabled so relayed
// payloads keep their characters.
func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := encodeFrame(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func encodeFrame(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode outbound: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
