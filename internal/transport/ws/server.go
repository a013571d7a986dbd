package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tilegen.ai/internal/generator"
	"tilegen.ai/internal/protocol"
)

// MaxMessageBytes caps a single inbound frame, matching the HTTP body limit.
const MaxMessageBytes = 1 << 20

type Server struct {
	gen *generator.Service
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(gen *generator.Service, logger *log.Logger) *Server {
	return &Server{
		gen: gen,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 256 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(MaxMessageBytes)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 8)
		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		send := func(v any) bool {
			b, err := json.Marshal(v)
			if err != nil {
				return false
			}
			select {
			case out <- b:
				return true
			case <-ctx.Done():
				return false
			}
		}

		// Reader loop. Requests are served in arrival order.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			resp := s.handle(ctx, msg)
			if resp == nil {
				continue
			}
			if !send(resp) {
				break
			}
		}
		cancel()
		<-done
	}
}

func (s *Server) handle(ctx context.Context, msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.NewError("", protocol.ErrProtoBadRequest, "invalid json")
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.NewError(base.RequestID, protocol.ErrProtoBadRequest, "bad protocol_version")
	}

	switch base.Type {
	case protocol.TypeGenerate:
		var req protocol.GenerateMsg
		if err := json.Unmarshal(msg, &req); err != nil {
			return protocol.NewError(base.RequestID, protocol.ErrBadRequest, err.Error())
		}
		res, err := s.gen.Generate(ctx, generator.OverridesFrom(req))
		if err != nil {
			s.logf("generate request=%s: %v", req.RequestID, err)
			return protocol.NewError(req.RequestID, generator.ErrorCode(err), err.Error())
		}
		m, err := generator.MapMessage(res, req.RequestID, req.IncludeFields)
		if err != nil {
			return protocol.NewError(req.RequestID, protocol.ErrInternal, err.Error())
		}
		return m
	case protocol.TypeReseed:
		return generator.SeedsMessage(s.gen.RandomizeSeeds(), base.RequestID)
	default:
		return protocol.NewError(base.RequestID, protocol.ErrProtoBadRequest, "unknown message type")
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
