package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tilegen.ai/internal/protocol"
)

// The bot pans a viewport across the map, one GENERATE per step, and
// optionally reseeds every N steps.
func main() {
	var (
		url         = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		steps       = flag.Int("steps", 10, "number of GENERATE requests")
		stepX       = flag.Float64("step_x", 16, "offset x advance per step")
		stepY       = flag.Float64("step_y", 0, "offset y advance per step")
		reseedEvery = flag.Int("reseed_every", 0, "send RESEED every N steps (0 = never)")
		interval    = flag.Duration("interval", 500*time.Millisecond, "delay between requests")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	for i := 0; i < *steps; i++ {
		select {
		case <-stop:
			return
		default:
		}

		if *reseedEvery > 0 && i > 0 && i%*reseedEvery == 0 {
			req := protocol.ReseedMsg{
				Type:            protocol.TypeReseed,
				ProtocolVersion: protocol.Version,
				RequestID:       fmt.Sprintf("R_%d", i),
			}
			if err := conn.WriteJSON(req); err != nil {
				logger.Fatalf("send RESEED: %v", err)
			}
			if !readReply(conn, logger) {
				return
			}
		}

		off := protocol.Vec2{X: float64(i) * *stepX, Y: float64(i) * *stepY}
		req := protocol.GenerateMsg{
			Type:            protocol.TypeGenerate,
			ProtocolVersion: protocol.Version,
			RequestID:       fmt.Sprintf("G_%d", i),
			Offset:          &off,
		}
		if err := conn.WriteJSON(req); err != nil {
			logger.Fatalf("send GENERATE: %v", err)
		}
		if !readReply(conn, logger) {
			return
		}
		time.Sleep(*interval)
	}
}

func readReply(conn *websocket.Conn, logger *log.Logger) bool {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Printf("read: %v", err)
		return false
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		logger.Printf("decode: %v", err)
		return true
	}
	switch base.Type {
	case protocol.TypeMap:
		var m protocol.MapMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return true
		}
		logger.Printf("MAP req=%s run=%s size=%dx%d digest=%.12s biomes=%s",
			m.RequestID, m.RunID, m.Width, m.Height, m.Digest, formatHistogram(m.Histogram))

	case protocol.TypeSeeds:
		var s protocol.SeedsMsg
		if err := json.Unmarshal(msg, &s); err != nil {
			return true
		}
		logger.Printf("SEEDS req=%s height=%v moisture=%v heat=%v", s.RequestID, s.Height, s.Moisture, s.Heat)

	case protocol.TypeError:
		var e protocol.ErrorMsg
		if err := json.Unmarshal(msg, &e); err != nil {
			return true
		}
		logger.Printf("ERROR req=%s code=%s msg=%s", e.RequestID, e.Code, e.Message)
	}
	return true
}

func formatHistogram(h map[string]int) string {
	ids := make([]string, 0, len(h))
	for id := range h {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s:%d", id, h[id]))
	}
	return strings.Join(parts, ",")
}
