package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"tilegen.ai/internal/generator"
	"tilegen.ai/internal/protocol"
	"tilegen.ai/internal/transport/ws"
)

func newMux(gen *generator.Service, idx runtimeIndex, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/v1/preset", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(rw, http.StatusOK, gen.Preset())
	})

	mux.HandleFunc("/v1/generate", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req protocol.GenerateMsg
		if r.ContentLength != 0 {
			if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 1<<20)).Decode(&req); err != nil {
				writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, err.Error()))
				return
			}
		}
		out, err := gen.Generate(r.Context(), generator.OverridesFrom(req))
		if err != nil {
			logger.Printf("generate request=%s: %v", req.RequestID, err)
			writeJSON(rw, statusFor(generator.ErrorCode(err)), protocol.NewError(req.RequestID, generator.ErrorCode(err), err.Error()))
			return
		}
		m, err := generator.MapMessage(out, req.RequestID, req.IncludeFields)
		if err != nil {
			writeJSON(rw, http.StatusInternalServerError, protocol.NewError(req.RequestID, protocol.ErrInternal, err.Error()))
			return
		}
		writeJSON(rw, http.StatusOK, m)
	})

	mux.HandleFunc("/v1/reseed", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(rw, http.StatusOK, generator.SeedsMessage(gen.RandomizeSeeds(), r.URL.Query().Get("request_id")))
	})

	// Local-only admin endpoint.
	mux.HandleFunc("/admin/v1/runs", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		if idx == nil {
			http.Error(rw, "index disabled", http.StatusNotFound)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		rows, err := idx.RecentRuns(r.Context(), limit)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(rw, http.StatusOK, rows)
	})

	mux.HandleFunc("/v1/ws", ws.NewServer(gen, logger).Handler())
	return mux
}

func statusFor(code string) int {
	switch code {
	case protocol.ErrInvalidConfig, protocol.ErrEmptyBiomeSet, protocol.ErrEmptyTileChoices, protocol.ErrBadRequest:
		return http.StatusUnprocessableEntity
	case protocol.ErrCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
