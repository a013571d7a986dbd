package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tilegen.ai/internal/generator"
	persistlog "tilegen.ai/internal/persistence/log"
	"tilegen.ai/internal/preset"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		presetPath = flag.String("preset", "./configs/preset.yaml", "map preset yaml (empty for built-in defaults)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")
		randSeed   = flag.Int64("rand_seed", 0, "seed for RESEED requests (0 = time based)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	p, err := preset.Load(strings.TrimSpace(*presetPath))
	if err != nil {
		logger.Fatalf("load preset: %v", err)
	}
	_ = os.MkdirAll(*dataDir, 0o755)

	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertPreset(p); err != nil {
			logger.Printf("index backend: upsert preset: %v", err)
		}
	}

	runLog := persistlog.NewRunLogger(*dataDir)
	defer runLog.Close()

	sinks := []generator.RunSink{runLog}
	if idx != nil {
		sinks = append(sinks, idx)
	}
	gen, err := generator.New(p, generator.Options{
		Logger: logger,
		Sinks:  sinks,
		Rand:   newRand(*randSeed),
	})
	if err != nil {
		logger.Fatalf("generator: %v", err)
	}
	logger.Printf("preset=%s size=%dx%d noise=%s biomes=%d data=%s",
		p.Name, p.Width, p.Height, p.Noise, len(p.Biomes), filepath.Clean(*dataDir))

	ctx, cancel := signalContext()
	defer cancel()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(gen, idx, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
