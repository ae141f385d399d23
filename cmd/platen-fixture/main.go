package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"platen/internal/fixture"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:8787", "listen address")
	dbPath := flag.String("db", "", "sqlite file for persistent state (optional, in-memory by default)")
	failOps := flag.String("fail", "", "comma-separated ops whose next call fails (health,orders,persist,prepare,run,complete)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var store fixture.Store
	if *dbPath != "" {
		sqlStore, err := fixture.OpenSQL(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "platen-fixture: %v\n", err)
			return 1
		}
		store = sqlStore
		log.Info("using sqlite store", "path", *dbPath)
	} else {
		store = fixture.NewMemStore()
		log.Info("using in-memory store")
	}
	defer func() { _ = store.Close() }()

	handler := fixture.NewHandler(store, log)
	for _, op := range strings.Split(*failOps, ",") {
		op = strings.TrimSpace(op)
		if op == "" {
			continue
		}
		if err := handler.FailNext(op); err != nil {
			fmt.Fprintf(os.Stderr, "platen-fixture: %v\n", err)
			return 1
		}
		log.Info("armed failure", "op", op)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           fixture.NewEngine(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info("fixture listening", "addr", *addr)

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "platen-fixture: shutdown: %v\n", err)
			return 1
		}
		<-errCh
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "platen-fixture: %v\n", err)
			return 1
		}
	}
	return 0
}
