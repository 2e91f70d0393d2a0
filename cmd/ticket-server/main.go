package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/puznanski/SIK-ticketserver/internal/booking"
	"github.com/puznanski/SIK-ticketserver/internal/catalogue"
	"github.com/puznanski/SIK-ticketserver/internal/clock"
	"github.com/puznanski/SIK-ticketserver/internal/config"
	"github.com/puznanski/SIK-ticketserver/internal/ledger"
	"github.com/puznanski/SIK-ticketserver/internal/logger"
	"github.com/puznanski/SIK-ticketserver/internal/ops"
	"github.com/puznanski/SIK-ticketserver/internal/server"
)

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.MustLoad()

	lgr := logger.NewLogger(cfg.LogDir)
	defer lgr.Close()

	lgr.Info("STARTUP", fmt.Sprintf("-f: %s", cfg.EventsFile))
	lgr.Info("STARTUP", fmt.Sprintf("-p: %d", cfg.Port))
	lgr.Info("STARTUP", fmt.Sprintf("-t: %d", cfg.Timeout))

	cat, err := catalogue.Load(cfg.EventsFile)
	if err != nil {
		lgr.Fatal("STARTUP", err.Error())
	}
	for _, event := range cat.Events() {
		lgr.Info("CATALOGUE", fmt.Sprintf("%d : %s, tickets: %d", event.ID, event.Description, event.Remaining))
	}

	var sink booking.Ledger
	if cfg.LedgerPath != "" {
		ledgerDB, err := ledger.Open(cfg.LedgerPath, lgr)
		if err != nil {
			lgr.Fatal("STARTUP", err.Error())
		}
		defer ledgerDB.Close()
		sink = ledgerDB
		lgr.Info("STARTUP", fmt.Sprintf("issuance ledger: %s", cfg.LedgerPath))
	}

	engine := booking.NewService(cat, uint64(cfg.Timeout), sink)

	sock, err := server.ListenUDP(cfg.Port)
	if err != nil {
		lgr.Fatal("STARTUP", err.Error())
	}
	defer sock.Close()
	lgr.Info("STARTUP", fmt.Sprintf("listening on udp port %d", cfg.Port))

	stats := server.NewStatsBoard()
	dispatcher := &server.Dispatcher{
		Conn:   sock,
		Engine: engine,
		Clock:  clock.Real{},
		Logger: lgr,
		Stats:  stats,
	}

	var opsServer *http.Server
	if cfg.OpsAddr != "" {
		handler := &ops.Handler{Stats: stats, Logger: lgr}
		opsServer = &http.Server{
			Addr:    cfg.OpsAddr,
			Handler: handler.Router(),
		}
		go func() {
			lgr.Info("OPS", fmt.Sprintf("ops surface on %s", cfg.OpsAddr))
			if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				lgr.Fatal("OPS", err.Error())
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- dispatcher.Run()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		lgr.Fatal("SERVER", err.Error())
	case <-stop:
	}

	if opsServer != nil {
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = opsServer.Shutdown(ctxShutdown)
	}
	lgr.Info("SERVER", "shutdown complete")
}
