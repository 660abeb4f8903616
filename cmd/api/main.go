package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"facturante.ar/internal/arca"
	"facturante.ar/internal/facturacion"
	"facturante.ar/internal/httpapi"
	"facturante.ar/internal/obs"
	"facturante.ar/internal/store/pg"
)

var version = "0.3.0"

func main() {
	obs.Init()

	ambiente, err := arca.ParseAmbiente(os.Getenv("FACT_ARCA_AMBIENTE"))
	if err != nil {
		log.Fatalf("ambiente: %v", err)
	}

	// storage: PostgreSQL when a DSN is configured, in-memory otherwise
	var (
		store facturacion.Store
		db    *sql.DB
	)
	if dsn := os.Getenv("FACT_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store = pgStore
		db = pgStore.DB()
	} else {
		log.Print("FACT_PG_DSN not set, using in-memory storage")
		store = facturacion.NewInMemory()
	}

	certDir := os.Getenv("FACT_CERT_DIR")
	if certDir == "" {
		certDir = "certs"
	}
	certs := facturacion.DirCerts{Dir: certDir}

	tickets := arca.NewWSAAClient(ambiente, arca.NewTicketCache())
	emisor := facturacion.NewService(store, tickets, certs)
	consultas := facturacion.NewConsultas(store, tickets, certs)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, store, emisor, consultas)

	addr := os.Getenv("FACT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting facturante-api %s on %s (ambiente %s)", version, srv.Addr, ambiente)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
