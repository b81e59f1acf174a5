package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/banshee-data/rinkspeed/internal/api"
	"github.com/banshee-data/rinkspeed/internal/db"
	"github.com/banshee-data/rinkspeed/internal/monitoring"
)

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", ":8080", "Listen address")
	dbPath := fs.String("db", DefaultDBFile, "Path to the sqlite database")
	outputDir := fs.String("output-dir", "", "Directory served under /files/")
	backupDir := fs.String("backup-dir", os.TempDir(), "Scratch directory for database backups")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	if *listen == "" {
		return fmt.Errorf("listen address is required")
	}
	monitoring.SetDebug(*debug)

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	mux := api.NewServer(database, *outputDir).ServeMux()
	if err := database.AttachAdminRoutes(mux, *backupDir); err != nil {
		return err
	}

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
	return nil
}
