package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/overlap/internal/api"
	"github.com/banshee-data/overlap/internal/camera"
	"github.com/banshee-data/overlap/internal/dataset"
	"github.com/banshee-data/overlap/internal/query"
	"github.com/banshee-data/overlap/internal/storage/sqlite"
)

func handleServe(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	var common commonFlags
	common.register(flags)
	listen := flags.String("listen", ":8080", "Listen address")
	dataDir := flags.String("data", "", "Dataset root, used with -seq for image sizes in debug pages")
	seq := flags.String("seq", "", "Sequence whose calibration supplies image sizes")
	readOnly := flags.Bool("read-only", false, "Do not record queries")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *listen == "" {
		return fmt.Errorf("listen address is required")
	}

	common.setupLogging(os.Stderr)
	tuning, err := common.tuning()
	if err != nil {
		return err
	}

	var rig *camera.Rig
	if *dataDir != "" && *seq != "" {
		s, err := dataset.LoadSequence(os.DirFS(*dataDir), *seq)
		if err != nil {
			return err
		}
		if rig, err = s.Rig(tuning.GetCameras()); err != nil {
			return err
		}
	}

	db, err := sqlite.OpenDB(common.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := api.NewServer(sqlite.NewStore(db), query.NewEngine(query.ParamsFromTuning(tuning)), rig)
	srv.RecordQueries = !*readOnly
	mux := srv.ServeMux()
	if err := sqlite.AttachAdminRoutes(mux, db); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              *listen,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("overlap server listening on %s", *listen)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	log.Printf("overlap server stopped")
	return nil
}
