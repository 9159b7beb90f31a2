package sqlite

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts the debug pages for db under /debug/ on mux:
// a tailsql console and an on-demand backup download.
func AttachAdminRoutes(mux *http.ServeMux, db *sql.DB) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://overlap.db", db, &tailsql.DBOptions{
		Label: "Overlap DB",
	})

	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	debug.Handle("backup", "Create and download a backup of the database now", backupHandler(db))
	return nil
}

// backupHandler streams a gzipped VACUUM INTO snapshot of db.
func backupHandler(db *sql.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dir, err := os.MkdirTemp("", "overlap-backup-")
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup dir: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			if err := os.RemoveAll(dir); err != nil {
				log.Printf("Failed to remove backup dir: %v", err)
			}
		}()

		name := fmt.Sprintf("overlap-backup-%d.db", time.Now().Unix())
		backupPath := filepath.Join(dir, name)
		if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		f, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
		w.Header().Set("Content-Type", "application/gzip")
		gz := gzip.NewWriter(w)
		if _, err := io.Copy(gz, f); err != nil {
			log.Printf("backup stream interrupted: %v", err)
		}
		if err := gz.Close(); err != nil {
			log.Printf("backup gzip close: %v", err)
		}
	})
}
