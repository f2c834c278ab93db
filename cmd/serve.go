package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geowerk/tilefetch/internal/model"
	"github.com/geowerk/tilefetch/internal/pipeline"
	"github.com/geowerk/tilefetch/internal/region"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server accepting fetch requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newMux(ctx, env.Pipeline, env.Regions),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type fetchRequest struct {
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	City        string `json:"city"`
	ZipCode     string `json:"zip_code"`
	RegionKey   string `json:"region_key"`
}

// newMux builds the HTTP routes. Fetches run asynchronously against the
// server's lifetime context so a slow download outlives the request.
func newMux(ctx context.Context, p *pipeline.Pipeline, regions region.Map) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/regions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		type regionInfo struct {
			Key  string `json:"key"`
			Name string `json:"name"`
			EPSG string `json:"epsg"`
		}
		out := make([]regionInfo, 0, len(regions))
		for _, key := range regions.Keys() {
			out = append(out, regionInfo{Key: key, Name: regions[key].Name, EPSG: regions[key].EPSG})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("/fetch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		var req fetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		addr := model.Address{
			Street:      req.Street,
			HouseNumber: req.HouseNumber,
			City:        req.City,
			ZipCode:     req.ZipCode,
			RegionKey:   req.RegionKey,
		}
		if err := addr.Validate(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		if _, err := regions.Lookup(addr.RegionKey); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "unknown region " + addr.RegionKey})
			return
		}

		go func() {
			report, err := p.Run(ctx, addr)
			if err != nil {
				zap.L().Error("fetch request failed",
					zap.String("address", addr.String()),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("fetch request complete",
				zap.String("address", addr.String()),
				zap.Int("tiles", report.Summary.Total),
				zap.Int("succeeded", report.Summary.Succeeded),
			)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "accepted",
			"address": addr.String(),
		})
	})

	return mux
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
