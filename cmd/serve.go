package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SurEtBon/backend/internal/db"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the restaurant query API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: withCORS(newServeMux(pool), cfg.Server.FrontendURL),
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

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// boundingBox is the /get_restaurants request body. Field names match the
// frontend contract.
type boundingBox struct {
	LatitudeMinimum  float64 `json:"latitude_minimum"`
	LongitudeMinimum float64 `json:"longitude_minimum"`
	LatitudeMaximum  float64 `json:"latitude_maximum"`
	LongitudeMaximum float64 `json:"longitude_maximum"`
}

func (b boundingBox) valid() bool {
	return b.LatitudeMinimum <= b.LatitudeMaximum &&
		b.LongitudeMinimum <= b.LongitudeMaximum
}

type inspection struct {
	Etablissement  string `json:"etablissement"`
	DateInspection string `json:"date_inspection"`
	SyntheseEval   string `json:"synthese_eval"`
	CodeSynthese   int16  `json:"code_synthese_eval"`
}

type restaurant struct {
	Name       string      `json:"name"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	GeoHash    string      `json:"geohash"`
	Inspection *inspection `json:"inspection,omitempty"`
}

// restaurantQuery joins the OSM table with inspections through the derived
// matching columns (same precision-8 geohash cell, same normalized name).
const restaurantQuery = `
SELECT o.name, o.latitude, o.longitude, o.geohash,
       a.etablissement, a.date_inspection, a.synthese_eval, a.code_synthese_eval
FROM bronze.osm_france_food_service o
LEFT JOIN bronze.export_alimconfiance a
  ON a.geohash = o.geohash AND a.name_normalized = o.name_normalized
WHERE o.latitude BETWEEN $1 AND $2
  AND o.longitude BETWEEN $3 AND $4
  AND o.name IS NOT NULL
ORDER BY o.name
LIMIT 500`

// newServeMux builds the API routes over the given pool.
func newServeMux(pool db.Pool) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /get_restaurants", func(w http.ResponseWriter, r *http.Request) {
		var box boundingBox
		if err := json.NewDecoder(r.Body).Decode(&box); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if !box.valid() {
			http.Error(w, `{"error":"invalid bounding box"}`, http.StatusBadRequest)
			return
		}

		rows, err := pool.Query(r.Context(), restaurantQuery,
			box.LatitudeMinimum, box.LatitudeMaximum,
			box.LongitudeMinimum, box.LongitudeMaximum,
		)
		if err != nil {
			zap.L().Error("restaurant query failed", zap.Error(err))
			http.Error(w, `{"error":"query failed"}`, http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		restaurants := make([]restaurant, 0)
		for rows.Next() {
			var (
				rest          restaurant
				etablissement *string
				dateInsp      *time.Time
				synthese      *string
				code          *int16
			)
			if err := rows.Scan(&rest.Name, &rest.Latitude, &rest.Longitude, &rest.GeoHash,
				&etablissement, &dateInsp, &synthese, &code); err != nil {
				zap.L().Error("restaurant scan failed", zap.Error(err))
				http.Error(w, `{"error":"query failed"}`, http.StatusInternalServerError)
				return
			}
			if etablissement != nil {
				insp := &inspection{Etablissement: *etablissement}
				if dateInsp != nil {
					insp.DateInspection = dateInsp.Format("2006-01-02")
				}
				if synthese != nil {
					insp.SyntheseEval = *synthese
				}
				if code != nil {
					insp.CodeSynthese = *code
				}
				rest.Inspection = insp
			}
			restaurants = append(restaurants, rest)
		}
		if err := rows.Err(); err != nil {
			zap.L().Error("restaurant query failed", zap.Error(err))
			http.Error(w, `{"error":"query failed"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]restaurant{"restaurants": restaurants})
	})

	return mux
}

// withCORS restricts cross-origin access to the configured frontend origin.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
