package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Shimi9999/bmschart"
	"github.com/Shimi9999/bmschart/library"
	"github.com/bep/debounce"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	addr        string
	rescanDelay time.Duration
)

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&rescanDelay, "rescan-delay", 2*time.Second, "POST /scan requests within this window start a single scan")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve <root>",
	Short: "Serves the library of a folder over HTTP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := decodeOptions()
		if err != nil {
			return err
		}
		store, root, err := openStore(args[0])
		if err != nil {
			return err
		}
		scanner := library.NewScanner(store, scanConfig())
		if len(store.Library().Songs) == 0 {
			scanner.Start(context.Background(), root)
		}

		s := newServer(root, store, scanner, opts, rescanDelay)
		logger.Info("serving library", zap.String("root", root), zap.String("addr", addr))
		return http.ListenAndServe(addr, s.routes())
	},
}

type server struct {
	root    string
	store   *library.Store
	scanner *library.Scanner
	opts    bmschart.DecodeOptions
	rescan  func(f func())
	logger  *zap.Logger
}

func newServer(root string, store *library.Store, scanner *library.Scanner, opts bmschart.DecodeOptions, delay time.Duration) *server {
	return &server{
		root:    root,
		store:   store,
		scanner: scanner,
		opts:    opts,
		rescan:  debounce.New(delay),
		logger:  logger,
	}
}

func (s *server) routes() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/songs", s.handleSongs).Methods("GET")
	router.HandleFunc("/charts/{md5}", s.handleChart).Methods("GET")
	router.HandleFunc("/charts/{md5}/chart", s.handleDecodeChart).Methods("GET")
	router.HandleFunc("/scan", s.handleScanStatus).Methods("GET")
	router.HandleFunc("/scan", s.handleStartScan).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(router)
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response", zap.Int("status", status), zap.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *server) handleSongs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Songs(r.URL.Query().Get("q")))
}

func (s *server) handleChart(w http.ResponseWriter, r *http.Request) {
	chart, ok := s.store.GetByHash(mux.Vars(r)["md5"])
	if !ok {
		s.writeError(w, http.StatusNotFound, "chart not found")
		return
	}
	s.writeJSON(w, http.StatusOK, chart)
}

func (s *server) handleDecodeChart(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.store.GetByHash(mux.Vars(r)["md5"])
	if !ok {
		s.writeError(w, http.StatusNotFound, "chart not found")
		return
	}
	chart, err := bmschart.LoadBms(entry.Path(), s.opts)
	if err != nil {
		s.logger.Warn("decode chart", zap.String("path", entry.Path()), zap.Error(err))
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, chart)
}

type scanStatus struct {
	State    string  `json:"state"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	ScanID   string  `json:"scanId,omitempty"`
	Songs    int     `json:"songs"`
	Charts   int     `json:"charts"`
}

func (s *server) status() scanStatus {
	p := s.scanner.Progress()
	lib := s.store.Library()
	return scanStatus{
		State:    s.scanner.State().String(),
		Status:   p.Status,
		Progress: p.Fraction,
		ScanID:   lib.ScanID,
		Songs:    len(lib.Songs),
		Charts:   lib.TotalCharts(),
	}
}

func (s *server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.status())
}

func (s *server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	s.rescan(func() {
		res := <-s.scanner.Start(context.Background(), s.root)
		if res.Err != nil {
			s.logger.Error("rescan",
				zap.String("scan", res.ID.String()),
				zap.Stringer("outcome", res.Outcome),
				zap.Error(res.Err))
		}
	})
	s.writeJSON(w, http.StatusAccepted, s.status())
}
