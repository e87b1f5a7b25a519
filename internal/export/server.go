package export

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server hosts exported cards over HTTP so that a phone can open them from
// the QR code. It is also a Sharer: sharing saves the card into the hosted
// directory and returns its public URL.
type Server struct {
	Dir     string
	BaseURL string
	log     *zap.Logger
}

func NewServer(dir, baseURL string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Dir: dir, BaseURL: baseURL, log: logger.Named("share")}
}

func (s *Server) Method() string { return "server" }

func (s *Server) CanShare() bool { return s.BaseURL != "" }

func (s *Server) Share(_ context.Context, card Card) (string, error) {
	path, err := writeCard(s.Dir, card)
	if err != nil {
		return "", err
	}
	return url.JoinPath(s.BaseURL, "cards", filepath.Base(path))
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods("GET")
	r.HandleFunc("/cards", s.listCards).Methods("GET")
	r.HandleFunc("/cards/{name}.png", s.serveCard).Methods("GET", "HEAD")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
	})
	return c.Handler(r)
}

func (s *Server) listCards(w http.ResponseWriter, _ *http.Request) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		http.Error(w, "cannot list cards", http.StatusInternalServerError)
		return
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, strings.TrimSuffix(e.Name(), ".png"))
		}
	}
	sort.Strings(names)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string][]string{"cards": names})
}

func (s *Server) serveCard(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if SafeName(name) != name {
		http.Error(w, "bad card name", http.StatusBadRequest)
		return
	}
	path := filepath.Join(s.Dir, name+".png")
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "card not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		http.Error(w, "card not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("share server listening", zap.String("addr", addr), zap.String("dir", s.Dir))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
