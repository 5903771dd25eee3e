package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/homewatch/internal/modules/library"
	"github.com/mikey-austin/homewatch/internal/modules/theater"
	"github.com/mikey-austin/homewatch/pkg/hw"
)

// Session is the control hub as seen by the API.
type Session interface {
	http.Handler
	CloseOnEnd() bool
	SleepAt() int64
}

// StatusStore reads and writes the persisted session document.
type StatusStore interface {
	Load() (hw.Status, error)
	Save(st hw.Status) error
}

// Deps wires the server. Theater, Session, Status and Close are nil in
// library mode, which only serves the catalogue.
type Deps struct {
	Log   *zap.Logger
	Index *library.Index
	// MediaRoot enables /media when set.
	MediaRoot string

	Theater *theater.Theater
	Session Session
	Status  StatusStore
	// Close ends the session; hooks selects whether post hooks run.
	Close func(reason string, hooks bool)
}

// Server is the HTTP surface of one instance.
type Server struct {
	deps Deps
	log  *zap.Logger
	mux  *http.ServeMux
}

// New registers every route for the configured mode.
func New(deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{deps: deps, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /alive", s.alive)
	s.mux.HandleFunc("GET /library/hierarchy.json", s.hierarchy)
	s.mux.HandleFunc("GET /library/{path...}", s.folderDoc)
	if deps.MediaRoot != "" {
		s.mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(deps.MediaRoot))))
	}
	if deps.Theater != nil {
		s.registerPlayer()
	}
	return s
}

func (s *Server) registerPlayer() {
	s.mux.HandleFunc("GET /api/load", s.load)
	s.mux.HandleFunc("GET /api/media", s.media)
	s.mux.HandleFunc("GET /api/folder", s.folder)
	s.mux.HandleFunc("GET /api/player", s.player)
	s.mux.HandleFunc("GET /api/queue", s.queue)
	s.mux.HandleFunc("GET /api/history", s.history)
	s.mux.HandleFunc("POST /api/history", s.setViewed)
	s.mux.HandleFunc("GET /api/status", s.readStatus)
	s.mux.HandleFunc("POST /api/status/export", s.exportStatus)
	s.mux.HandleFunc("POST /api/status/load", s.loadStatus)
	s.mux.HandleFunc("POST /api/close", s.close)
	s.mux.HandleFunc("POST /api/restart", s.restart)
	if s.deps.Session != nil {
		s.mux.Handle("GET /ws", s.deps.Session)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run serves on listen until ctx is done.
func (s *Server) Run(ctx context.Context, listen string) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("http listening", zap.String("addr", ln.Addr().String()))
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) alive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("YES"))
}

func (s *Server) hierarchy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Index.Hierarchy())
}

func (s *Server) folderDoc(w http.ResponseWriter, r *http.Request) {
	rel, ok := strings.CutSuffix(r.PathValue("path"), "index.json")
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	f, found := s.deps.Index.Folder(rel)
	if !found {
		writeError(w, http.StatusNotFound, library.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, library.NewFolderDoc(f))
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, err := theater.ParseTarget(q.Get("target"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req := theater.LoadRequest{Path: q.Get("path"), Target: target}
	if raw := q.Get("seek"); raw != "" {
		if req.Seek, err = strconv.ParseInt(raw, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("seek must be an integer"))
			return
		}
	}
	if req.Subset, err = parsePositions(q.Get("queue")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.deps.Theater.LoadAndPlay(req); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) media(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Theater.MediaView(r.URL.Query().Get("path"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) folder(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Theater.FolderView(r.URL.Query().Get("path"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type playerDoc struct {
	MediaPath      string  `json:"mediaPath"`
	State          *int    `json:"state"`
	Time           *int64  `json:"time"`
	Audio          *int    `json:"audio"`
	Subs           *int    `json:"subs"`
	Volume         int     `json:"volume"`
	SubtitlesDelay int64   `json:"subtitlesDelay"`
	Autoplay       bool    `json:"autoplay"`
	Shuffle        bool    `json:"shuffle"`
	CloseOnEnd     bool    `json:"closeOnEnd"`
	SleepAt        *int64  `json:"sleepAt"`
	AspectRatio    *string `json:"aspectRatio"`
}

func (s *Server) player(w http.ResponseWriter, _ *http.Request) {
	th := s.deps.Theater
	st := th.Status()
	doc := playerDoc{
		MediaPath:      th.MediaPath(),
		Time:           st.Player.Time,
		Audio:          st.Player.SelectedAudioSource,
		Subs:           st.Player.SelectedSubtitleSource,
		Volume:         st.Player.CurrentVolume,
		SubtitlesDelay: st.Player.Delay,
		Autoplay:       st.Autoplay,
		Shuffle:        st.Queue.Shuffle,
		AspectRatio:    st.Player.CurrentAspectRatio,
	}
	if state, ok := th.State(); ok {
		doc.State = hw.IntPtr(int(state))
	}
	if s.deps.Session != nil {
		doc.CloseOnEnd = s.deps.Session.CloseOnEnd()
		if at := s.deps.Session.SleepAt(); at > 0 {
			doc.SleepAt = &at
		}
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) queue(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Theater.Status().Queue)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeJSON(w, http.StatusOK, s.deps.Theater.History())
		return
	}
	offset, err := s.deps.Theater.MediaProgress(p)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": library.NormalizePath(p), "progress": offset})
}

func (s *Server) setViewed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("path") {
		writeError(w, http.StatusBadRequest, errors.New("path required"))
		return
	}
	if err := s.deps.Theater.SetViewed(q.Get("path"), q.Get("viewed") == "1"); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) readStatus(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Status == nil {
		writeError(w, http.StatusNotFound, errors.New("status persistence disabled"))
		return
	}
	st, err := s.deps.Status.Load()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) exportStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.deps.Theater.Status()
	if s.deps.Status != nil {
		if err := s.deps.Status.Save(st); err != nil {
			s.log.Warn("status export failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) loadStatus(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Status == nil {
		writeError(w, http.StatusNotFound, errors.New("status persistence disabled"))
		return
	}
	st, err := s.deps.Status.Load()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err := s.deps.Theater.Restore(st); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) close(w http.ResponseWriter, r *http.Request) {
	if s.deps.Close == nil {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	s.deps.Close(hw.ShutdownRequest, r.URL.Query().Get("hooks") == "1")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) restart(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Close == nil {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	s.deps.Close(hw.ShutdownRestart, false)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound), errors.Is(err, theater.ErrNoMedia):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, theater.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.log.Warn("api request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

// parsePositions reads a comma separated list of folder positions.
func parsePositions(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.New("queue must list integer positions")
		}
		out = append(out, n)
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
