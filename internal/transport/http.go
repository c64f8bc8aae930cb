package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"edlengine/internal/edl"
	"edlengine/internal/enginerr"
	"edlengine/internal/engine"
	"edlengine/internal/logger"
	"edlengine/internal/render"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server wires the engine front-end onto an HTTP+WebSocket router.
type Server struct {
	engine *engine.Engine
	router *mux.Router
}

func NewServer(eng *engine.Engine) *Server {
	s := &Server{engine: eng, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return loggingMiddleware(s.router) }

func (s *Server) routes() {
	s.router.HandleFunc("/v1/ping", s.handlePing).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/load", s.handleLoadFile).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/edl", s.handleUpdateEdl).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/edl/{edl_id}/render", s.handleRenderWindow)
	s.router.HandleFunc("/v1/subscribe", s.handleSubscribe)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request handled",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("duration", time.Since(started).String()))
	})
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLoadFile(w http.ResponseWriter, r *http.Request) {
	var req loadFileRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, enginerr.Invalid("malformed request body"))
		return
	}

	info, err := s.engine.LoadFile(req.FilePath)
	if err != nil {
		writeJSON(w, http.StatusOK, loadFileResponseDTO{Success: false, Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, loadFileResponseDTO{
		Success: true,
		Message: "ok",
		Info: &fileInfoDTO{
			Path:            info.Path,
			SampleRate:      info.SampleRate,
			NumChannels:     info.NumChannels,
			DurationSeconds: info.DurationSeconds,
			FileSizeBytes:   info.FileSizeBytes,
		},
	})
}

func (s *Server) handleUpdateEdl(w http.ResponseWriter, r *http.Request) {
	var req updateEdlRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, enginerr.Invalid("malformed request body"))
		return
	}

	parsed, err := edl.ParseEdl(req.Edl)
	if err != nil {
		writeError(w, enginerr.Invalid("malformed edl: "+err.Error()))
		return
	}

	result, err := s.engine.UpdateEdl(parsed, req.Replace)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUpdateEdlResponse(result))
}

// handleRenderWindow upgrades to a WebSocket and streams newline-framed
// JSON EngineEvent messages for one RenderEdlWindow call.
func (s *Server) handleRenderWindow(w http.ResponseWriter, r *http.Request) {
	edlID := mux.Vars(r)["edl_id"]

	var req renderWindowRequestDTO
	if raw := r.URL.Query().Get("request"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &req)
	}
	req.EdlID = edlID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.Err(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go watchForClose(conn, cancel)

	events := s.engine.RenderEdlWindow(ctx, toRenderRequest(req))
	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

func toRenderRequest(dto renderWindowRequestDTO) engine.RenderEdlWindowRequest {
	return engine.RenderEdlWindowRequest{
		EdlID:    dto.EdlID,
		Range:    render.Range{Start: dto.Range.StartSamples, Duration: dto.Range.DurationSamples},
		OutPath:  dto.OutPath,
		BitDepth: dto.BitDepth,
	}
}

// handleSubscribe upgrades to a WebSocket and streams the subscriber's
// event feed until the client disconnects.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.Err(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go watchForClose(conn, cancel)

	_, events := s.engine.Subscribe(ctx, session)
	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// watchForClose blocks reading control frames until the client closes the
// connection or sends an error, then cancels ctx so the producing
// goroutine (render loop or subscribe loop) unwinds.
func watchForClose(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch enginerr.KindOf(err) {
	case enginerr.InvalidArgument:
		status = http.StatusBadRequest
	case enginerr.NotFound:
		status = http.StatusNotFound
	case enginerr.Cancelled:
		status = 499
	case enginerr.Io, enginerr.Internal:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorResponseDTO{ErrorCode: string(enginerr.KindOf(err)), ErrorMessage: err.Error()})
}
