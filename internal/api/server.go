// Package api exposes the running stage over HTTP: filter parameters,
// color balance channels, negotiated formats and live statistics.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/vppstage/internal/config"
	"github.com/bryanchriswhite/vppstage/internal/engine"
	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/logger"
	"github.com/bryanchriswhite/vppstage/internal/postproc"
	"github.com/bryanchriswhite/vppstage/internal/preview"
)

// statsInterval is the push period for the statistics stream.
const statsInterval = time.Second

// Server represents the HTTP API server.
type Server struct {
	router    *mux.Router
	stage     *postproc.Stage
	configMgr *config.Manager
	preview   *preview.Sink
	upgrader  websocket.Upgrader
	log       *zerolog.Logger
}

// NewServer creates a new API server around a stage. preview may be
// nil when no preview sink is attached.
func NewServer(stage *postproc.Stage, configMgr *config.Manager, previewSink *preview.Sink) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		stage:     stage,
		configMgr: configMgr,
		preview:   previewSink,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		log: logger.WithComponent("api"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Filter configuration
	api.HandleFunc("/filters", s.handleGetFilters).Methods("GET")
	api.HandleFunc("/filters", s.handleUpdateFilters).Methods("PUT")

	// Color balance
	api.HandleFunc("/channels", s.handleGetChannels).Methods("GET")
	api.HandleFunc("/channels/{name}", s.handleGetChannel).Methods("GET")
	api.HandleFunc("/channels/{name}", s.handleSetChannel).Methods("PUT")

	// Negotiated state and statistics
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/stats/stream", s.handleStatsStream)

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Live MJPEG preview of the processed output
	if s.preview != nil {
		s.router.HandleFunc("/preview", s.preview.Handler())
	}

	s.router.PathPrefix("/").HandlerFunc(s.handleIndex)
}

// Start starts the HTTP server.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.log.Info().Str("addr", addr).Msg("starting API server")
	return http.ListenAndServe(addr, s.enableCORS(s.router))
}

// enableCORS adds CORS headers.
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// HTTP Handlers

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.stage.Params())
}

// filterUpdate carries a partial filter update: only the fields present
// in the request body are applied.
type filterUpdate struct {
	DeinterlaceMode   *string             `json:"deinterlace_mode"`
	DeinterlaceMethod *string             `json:"deinterlace_method"`
	Denoise           *float64            `json:"denoise"`
	Sharpen           *float64            `json:"sharpen"`
	Hue               *float64            `json:"hue"`
	Saturation        *float64            `json:"saturation"`
	Brightness        *float64            `json:"brightness"`
	Contrast          *float64            `json:"contrast"`
	ScaleMethod       *string             `json:"scale_method"`
	VideoDirection    *string             `json:"video_direction"`
	Crop              *format.CropMargins `json:"crop"`
	HDRToneMap        *string             `json:"hdr_tone_map"`
	SkinToneLevel     *uint               `json:"skin_tone_level"`
}

func (s *Server) handleUpdateFilters(w http.ResponseWriter, r *http.Request) {
	var req filterUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.DeinterlaceMode != nil {
		mode, ok := engine.ParseDeintMode(*req.DeinterlaceMode)
		if !ok {
			http.Error(w, "unknown deinterlace mode", http.StatusBadRequest)
			return
		}
		s.stage.SetDeinterlaceMode(mode)
	}
	if req.DeinterlaceMethod != nil {
		method, ok := engine.ParseDeintMethod(*req.DeinterlaceMethod)
		if !ok {
			http.Error(w, "unknown deinterlace method", http.StatusBadRequest)
			return
		}
		s.stage.SetDeinterlaceMethod(method)
	}
	if req.Denoise != nil {
		s.stage.SetDenoise(*req.Denoise)
	}
	if req.Sharpen != nil {
		s.stage.SetSharpen(*req.Sharpen)
	}
	if req.Hue != nil {
		s.stage.SetHue(*req.Hue)
	}
	if req.Saturation != nil {
		s.stage.SetSaturation(*req.Saturation)
	}
	if req.Brightness != nil {
		s.stage.SetBrightness(*req.Brightness)
	}
	if req.Contrast != nil {
		s.stage.SetContrast(*req.Contrast)
	}
	if req.ScaleMethod != nil {
		method, ok := engine.ParseScaleMethod(*req.ScaleMethod)
		if !ok {
			http.Error(w, "unknown scale method", http.StatusBadRequest)
			return
		}
		s.stage.SetScaleMethod(method)
	}
	if req.VideoDirection != nil {
		dir, ok := format.ParseOrientation(*req.VideoDirection)
		if !ok {
			http.Error(w, "unknown video direction", http.StatusBadRequest)
			return
		}
		s.stage.SetVideoDirection(dir)
	}
	if req.Crop != nil {
		s.stage.SetCropMargins(*req.Crop)
	}
	if req.HDRToneMap != nil {
		mode, ok := engine.ParseHDRToneMapMode(*req.HDRToneMap)
		if !ok {
			http.Error(w, "unknown HDR tone map mode", http.StatusBadRequest)
			return
		}
		s.stage.SetHDRToneMap(mode)
	}
	if req.SkinToneLevel != nil {
		s.stage.SetSkinToneLevel(*req.SkinToneLevel)
	}

	writeJSON(w, s.stage.Params())
}

func (s *Server) handleGetChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.stage.ColorChannels())
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	value, err := s.stage.ColorChannelValue(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{"name": name, "value": value})
}

func (s *Server) handleSetChannel(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req struct {
		Value *int `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		http.Error(w, "value is required", http.StatusBadRequest)
		return
	}

	if err := s.stage.SetColorChannel(name, *req.Value); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	value, _ := s.stage.ColorChannelValue(name)
	writeJSON(w, map[string]interface{}{"name": name, "value": value})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"sink":        s.stage.SinkFormat(),
		"src":         s.stage.SrcFormat(),
		"passthrough": s.stage.Passthrough(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.stage.Stats())
}

func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	if err := conn.WriteJSON(s.stage.Stats()); err != nil {
		return
	}
	for range ticker.C {
		if err := conn.WriteJSON(s.stage.Stats()); err != nil {
			return
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.configMgr.Get()
	writeJSON(w, cfg)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "vppstage API")
		fmt.Fprintln(w, "  GET /api/health")
		fmt.Fprintln(w, "  GET /api/filters")
		fmt.Fprintln(w, "  GET /api/channels")
		fmt.Fprintln(w, "  GET /api/status")
		fmt.Fprintln(w, "  GET /api/stats")
		return
	}
	if !strings.HasPrefix(r.URL.Path, "/api") {
		http.NotFound(w, r)
	}
}
