// internal/api/api.go
// Relay HTTP surface: WebSocket rooms, the device trigger endpoints, result
// queries and health.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/erilali/reactionpad/internal/config"
	"github.com/erilali/reactionpad/internal/hub"
	"github.com/erilali/reactionpad/internal/logger"
	"github.com/erilali/reactionpad/internal/message"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go"
	"github.com/skip2/go-qrcode"
)

const (
	version           = "1.0.0"
	qrCodeSize        = 256
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// ConnectNATS connects to NATS and prepares the results stream. Failures are
// logged and yield nil values so the relay can run without persistence.
func ConnectNATS(natsURL string, serverLogger *logger.Logger) (*nats.Conn, nats.JetStreamContext) {
	serverLogger.Infof("Connecting to NATS at %s", natsURL)
	nc, err := nats.Connect(natsURL, nats.Name("reactionpad-relay"))
	if err != nil {
		serverLogger.Errorf("Error connecting to NATS: %v", err)
		serverLogger.Warn("Running without NATS connection. Result persistence will be disabled.")
		return nil, nil
	}
	serverLogger.Info("Successfully connected to NATS")

	js, err := nc.JetStream()
	if err != nil {
		serverLogger.Errorf("Error getting JetStream context: %v", err)
		serverLogger.Warn("Running without JetStream. Result persistence will be disabled.")
		return nc, nil
	}
	if err := hub.EnsureStream(js, serverLogger); err != nil {
		serverLogger.Errorf("Error preparing results stream: %v", err)
		serverLogger.Warn("Running without JetStream. Result persistence will be disabled.")
		return nc, nil
	}
	serverLogger.Info("Successfully connected to JetStream")
	return nc, js
}

// NewRouter builds the relay routes around a running hub.
func NewRouter(h *hub.Hub, cfg config.Relay, serverLogger *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws/{room}", func(w http.ResponseWriter, r *http.Request) {
		h.ServeWs(w, r, chi.URLParam(r, "room"))
	})

	r.Route("/r", func(r chi.Router) {
		r.Get("/time/{hash}", func(w http.ResponseWriter, r *http.Request) {
			hash := chi.URLParam(r, "hash")
			if hash == message.CommandLEDRight || hash == message.CommandLEDLeft {
				h.StartRound(cfg.DeviceRoom, hash)
			}
			h.SendToRoom(cfg.DeviceRoom, message.RoomMessage{Message: hash})
			apiResponse(w, http.StatusOK, "ok")
		})
		r.Get("/ip", func(w http.ResponseWriter, r *http.Request) {
			ip := r.FormValue("ip")
			serverLogger.Infof("Device reported ip %s", ip)
			apiResponse(w, http.StatusOK, ip)
		})
		r.Get("/qr/{room}", func(w http.ResponseWriter, r *http.Request) {
			target := fmt.Sprintf("ws://%s/ws/%s", r.Host, chi.URLParam(r, "room"))
			png, err := qrcode.Encode(target, qrcode.Medium, qrCodeSize)
			if err != nil {
				serverLogger.Errorf("QR encode %s: %v", target, err)
				http.Error(w, "failed to render QR code", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			w.Write(png)
		})
	})

	r.Get("/api/results/{room}", func(w http.ResponseWriter, r *http.Request) {
		if !h.Results.Enabled() {
			http.Error(w, "JetStream not available", http.StatusServiceUnavailable)
			return
		}
		room := chi.URLParam(r, "room")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		results, err := h.Results.List(room, limit)
		if err != nil {
			serverLogger.Errorf("Error listing results for %s: %v", room, err)
			http.Error(w, "Error retrieving results", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{
			"room":      room,
			"results":   results,
			"count":     len(results),
			"timestamp": time.Now(),
		})
	})

	r.Get("/api/rooms", func(w http.ResponseWriter, r *http.Request) {
		rooms := make(map[string]interface{})
		for room, n := range h.Rooms() {
			entry := map[string]interface{}{"clients": n}
			if round, ok := h.ActiveRound(room); ok {
				entry["round"] = round
			}
			rooms[room] = entry
		}
		writeJSON(w, rooms)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, health(h))
	})

	r.Handle("/st/*", http.StripPrefix("/st/", http.FileServer(http.Dir(cfg.StaticDir))))
	r.Get("/", pageHandler(cfg.TemplateDir, "index", serverLogger))
	r.Get("/test", pageHandler(cfg.TemplateDir, "test", serverLogger))
	r.Get("/old", pageHandler(cfg.TemplateDir, "index_old", serverLogger))
	return r
}

func health(h *hub.Hub) map[string]interface{} {
	natsStatus := "disconnected"
	if h.Results != nil && h.Results.NatsConn != nil && h.Results.NatsConn.Status() == nats.CONNECTED {
		natsStatus = "connected"
	}
	out := map[string]interface{}{
		"status":  "ok",
		"nats":    natsStatus,
		"version": version,
		"uptime":  time.Since(h.StartTime).Round(time.Second).String(),
		"rooms":   h.Rooms(),
	}
	if h.Results.Enabled() {
		info, err := h.Results.Js.StreamInfo(hub.ResultsStream)
		if err == nil {
			out["jetstream"] = map[string]interface{}{
				"messages":  info.State.Msgs,
				"bytes":     info.State.Bytes,
				"subjects":  info.Config.Subjects,
				"retention": fmt.Sprintf("%v", info.Config.MaxAge),
			}
		} else {
			out["jetstream"] = map[string]interface{}{"error": err.Error()}
		}
	}
	return out
}

func pageHandler(dir, name string, serverLogger *logger.Logger) http.HandlerFunc {
	path := filepath.Join(dir, name+".html")
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, err := template.ParseFiles(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.NotFound(w, r)
				return
			}
			serverLogger.Errorf("Template %s: %v", path, err)
			http.Error(w, "500", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, nil); err != nil {
			serverLogger.Errorf("Template %s: %v", path, err)
		}
	}
}

// apiResponse writes the {"result","message"} envelope used by the /r/ routes.
func apiResponse(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(struct {
		Result  bool   `json:"result"`
		Message string `json:"message"`
	}{
		Result:  statusCode == http.StatusOK,
		Message: msg,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// StartServer runs the relay until ctx is done.
func StartServer(ctx context.Context, cfg config.Relay, serverLogger *logger.Logger) error {
	nc, js := ConnectNATS(cfg.NatsURL, serverLogger)
	if nc != nil {
		defer nc.Drain()
	}

	h := hub.NewHub(hub.NewResults(nc, js, logger.NewLogger("results")), logger.NewLogger("hub"))
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go h.Run(hubCtx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(h, cfg, serverLogger),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		serverLogger.Infof("Listening on port: %s", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	serverLogger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
