package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

var uuidPathRe = regexp.MustCompile(`^/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Debug("write response")
	}
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, clientDir string) *http.ServeMux {
	mux := http.NewServeMux()

	// Serve static files with no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(clientDir))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		// SPA: serve index.html for root and session paths
		if r.URL.Path == "/" || uuidPathRe.MatchString(r.URL.Path) {
			http.ServeFile(w, r, filepath.Join(clientDir, "index.html"))
			return
		}
		// FileServer drops Cache-Control on its own error pages
		if _, err := os.Stat(filepath.Join(clientDir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))); err != nil {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	}))

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).WithField("addr", ip).Warn("upgrade error")
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{
			"sessions": hub.sessions.Count(),
			"clients":  hub.ClientCount(),
		})
	})

	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		sid := r.URL.Query().Get("sid")
		if hub.sessions.GetSession(sid) == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		png, err := qrcode.Encode(joinURL(hub, r, sid), qrcode.Medium, qrSize)
		if err != nil {
			logger.WithError(err).Error("qr encode failed")
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	mux.HandleFunc("/api/variants", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VariantNames())
	})

	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.sessions.ListSessions())
	})

	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		records, ok := queryHistory(hub, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, records)
	})

	mux.HandleFunc("/api/history.csv", func(w http.ResponseWriter, r *http.Request) {
		records, ok := queryHistory(hub, w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="history.csv"`)
		if err := WriteHistoryCSV(w, records); err != nil {
			logger.WithError(err).Error("history csv failed")
		}
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"sessions": hub.sessions.Count(),
			"clients":  hub.ClientCount(),
			"clears":   []ClearStats{},
		}
		if hub.db != nil {
			times, err := hub.db.ClearTimes()
			if err != nil {
				logger.WithError(err).Error("stats query failed")
				http.Error(w, "stats unavailable", http.StatusInternalServerError)
				return
			}
			resp["clears"] = SummarizeClears(times)
		}
		if hub.analytics != nil {
			if counts, err := hub.analytics.EventCounts(7); err == nil {
				resp["events"] = counts
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return mux
}

// joinURL builds the link a phone or second screen opens to watch sid
func joinURL(hub *Hub, r *http.Request, sid string) string {
	base := strings.TrimRight(hub.config.Get().Server.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/" + sid
}

func queryHistory(hub *Hub, w http.ResponseWriter, r *http.Request) ([]EncounterRecord, bool) {
	if hub.db == nil {
		return []EncounterRecord{}, true
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return nil, false
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}
	records, err := hub.db.RecentEncounters(r.URL.Query().Get("variant"), limit)
	if err != nil {
		logger.WithError(err).Error("history query failed")
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return nil, false
	}
	if records == nil {
		records = []EncounterRecord{}
	}
	return records, true
}
