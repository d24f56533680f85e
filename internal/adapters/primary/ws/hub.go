package ws

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jupiterclapton/cenackle-feed/internal/core/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Subscriber est le Change Notifier local.
type Subscriber interface {
	Subscribe() *services.Observer
}

// Hub expose le flux de LifecycleEvent sur /ws : une connexion = un observer.
type Hub struct {
	notifier Subscriber
	upgrader websocket.Upgrader

	done      chan struct{}
	closeOnce sync.Once
	conns     sync.WaitGroup
}

// NewHub filtre l'origine des upgrades sur allowedOrigins (vide ou "*" : toutes).
func NewHub(notifier Subscriber, allowedOrigins []string) *Hub {
	return &Hub{
		notifier: notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		done: make(chan struct{}),
	}
}

// originChecker remplace CORS, qui ne s'applique pas aux upgrades websocket.
// Une requête sans header Origin (client hors navigateur) est acceptée.
func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return set[strings.ToLower(strings.TrimRight(origin, "/"))]
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade a déjà écrit la réponse d'erreur
		slog.Debug("Websocket upgrade failed", "error", err)
		return
	}

	h.conns.Add(1)
	defer h.conns.Done()

	obs := h.notifier.Subscribe()
	defer obs.Close()

	slog.Debug("🔌 Websocket client connected", "remote", r.RemoteAddr)
	h.serve(conn, obs)
	slog.Debug("Websocket client disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) serve(conn *websocket.Conn, obs *services.Observer) {
	defer conn.Close()

	// Lecture : on ignore les messages, on détecte la fermeture et les pongs.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-obs.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				slog.Debug("Websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-h.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

// Close ferme toutes les connexions et attend leur fin.
// http.Server.Shutdown ne ferme pas les connexions détournées (hijacked).
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	h.conns.Wait()
}
