package statushub

import (
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/edugrade/segma/internal/pkg/api"
)

// WsConn is interface for websocket handling in the status hub
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

// Hub keeps websocket subscriptions by storage key and fans status
// updates out to them while segmentation runs
type Hub struct {
	keyConnectionMap map[string]map[WsConn]struct{}
	connectionKeyMap map[WsConn]string
	mapLock          *sync.Mutex
	timeOut          time.Duration
}

// NewHub creates the subscription manager
func NewHub() *Hub {
	res := &Hub{}
	res.keyConnectionMap = make(map[string]map[WsConn]struct{})
	res.connectionKeyMap = make(map[WsConn]string)
	res.mapLock = &sync.Mutex{}
	res.timeOut = time.Minute * 30 // max time limit for one connection
	return res
}

// HandleConnection loops while the connection is active. Every text message
// received is treated as a storage key subscription, replacing the previous one.
func (h *Hub) HandleConnection(conn WsConn) error {
	defer h.deleteConnection(conn)
	defer conn.Close()
	readCh := make(chan string)
	go func() {
		defer close(readCh)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				goapp.Log.Debug().Err(err).Msg("socket read ended")
				return
			}
			msg := strings.TrimSpace(string(message))
			if msg != "" {
				readCh <- msg
			}
		}
	}()

	ta := time.After(h.timeOut)
loop:
	for {
		select {
		case <-ta:
			goapp.Log.Debug().Msg("conn timeouted")
			break loop
		case msg, ok := <-readCh:
			if !ok {
				break loop
			}
			h.saveConnection(conn, msg)
			ta = time.After(h.timeOut)
		}
	}
	return nil
}

// Notify sends a status update to every subscriber of the key
func (h *Hub) Notify(key string, data api.StatusData) {
	conns, found := h.getConnections(key)
	if !found {
		goapp.Log.Debug().Str("key", goapp.Sanitize(key)).Msg("no ws subscribers")
		return
	}
	for _, c := range conns {
		if err := c.WriteJSON(data); err != nil {
			goapp.Log.Error().Err(err).Msg("can't write to websocket")
		}
	}
}

func (h *Hub) deleteConnection(conn WsConn) {
	h.mapLock.Lock()
	defer h.mapLock.Unlock()
	h.deleteConnectionNoSync(conn)
}

func (h *Hub) deleteConnectionNoSync(conn WsConn) {
	key, found := h.connectionKeyMap[conn]
	if found {
		conns, found := h.keyConnectionMap[key]
		if found {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(h.keyConnectionMap, key)
			}
		}
	}
	delete(h.connectionKeyMap, conn)
}

func (h *Hub) saveConnection(conn WsConn, key string) {
	goapp.Log.Debug().Str("key", goapp.Sanitize(key)).Msg("ws subscribe")
	h.mapLock.Lock()
	defer h.mapLock.Unlock()
	h.deleteConnectionNoSync(conn)
	h.connectionKeyMap[conn] = key
	conns, found := h.keyConnectionMap[key]
	if !found {
		conns = map[WsConn]struct{}{}
		h.keyConnectionMap[key] = conns
	}
	conns[conn] = struct{}{}
}

func (h *Hub) getConnections(key string) ([]WsConn, bool) {
	h.mapLock.Lock()
	defer h.mapLock.Unlock()
	cm, found := h.keyConnectionMap[key]
	if !found {
		return nil, false
	}
	res := make([]WsConn, 0, len(cm))
	for c := range cm {
		res = append(res, c)
	}
	return res, true
}
