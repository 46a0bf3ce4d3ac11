package dev

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ReloadMessageType represents the type of reload message.
type ReloadMessageType string

const (
	// ReloadTypeFull tells the browser to reload the page.
	ReloadTypeFull ReloadMessageType = "reload"
	// ReloadTypeProblems carries the diagnostics of a failed compilation.
	ReloadTypeProblems ReloadMessageType = "problems"
)

// ReloadPath is where browsers connect for reload messages.
const ReloadPath = "/_sitepack/reload"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// sendBuffer is how many messages a slow browser may lag behind
	// before it is dropped.
	sendBuffer = 8
)

// ReloadMessage is sent to browsers via WebSocket.
type ReloadMessage struct {
	Type        ReloadMessageType `json:"type"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
}

type reloadClient struct {
	conn *websocket.Conn
	send chan []byte
}

// ReloadServer fans reload and problem messages out to connected browsers.
// The problems of the latest failed compilation are kept and replayed to
// browsers that connect before the next successful one.
type ReloadServer struct {
	mu       sync.Mutex
	clients  map[*reloadClient]struct{}
	problems []byte
	upgrader websocket.Upgrader
}

// NewReloadServer creates a new reload server.
func NewReloadServer() *ReloadServer {
	return &ReloadServer{
		clients: make(map[*reloadClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dev server only listens for local development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket upgrades the request and serves the connection until the
// browser goes away.
func (r *ReloadServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	c := &reloadClient{conn: conn, send: make(chan []byte, sendBuffer)}
	r.mu.Lock()
	r.clients[c] = struct{}{}
	if r.problems != nil {
		c.send <- r.problems
	}
	r.mu.Unlock()

	go c.writeLoop()

	// Browsers never send anything; reading only detects the close and
	// handles pongs.
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	r.drop(c)
}

// writeLoop owns every write to the connection.
func (c *reloadClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drop unregisters c and stops its writer. Safe to call more than once.
func (r *ReloadServer) drop(c *reloadClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(c)
}

func (r *ReloadServer) dropLocked(c *reloadClient) {
	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	close(c.send)
}

// NotifyReload tells every browser to reload and forgets pending problems.
func (r *ReloadServer) NotifyReload() {
	data, err := json.Marshal(ReloadMessage{Type: ReloadTypeFull})
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.problems = nil
	r.broadcastLocked(data)
}

// NotifyProblems shows diags in every browser's overlay, including browsers
// that connect later.
func (r *ReloadServer) NotifyProblems(diags []Diagnostic) {
	data, err := json.Marshal(ReloadMessage{Type: ReloadTypeProblems, Diagnostics: diags})
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.problems = data
	r.broadcastLocked(data)
}

// broadcastLocked queues data for every client without blocking. A client
// whose buffer is full is dropped; its page reconnects on its own.
func (r *ReloadServer) broadcastLocked(data []byte) {
	for c := range r.clients {
		select {
		case c.send <- data:
		default:
			r.dropLocked(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (r *ReloadServer) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close disconnects every client.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		r.dropLocked(c)
	}
	r.problems = nil
}

// DevClientScript is injected before </body> of every page served in hot
// mode.
const DevClientScript = `
<script>
(function() {
    'use strict';

    var OVERLAY_ID = 'sitepack-error-overlay';
    var delay = 1000;

    function connect() {
        var scheme = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(scheme + '//' + location.host + '/_sitepack/reload');

        ws.onopen = function() {
            delay = 1000;
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }
            if (msg.type === 'reload') {
                location.reload();
            } else if (msg.type === 'problems') {
                render(msg.diagnostics || []);
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                delay = Math.min(delay * 2, 30000);
                connect();
            }, delay);
        };
    }

    function el(tag, css, text) {
        var n = document.createElement(tag);
        if (css) n.style.cssText = css;
        if (text) n.textContent = text;
        return n;
    }

    function where(d) {
        if (!d.file) return '';
        return d.file + ':' + d.line + ':' + (d.column + 1);
    }

    function frame(d) {
        var gutter = String(d.line) + ' | ';
        var pad = new Array(gutter.length + 1).join(' ');
        var caret = new Array(d.column + 1).join(' ') + new Array(Math.max(d.length || 1, 1) + 1).join('^');
        return gutter + d.lineText + '\n' + pad + caret;
    }

    function render(diags) {
        var old = document.getElementById(OVERLAY_ID);
        if (old) old.remove();

        var overlay = el('div', 'position:fixed;inset:0;background:rgba(0,0,0,0.9);color:#eee;font:14px/1.5 monospace;padding:24px;overflow:auto;z-index:2147483647;');
        overlay.id = OVERLAY_ID;
        var box = el('div', 'max-width:880px;margin:0 auto;');
        box.appendChild(el('h2', 'color:#ff5555;margin:0 0 16px;',
            diags.length === 1 ? 'Failed to compile' : 'Failed to compile (' + diags.length + ' problems)'));

        diags.forEach(function(d) {
            var item = el('div', 'background:#1a1a1a;border:1px solid #333;border-radius:6px;padding:12px 16px;margin-bottom:12px;');
            var loc = where(d);
            if (loc) item.appendChild(el('div', 'color:#8be9fd;', loc));
            item.appendChild(el('div', 'color:#fff;font-weight:bold;white-space:pre-wrap;',
                (d.plugin ? '[' + d.plugin + '] ' : '') + d.text));
            if (d.lineText) {
                item.appendChild(el('pre', 'margin:8px 0 0;color:#ccc;white-space:pre;overflow:auto;', frame(d)));
            }
            (d.notes || []).forEach(function(n) {
                item.appendChild(el('div', 'color:#888;margin-top:6px;', n));
            });
            box.appendChild(item);
        });

        box.appendChild(el('p', 'color:#888;', 'Fix the problem and save; the page reloads when the build succeeds.'));
        overlay.appendChild(box);
        document.body.appendChild(overlay);
    }

    if (document.readyState === 'loading') {
        document.addEventListener('DOMContentLoaded', connect);
    } else {
        connect();
    }
})();
</script>
`
