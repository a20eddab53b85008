/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Jeopardy board
//
// Each game ID holds one board of board.Width categories by board.Height clues,
// fetched from the trivia api when a browser presses Start. Every browser
// connected to the same game ID sees the same board.
//
// Features:
// - WebSockets per game ID: /path/:gameid and /path/:gameid/ws
// - Start/Restart fetches a fresh round; older in-flight rounds are canceled
//   and their results discarded
// - Clicking a cell reveals its question, then its answer
// - Fetch failures are shown on the board and Restart is re-enabled
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current board, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/jeopardy/board"
)

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"`          // "start", "reveal"
	Row  int    `json:"row,omitempty"` // reveal
	Col  int    `json:"col,omitempty"` // reveal
}

// LoadingMessage toggles the loading indicator and the start button label.
type LoadingMessage struct {
	Type    string `json:"type"` // "loading"
	Loading bool   `json:"loading"`
	Button  string `json:"button"`
}

// BoardMessage replaces the whole board.
type BoardMessage struct {
	Type  string `json:"type"` // "board"
	Round string `json:"round"`
	HTML  string `json:"html"`
}

// CellMessage reports a single revealed cell.
type CellMessage struct {
	Type  string `json:"type"` // "cell"
	Round string `json:"round"`
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	State string `json:"state"`
	Text  string `json:"text"`
}

// SimpleMessage is for generic notifications ("error")
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

type revealRequest struct {
	row int
	col int
}

type roundResult struct {
	generation uint64
	board      *board.Board
	err        error
}

type Hub struct {
	id      string
	src     roundSource
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	starts   chan struct{}
	reveals  chan revealRequest
	results  chan roundResult
	done     chan struct{}
	stop     sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time

	board      *board.Board
	loading    bool
	lastError  string
	generation uint64
	cancel     context.CancelFunc
}

func newHub(gameID string, src roundSource) *Hub {
	now := time.Now()
	return &Hub{
		id:         gameID,
		src:        src,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		starts:     make(chan struct{}),
		reveals:    make(chan revealRequest),
		results:    make(chan roundResult),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true

			// Bring the new client up to date before anything else is broadcast.
			c.send <- h.loadingMessageLocked()
			if h.board != nil {
				if msg, err := h.boardMessageLocked(); err == nil {
					c.send <- msg
				}
			}
			if h.lastError != "" {
				c.send <- SimpleMessage{Type: "error", Message: h.lastError}
			}
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case <-h.starts:
			h.handleStart(cfg)

		case rr := <-h.reveals:
			h.handleReveal(cfg, rr)

		case res := <-h.results:
			h.handleResult(cfg, res)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) buttonLabelLocked() string {
	switch {
	case h.loading:
		return "Loading..."
	case h.board != nil || h.lastError != "":
		return "Restart"
	default:
		return "Start"
	}
}

func (h *Hub) loadingMessageLocked() LoadingMessage {
	return LoadingMessage{
		Type:    "loading",
		Loading: h.loading,
		Button:  h.buttonLabelLocked(),
	}
}

func (h *Hub) boardMessageLocked() (BoardMessage, error) {
	var sb strings.Builder
	if err := h.board.Render(&sb); err != nil {
		return BoardMessage{}, err
	}

	return BoardMessage{
		Type:  "board",
		Round: h.board.ID,
		HTML:  sb.String(),
	}, nil
}

// broadcastLocked sends msg to every client, dropping any that cannot keep up.
func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) setLoadingLocked(loading bool) {
	h.loading = loading
	h.broadcastLocked(h.loadingMessageLocked())
}

// handleStart wipes the board and begins fetching a new round. Any round
// still in flight is canceled, and its result will be ignored.
func (h *Hub) handleStart(cfg *Config) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if h.cancel != nil {
		h.cancel()
	}

	h.generation++
	generation := h.generation

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	h.board = nil
	h.lastError = ""
	h.setLoadingLocked(true)

	logf(cfg, "GAMES: Fetching round %d for %s", generation, h.id)

	go func() {
		categories, err := buildRound(ctx, h.src, board.Width, board.Height)

		var b *board.Board
		if err == nil {
			b, err = board.New(categories)
		}

		select {
		case h.results <- roundResult{generation: generation, board: b, err: err}:
		case <-h.done:
		}
	}()
}

func (h *Hub) handleResult(cfg *Config, res roundResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if res.generation != h.generation {
		logf(cfg, "GAMES: Discarded stale round %d for %s", res.generation, h.id)

		return
	}

	h.lastActive = time.Now()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}

	if res.err != nil {
		errorf("round %d for %s failed: %v", res.generation, h.id, res.err)

		h.lastError = roundFailure(res.err)
		h.broadcastLocked(SimpleMessage{Type: "error", Message: h.lastError})
		h.setLoadingLocked(false)

		return
	}

	h.board = res.board

	msg, err := h.boardMessageLocked()
	if err != nil {
		errorf("rendering round %s for %s: %v", h.board.ID, h.id, err)

		h.board = nil
		h.lastError = roundFailure(err)
		h.broadcastLocked(SimpleMessage{Type: "error", Message: h.lastError})
		h.setLoadingLocked(false)

		return
	}

	logf(cfg, "GAMES: Round %s ready for %s", h.board.ID, h.id)

	h.broadcastLocked(msg)
	h.setLoadingLocked(false)
}

func (h *Hub) handleReveal(cfg *Config, rr revealRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if h.board == nil {
		return
	}

	cell, changed, err := h.board.Reveal(rr.row, rr.col)
	if err != nil {
		logf(cfg, "GAMES: Ignored reveal in %s: %v", h.id, err)

		return
	}
	if !changed {
		return
	}

	h.broadcastLocked(CellMessage{
		Type:  "cell",
		Round: h.board.ID,
		Row:   cell.Row,
		Col:   cell.Col,
		State: cell.State.String(),
		Text:  cell.Text(),
	})
}

// closeAll disconnects all clients of this hub and stops it.
func (h *Hub) closeAll() {
	h.stop.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()

		if h.cancel != nil {
			h.cancel()
			h.cancel = nil
		}

		for c := range h.clients {
			close(c.send)
			_ = c.conn.Close()
			delete(h.clients, c)
		}
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated board.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	src         roundSource
	idleTimeout time.Duration
	done        chan struct{}
}

func newGameManager(src roundSource, idleTimeout time.Duration) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		src:         src,
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gameID, gm.src)
	gm.hubs[gameID] = hub
	go hub.run(cfg)
	return hub
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-gm.done:
			return
		}

		cutoff := time.Now().Add(-gm.idleTimeout)

		gm.mu.Lock()
		for id, hub := range gm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(gm.hubs, id)
				go hub.closeAll()
			}
		}
		gm.mu.Unlock()
	}
}

// Close stops the reaper and every running hub.
func (gm *GameManager) Close() {
	close(gm.done)

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.closeAll()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errorf("upgrade error: %v", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 16),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		logf(cfg, "GAMES: %s connected to %s", realIP(r), gameID)

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "start":
			select {
			case h.starts <- struct{}{}:
			case <-h.done:
				return
			}
		case "reveal":
			select {
			case h.reveals <- revealRequest{row: msg.Row, col: msg.Col}:
			case <-h.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile("assets/jeopardy/index.html")
		if err != nil {
			panic(err)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte(strings.ReplaceAll(string(data), "{{prefix}}", cfg.prefix)))
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerJeopardyGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerJeopardyGame(cfg *Config, path string, src roundSource, mux *httprouter.Router) *GameManager {
	gm := newGameManager(src, cfg.sessionTimeout)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg))

	return gm
}
