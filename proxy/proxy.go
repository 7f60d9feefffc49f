package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/airchains-network/token-ledger/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"
	maxMessageSize  = 512 * 1024
	pongWait        = 60 * time.Second
	pingPeriod      = 54 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server exposes a Dispatcher over HTTP and WebSocket
type Server struct {
	dispatcher *Dispatcher
	log        *logrus.Logger
	upgrader   websocket.Upgrader
}

// NewServer creates the proxy server
func NewServer(dispatcher *Dispatcher, log *logrus.Logger) *Server {
	return &Server{
		dispatcher: dispatcher,
		log:        log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// requestLogger tags every request with an id and logs it when done
func requestLogger(log *logrus.Logger, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		log.WithFields(logrus.Fields{
			"request_id": id,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		}).Debugf("[%s] %s %s", prefix, c.Request.Method, c.Request.URL.Path)
	}
}

// RPCRouter serves JSON-RPC over POST /
func (s *Server) RPCRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(s.log, "RPC"))
	router.Use(gin.Recovery())
	router.POST("/", s.handleRPC)
	return router
}

// WSRouter serves JSON-RPC over a WebSocket at GET /
func (s *Server) WSRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(s.log, "WS"))
	router.Use(gin.Recovery())
	router.GET("/", s.handleWebSocket)
	return router
}

// Start runs both servers until ctx is cancelled
func (s *Server) Start(ctx context.Context, rpcAddr, wsAddr string) error {
	servers := []*http.Server{
		{Addr: rpcAddr, Handler: s.RPCRouter()},
		{Addr: wsAddr, Handler: s.WSRouter()},
	}

	errs := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			s.log.Infof("Listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}(srv)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errs:
		s.log.Errorf("Server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			s.log.Warnf("Failed to shut down %s: %v", srv.Addr, serr)
		}
	}
	return err
}

// handleRPC processes one JSON-RPC request
func (s *Server) handleRPC(c *gin.Context) {
	var req types.RPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.log.Errorf("Failed to parse JSON-RPC request: %v", err)
		c.JSON(http.StatusBadRequest, types.RPCResponse{
			Jsonrpc: "2.0",
			Error:   &types.RPCError{Code: types.CodeParseError, Message: "Invalid JSON-RPC request"},
		})
		return
	}
	c.JSON(http.StatusOK, s.dispatcher.Handle(&req))
}

// wsClient is one WebSocket connection
type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	log    *logrus.Logger
	mu     sync.Mutex
	closed bool
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Errorf("Failed to upgrade connection to WebSocket: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 256),
		log:  s.log,
	}
	go client.writePump()
	go client.readPump(s.dispatcher)
}

// readPump answers every request read from the connection
func (c *wsClient) readPump(dispatcher *Dispatcher) {
	defer func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Errorf("WebSocket read error: %v", err)
			}
			return
		}

		var resp *types.RPCResponse
		var req types.RPCRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.log.Errorf("Failed to parse WebSocket message: %v", err)
			resp = &types.RPCResponse{
				Jsonrpc: "2.0",
				Error:   &types.RPCError{Code: types.CodeParseError, Message: "Invalid JSON-RPC request"},
			}
		} else {
			resp = dispatcher.Handle(&req)
		}

		data, err := json.Marshal(resp)
		if err != nil {
			c.log.Errorf("Failed to marshal WebSocket response: %v", err)
			continue
		}

		if !c.queue(data) {
			c.log.Warn("WebSocket client is not reading responses, closing connection")
			return
		}
	}
}

// queue hands data to writePump without blocking; false means the buffer is full
func (c *wsClient) queue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// writePump writes queued responses and keeps the connection alive
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
