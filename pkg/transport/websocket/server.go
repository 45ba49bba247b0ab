package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/bugsy.go/pkg/framework"
	"github.com/robotalks/bugsy.go/pkg/transport"
)

// DefaultPath is where the bus endpoint is served.
const DefaultPath = "/bus"

// Server implements transport.Transport as a websocket server.
// Received messages from all clients are merged; written messages are
// sent to every connected client.
type Server struct {
	Addr string
	Path string

	inbox    *transport.Inbox
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	clients  map[*ReadWriter]struct{}
	done     chan struct{}
}

// NewServer creates a Server listening on addr.
func NewServer(addr string) *Server {
	return &Server{
		Addr:    addr,
		Path:    DefaultPath,
		inbox:   transport.NewInbox("ws:"+addr, transport.DefaultInboxSize),
		clients: make(map[*ReadWriter]struct{}),
	}
}

// Inbox exposes the receiving queue.
func (s *Server) Inbox() *transport.Inbox {
	return s.inbox
}

// ListenAddr returns the actual listening address once open.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Open implements transport.Transport.
func (s *Server) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return nil
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return err
	}
	path := s.Path
	if path == "" {
		path = DefaultPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(s.serveConn))
	s.server, s.listener, s.done = &http.Server{Handler: mux}, ln, make(chan struct{})
	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Errorf("websocket server error: %v", err)
		}
	}(s.server, s.done)
	glog.V(1).Infof("websocket listening on %s%s", ln.Addr(), path)
	return nil
}

// Close implements transport.Transport.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server, s.listener, s.done = nil, nil, nil
	clients := s.clients
	s.clients = make(map[*ReadWriter]struct{})
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	var errs fx.AggregatedError
	errs.Add(srv.Close())
	for c := range clients {
		c.Close()
	}
	<-done
	return errs.Aggregate()
}

// TryRead implements transport.Transport.
func (s *Server) TryRead() ([]byte, bool) {
	return s.inbox.TryPop()
}

// Write implements transport.Transport.
func (s *Server) Write(data []byte) error {
	s.mu.Lock()
	if s.server == nil {
		s.mu.Unlock()
		return transport.ErrClosed
	}
	clients := make([]*ReadWriter, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	if len(clients) == 0 {
		glog.V(3).Info("websocket: no clients, write skipped")
		return nil
	}
	var errs fx.AggregatedError
	for _, c := range clients {
		errs.Add(c.WritePacket(data))
	}
	return errs.Aggregate()
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) serveConn(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	rw := New(conn)
	s.mu.Lock()
	if s.server == nil {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[rw] = struct{}{}
	s.mu.Unlock()
	glog.V(1).Infof("websocket client %s connected", conn.Request().RemoteAddr)

	err := transport.Pump(conn.Request().Context(), rw, s.inbox)
	glog.V(1).Infof("websocket client %s disconnected: %v", conn.Request().RemoteAddr, err)

	s.mu.Lock()
	delete(s.clients, rw)
	s.mu.Unlock()
}
