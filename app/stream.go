package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	F "diesel.com/sph2d/fluid"
	G "diesel.com/sph2d/geometry"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r2"
)

//WebSocket stream to an external renderer. Every client receives frame snapshots and may
//send interaction, parameter and reset messages back.

const (
	writeWait  = 5 * time.Second
	sendBuffer = 8
)

//Message types
const (
	MsgFrame    = "frame"
	MsgInteract = "interact"
	MsgRelease  = "release"
	MsgParams   = "params"
	MsgReset    = "reset"
	MsgError    = "error"
)

//Frame - one snapshot. Positions are interleaved x,y, either in simulation space or normalised
//to [0,1] of Bounds (Normalized).
type Frame struct {
	Type       string    `json:"type"`
	Frame      uint64    `json:"frame"`
	Time       float64   `json:"time"`
	Bounds     G.Bounds  `json:"bounds"`
	Count      int       `json:"count"`
	Normalized bool      `json:"normalized"`
	Positions  []float32 `json:"positions"`
	Stats      F.Stats   `json:"stats"`
}

//Message - inbound client request
type Message struct {
	Type     string                 `json:"type"`
	X        float64                `json:"x"`
	Y        float64                `json:"y"`
	Strength float64                `json:"strength"`
	Radius   float64                `json:"radius"`
	Params   map[string]interface{} `json:"params,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

//Inbox receives collaborator input. Implementations must be safe for concurrent use.
type Inbox interface {
	SubmitInteraction(in F.Interaction)
	SubmitRelease()
	SubmitParams(overrides map[string]interface{}) error
	SubmitReset()
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type Stream struct {
	upgrader websocket.Upgrader
	inbox    Inbox
	log      logrus.FieldLogger

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewStream(inbox Inbox, log logrus.FieldLogger) *Stream {
	return &Stream{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		inbox:   inbox,
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

//Clients - number of connected clients
func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

//ServeHTTP upgrades the request and serves the client until it disconnects
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			s.log.WithError(err).Warn("websocket upgrade failed")
		}
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.WithField("remote", r.RemoteAddr).Info("stream client connected")

	go s.writeSocket(c)
	s.readSocket(c)
	s.drop(c)
	s.log.WithField("remote", r.RemoteAddr).Info("stream client disconnected")
}

//Broadcast queues a frame for every client. Clients that fall behind miss frames.
func (s *Stream) Broadcast(frame Frame) error {
	frame.Type = MsgFrame
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			s.log.WithField("frame", frame.Frame).Debug("stream client behind, frame dropped")
		}
	}
	return nil
}

//Close disconnects every client
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Stream) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// readSocket listen for new messages being sent to the websocket
func (s *Stream) readSocket(c *client) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.WithError(err).Warn("stream read")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.reply(c, fmt.Errorf("decode message: %w", err))
			continue
		}
		if err := s.handle(msg); err != nil {
			s.reply(c, err)
		}
	}
}

func (s *Stream) writeSocket(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.log.WithError(err).Debug("stream write")
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Stream) reply(c *client, err error) {
	s.log.WithError(err).Debug("stream message rejected")
	payload, _ := json.Marshal(Message{Type: MsgError, Error: err.Error()})

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (s *Stream) handle(msg Message) error {
	switch msg.Type {
	case MsgInteract:
		if !(msg.Radius > 0) {
			return fmt.Errorf("interaction radius must be positive, got %g", msg.Radius)
		}
		s.inbox.SubmitInteraction(F.Interaction{
			Point:    r2.Vec{X: msg.X, Y: msg.Y},
			Strength: msg.Strength,
			Radius:   msg.Radius,
		})
	case MsgRelease:
		s.inbox.SubmitRelease()
	case MsgParams:
		return s.inbox.SubmitParams(msg.Params)
	case MsgReset:
		s.inbox.SubmitReset()
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}
