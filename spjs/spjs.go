package spjs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// DefaultReconnectDelay is the pause between failed connection attempts.
const DefaultReconnectDelay = 3 * time.Second

// ErrClosed is returned by operations on a closed client or port.
var ErrClosed = errors.New("spjs: closed")

// DataFrame is serial data received on a port.
type DataFrame struct {
	Port string `json:"P"`
	Data string `json:"D"`
}

// CmdStatus reports the progress of queued commands.
type CmdStatus struct {
	Cmd        string
	QueueCount int    `json:"QCnt"`
	Port       string `json:"P"`
	ID         string `json:"Id"`
}

type ErrorMessage struct {
	Error string
}

type SerialPortList struct {
	SerialPorts []SerialPort
}

type SerialPort struct {
	Name                      string
	Friendly                  string
	SerialNumber              string
	DeviceClass               string
	IsOpen                    bool
	IsPrimary                 bool
	RelatedNames              []string
	Baud                      int
	BufferAlgorithm           string
	AvailableBufferAlgorithms []string
	Ver                       float64
	USBVID                    string
	USBPID                    string
	FeedRateOverride          float64
}

// JSON is the payload of a sendjson command.
type JSON struct {
	Port string `json:"P"`
	Data []Data
}

type Data struct {
	Data string `json:"D"`
	ID   string `json:"Id"`
}

type Config struct {
	// URL of the websocket endpoint, e.g. ws://localhost:8989/ws.
	URL string

	ReconnectDelay time.Duration
	Logger         *log.Logger
}

// Client keeps a websocket connection to a serial-port-json-server open,
// reconnecting as needed, and routes received data to open ports.
type Client struct {
	url   string
	delay time.Duration
	log   *log.Logger

	mx          sync.RWMutex
	serialPorts []SerialPort
	ports       map[string]*Port

	outgoing chan message
	closeCh  chan struct{}
	closed   sync.Once
	done     chan struct{}
}

type message struct {
	done    chan struct{}
	payload []byte
}

var lastID int64

func nextID() string {
	id := atomic.AddInt64(&lastID, 1)
	return "pcbmill_" + strconv.FormatInt(id, 36)
}

// New starts a client for cfg.URL. The first connection is made in the
// background.
func New(cfg Config) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	c := &Client{
		url:      cfg.URL,
		delay:    cfg.ReconnectDelay,
		log:      cfg.Logger.WithPrefix("spjs"),
		ports:    make(map[string]*Port),
		outgoing: make(chan message),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.loop()
	return c
}

// SerialPorts returns the port list from the last "list" response.
func (c *Client) SerialPorts() []SerialPort {
	c.mx.RLock()
	defer c.mx.RUnlock()
	return append([]SerialPort(nil), c.serialPorts...)
}

// Close disconnects and closes every open port.
func (c *Client) Close() error {
	c.closed.Do(func() {
		close(c.closeCh)
		<-c.done

		c.mx.Lock()
		ports := c.ports
		c.ports = make(map[string]*Port)
		c.mx.Unlock()
		for _, p := range ports {
			p.shutdown()
		}
	})
	return nil
}

func parseMessage(data []byte) (interface{}, error) {
	var msg map[string]json.RawMessage
	err := json.Unmarshal(data, &msg)
	if err != nil {
		return nil, err
	}

	var val interface{}
	switch {
	case msg["Error"] != nil:
		val = &ErrorMessage{}
	case msg["SerialPorts"] != nil:
		val = &SerialPortList{}
	case msg["Cmd"] != nil:
		val = &CmdStatus{}
	case msg["D"] != nil && msg["P"] != nil:
		val = &DataFrame{}
	default:
		return nil, fmt.Errorf("unknown message: %s", data)
	}
	err = json.Unmarshal(data, val)
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (c *Client) handle(val interface{}) {
	switch msg := val.(type) {
	case *DataFrame:
		c.mx.RLock()
		p := c.ports[msg.Port]
		c.mx.RUnlock()
		if p == nil {
			c.log.Debug("data for unopened port", "port", msg.Port)
			return
		}
		p.deliver([]byte(msg.Data))
	case *CmdStatus:
		switch msg.Cmd {
		case "WipedQueue":
			c.log.Warn("queue wiped", "port", msg.Port)
		case "Open":
			c.log.Info("port opened", "port", msg.Port)
		case "Close":
			c.log.Info("port closed", "port", msg.Port)
		default:
			c.log.Debug("command status", "cmd", msg.Cmd, "id", msg.ID, "queue", msg.QueueCount)
		}
	case *SerialPortList:
		c.mx.Lock()
		c.serialPorts = msg.SerialPorts
		var reopen []*Port
		for _, sp := range msg.SerialPorts {
			if p := c.ports[sp.Name]; p != nil && !sp.IsOpen {
				reopen = append(reopen, p)
			}
		}
		c.mx.Unlock()
		for _, p := range reopen {
			go c.WriteString(context.Background(), p.openCommand())
		}
	case *ErrorMessage:
		c.log.Error("server error", "msg", msg.Error)
	}
}

func (c *Client) readLoop(ws *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closeCh:
			default:
				c.log.Error("read", "err", err)
			}
			return
		}
		if !bytes.HasPrefix(data, []byte("{")) {
			// echo of our own commands
			continue
		}
		val, err := parseMessage(data)
		if err != nil {
			c.log.Warn("parse", "err", err)
			continue
		}
		c.handle(val)
	}
}

func (c *Client) loop() {
	defer close(c.done)
	var nextUp message

reconnect:
	for {
		c.log.Info("connecting", "url", c.url)
		ws, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			c.log.Error("connect", "err", err)
			select {
			case <-c.closeCh:
				return
			case <-time.After(c.delay):
			}
			continue
		}
		c.log.Info("connected", "url", c.url)
		readDone := make(chan struct{})
		go c.readLoop(ws, readDone)

		// refresh the port list; reopens ports lost with the connection
		err = ws.WriteMessage(websocket.TextMessage, []byte("list"))
		if err != nil {
			c.log.Error("send", "err", err)
			ws.Close()
			<-readDone
			continue
		}

		for {
			if nextUp.done != nil {
				err = ws.WriteMessage(websocket.TextMessage, nextUp.payload)
				if err != nil {
					c.log.Error("send", "err", err)
					ws.Close()
					<-readDone
					continue reconnect
				}
				close(nextUp.done)
				nextUp.done = nil
			}

			select {
			case <-c.closeCh:
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				ws.Close()
				<-readDone
				return
			case <-readDone:
				ws.Close()
				continue reconnect
			case nextUp = <-c.outgoing:
			}
		}
	}
}

// WriteString sends a raw command and returns once it was written to the
// websocket.
func (c *Client) WriteString(ctx context.Context, data string) error {
	msg := message{done: make(chan struct{}), payload: []byte(data)}
	select {
	case c.outgoing <- msg:
	case <-c.closeCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-msg.done:
		return nil
	case <-c.closeCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendJSON queues lines on a port through the server's buffer.
func (c *Client) SendJSON(ctx context.Context, v JSON) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal sendjson: %w", err)
	}
	return c.WriteString(ctx, "sendjson "+string(data))
}
