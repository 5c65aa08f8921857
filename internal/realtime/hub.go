package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Machine status values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// MachineStatus is the in-memory liveness record for a machine. It is not
// persisted and resets on process restart.
type MachineStatus struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	LastHeartbeat *time.Time `json:"lastHeartbeat"`
}

// Event is a server-initiated message fanned out to connected clients.
type Event struct {
	Type      string  `json:"type"`
	OrderID   string  `json:"orderId,omitempty"`
	PaymentID string  `json:"paymentId,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Status    string  `json:"status,omitempty"`
}

// Event types pushed to clients. Inventory and order events carry no
// payload; clients re-fetch.
const (
	EventInventoryUpdated = "inventoryUpdated"
	EventOrdersUpdated    = "ordersUpdated"
	EventPaymentSuccess   = "paymentSuccess"
	EventPaymentFailed    = "paymentFailed"
)

type registerMessage struct {
	Type      string `json:"type"`
	MachineID string `json:"machine_id"`
}

// connection wraps a websocket with a write lock; gorilla permits only one
// concurrent writer per connection.
type connection struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *connection) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Hub owns all realtime state: the connection registry, the machine-to-
// connection map, and machine statuses. All access is serialized through
// its mutex; handlers receive the hub by injection.
type Hub struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    map[*connection]struct{}
	machines map[string]*connection
	statuses map[string]*MachineStatus
	primary  string
}

// NewHub creates a hub tracking the given primary machine, which starts
// offline until it registers over the socket.
func NewHub(primaryMachineID string) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			// The HTTP layer enforces origins; the kiosk connects from a
			// machine-local page with no Origin header at all.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns:    make(map[*connection]struct{}),
		machines: make(map[string]*connection),
		statuses: make(map[string]*MachineStatus),
		primary:  primaryMachineID,
	}
	h.statuses[primaryMachineID] = &MachineStatus{ID: primaryMachineID, Status: StatusOffline}
	return h
}

// HandleConnection upgrades the request and serves the connection until it
// closes. It blocks for the lifetime of the socket.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	conn := &connection{ws: ws}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	defer h.disconnect(conn)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return nil
		}
		h.handleMessage(conn, data)
	}
}

func (h *Hub) handleMessage(conn *connection, data []byte) {
	var msg registerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("realtime: dropping malformed message: %v", err)
		return
	}
	if msg.Type != "register" || msg.MachineID == "" {
		return
	}

	now := time.Now()
	h.mu.Lock()
	h.machines[msg.MachineID] = conn
	status, ok := h.statuses[msg.MachineID]
	if !ok {
		status = &MachineStatus{ID: msg.MachineID}
		h.statuses[msg.MachineID] = status
	}
	status.Status = StatusOnline
	status.LastHeartbeat = &now
	h.mu.Unlock()

	log.Printf("realtime: machine %s registered", msg.MachineID)
}

// disconnect evicts the connection and flips any machine registered on it
// to offline.
func (h *Hub) disconnect(conn *connection) {
	now := time.Now()

	h.mu.Lock()
	delete(h.conns, conn)
	for machineID, c := range h.machines {
		if c == conn {
			delete(h.machines, machineID)
			if status, ok := h.statuses[machineID]; ok {
				status.Status = StatusOffline
				status.LastHeartbeat = &now
			}
			log.Printf("realtime: machine %s disconnected", machineID)
			break
		}
	}
	h.mu.Unlock()

	conn.ws.Close()
}

// BroadcastInventoryUpdated tells all clients to re-fetch inventory.
func (h *Hub) BroadcastInventoryUpdated() {
	h.broadcast(Event{Type: EventInventoryUpdated})
}

// BroadcastOrdersUpdated tells all clients to re-fetch orders.
func (h *Hub) BroadcastOrdersUpdated() {
	h.broadcast(Event{Type: EventOrdersUpdated})
}

// BroadcastPaymentEvent pushes a payment outcome with its details. Sent
// only from the webhook path.
func (h *Hub) BroadcastPaymentEvent(eventType, orderID, paymentID string, amount float64, status string) {
	h.broadcast(Event{
		Type:      eventType,
		OrderID:   orderID,
		PaymentID: paymentID,
		Amount:    amount,
		Status:    status,
	})
}

func (h *Hub) broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: marshal %s event: %v", event.Type, err)
		return
	}

	h.mu.Lock()
	conns := make([]*connection, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.send(data); err != nil {
			log.Printf("realtime: broadcast %s failed: %v", event.Type, err)
		}
	}
}

// Status returns the tracked status for a machine.
func (h *Hub) Status(machineID string) (MachineStatus, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	status, ok := h.statuses[machineID]
	if !ok {
		return MachineStatus{}, false
	}
	return *status, true
}

// PrimaryStatus returns the status of the machine this instance tracks.
func (h *Hub) PrimaryStatus() MachineStatus {
	status, _ := h.Status(h.primary)
	return status
}

// Close tears down every open connection.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*connection, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.ws.Close()
	}
}
