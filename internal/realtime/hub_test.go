package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub("VM-001")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleConnection(w, r)
	}))
	t.Cleanup(server.Close)
	t.Cleanup(hub.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPrimaryMachineStartsOffline(t *testing.T) {
	hub := NewHub("VM-001")

	status := hub.PrimaryStatus()
	assert.Equal(t, "VM-001", status.ID)
	assert.Equal(t, StatusOffline, status.Status)
	assert.Nil(t, status.LastHeartbeat)

	_, ok := hub.Status("VM-999")
	assert.False(t, ok)
}

func TestRegisterFlipsMachineOnline(t *testing.T) {
	hub, url := newTestHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "register", "machine_id": "VM-001"}))

	require.Eventually(t, func() bool {
		return hub.PrimaryStatus().Status == StatusOnline
	}, 2*time.Second, 10*time.Millisecond)

	status := hub.PrimaryStatus()
	require.NotNil(t, status.LastHeartbeat)
	assert.WithinDuration(t, time.Now(), *status.LastHeartbeat, 2*time.Second)
}

func TestDisconnectFlipsMachineOffline(t *testing.T) {
	hub, url := newTestHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "register", "machine_id": "VM-001"}))
	require.Eventually(t, func() bool {
		return hub.PrimaryStatus().Status == StatusOnline
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.PrimaryStatus().Status == StatusOffline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub, url := newTestHub(t)
	first := dial(t, url)
	second := dial(t, url)

	// Make sure both connections are registered with the hub before
	// broadcasting.
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.conns) == 2
	}, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastInventoryUpdated()

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, EventInventoryUpdated, event.Type)
	}
}

func TestPaymentEventCarriesDetails(t *testing.T) {
	hub, url := newTestHub(t)
	conn := dial(t, url)

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.conns) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastPaymentEvent(EventPaymentSuccess, "BB1700000000000", "pay_abc", 50, "paid")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, EventPaymentSuccess, event.Type)
	assert.Equal(t, "BB1700000000000", event.OrderID)
	assert.Equal(t, "pay_abc", event.PaymentID)
	assert.Equal(t, 50.0, event.Amount)
	assert.Equal(t, "paid", event.Status)
}

func TestMalformedMessageIsIgnored(t *testing.T) {
	hub, url := newTestHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "register", "machine_id": "VM-001"}))

	require.Eventually(t, func() bool {
		return hub.PrimaryStatus().Status == StatusOnline
	}, 2*time.Second, 10*time.Millisecond)
}
