package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rubiojr/convos/pkg/realtime"
	"github.com/rubiojr/convos/pkg/storage"
)

func testServer(t *testing.T) (*httptest.Server, *storage.Storage) {
	t.Helper()

	st, err := storage.Open(filepath.Join(t.TempDir(), "convos.db"))
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("closing storage: %v", err)
		}
	})

	hub := realtime.NewHub(0)
	st.SetNotifier(func(msg storage.Message) {
		hub.Broadcast(realtime.MessageEvent{
			ID:         msg.ID,
			Body:       msg.Body,
			ContactID:  msg.ContactID,
			InsertedAt: msg.InsertedAt,
		})
	})

	server := NewServer(st, hub, 30)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return ts, st
}

func seedServer(t *testing.T, st *storage.Storage) {
	t.Helper()
	if err := st.StoreContact(storage.Contact{ID: 1, Name: "Alice", Phone: "+1555"}); err != nil {
		t.Fatalf("storing contact: %v", err)
	}
	if err := st.StoreGroup(storage.Group{ID: 10, Label: "friends"}); err != nil {
		t.Fatalf("storing group: %v", err)
	}
	if err := st.AddContactToGroup(1, 10); err != nil {
		t.Fatalf("adding membership: %v", err)
	}
	if err := st.StoreFlowLabel(storage.FlowLabel{ID: 1, Name: "Help"}); err != nil {
		t.Fatalf("storing flow label: %v", err)
	}
	if err := st.StoreMessage(storage.Message{
		ID: "m1", Body: "hello world", ContactID: 1,
		InsertedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("storing message: %v", err)
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Errorf("closing body: %v", err)
		}
	}()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	var health HealthResponse
	if code := getJSON(t, ts.URL+"/health", &health); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if health.Status != "healthy" || health.Version == "" {
		t.Errorf("health = %+v", health)
	}
}

func TestSearchEndpoint(t *testing.T) {
	ts, st := testServer(t)
	seedServer(t, st)

	var result SearchResponse
	if code := getJSON(t, ts.URL+"/api/search?q=HELLO", &result); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if result.Count != 1 || result.Messages[0].ID != "m1" {
		t.Errorf("result = %+v", result)
	}
	if result.Query != "HELLO" {
		t.Errorf("query echo = %q", result.Query)
	}

	// Group filter hit and miss.
	if code := getJSON(t, ts.URL+"/api/search?group=10", &result); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if result.Count != 1 {
		t.Errorf("group=10 count = %d", result.Count)
	}
	if code := getJSON(t, ts.URL+"/api/search?group=99", &result); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if result.Count != 0 {
		t.Errorf("group=99 count = %d", result.Count)
	}
}

func TestSearchEndpointInvalidGroup(t *testing.T) {
	ts, _ := testServer(t)

	var errResp ErrorResponse
	code := getJSON(t, ts.URL+"/api/search?group=abc", &errResp)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
	if errResp.Error != "invalid_filter" || !strings.Contains(errResp.Message, "abc") {
		t.Errorf("error = %+v", errResp)
	}
}

func TestSearchEndpointBadDateIsSilent(t *testing.T) {
	ts, st := testServer(t)
	seedServer(t, st)

	var result SearchResponse
	code := getJSON(t, ts.URL+"/api/search?start_date=not-a-date", &result)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (bad dates degrade to no bound)", code)
	}
	if result.Count != 1 {
		t.Errorf("count = %d", result.Count)
	}
}

func TestListEndpoints(t *testing.T) {
	ts, st := testServer(t)
	seedServer(t, st)

	var labels ListLabelsResponse
	if code := getJSON(t, ts.URL+"/api/labels", &labels); code != http.StatusOK {
		t.Fatalf("labels status = %d", code)
	}
	if labels.Count != 1 || labels.Labels[0].Name != "Help" {
		t.Errorf("labels = %+v", labels)
	}

	var groups ListGroupsResponse
	if code := getJSON(t, ts.URL+"/api/groups", &groups); code != http.StatusOK {
		t.Fatalf("groups status = %d", code)
	}
	if groups.Count != 1 || groups.Groups[0].Label != "friends" {
		t.Errorf("groups = %+v", groups)
	}

	var stats map[string]any
	if code := getJSON(t, ts.URL+"/api/stats", &stats); code != http.StatusOK {
		t.Fatalf("stats status = %d", code)
	}
	if stats["total_messages"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}
}

func TestStoreMessagesEndpoint(t *testing.T) {
	ts, st := testServer(t)
	seedServer(t, st)

	body, err := json.Marshal(StoreMessagesRequest{Messages: []storage.Message{
		{Body: "posted via api", ContactID: 1},
	}})
	if err != nil {
		t.Fatalf("marshaling: %v", err)
	}

	resp, err := http.Post(ts.URL+"/api/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Errorf("closing body: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var stored SearchResponse
	if code := getJSON(t, ts.URL+"/api/search?q=posted", &stored); code != http.StatusOK {
		t.Fatalf("search status = %d", code)
	}
	if stored.Count != 1 {
		t.Errorf("stored message not searchable: %+v", stored)
	}
}

func TestFirehoseDeliversStoredMessages(t *testing.T) {
	ts, st := testServer(t)
	seedServer(t, st)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/firehose"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing firehose: %v", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("closing connection: %v", err)
		}
	}()

	// Give the handler a moment to register with the hub.
	time.Sleep(100 * time.Millisecond)

	if err := st.StoreMessage(storage.Message{ID: "live", Body: "breaking", ContactID: 1}); err != nil {
		t.Fatalf("storing message: %v", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("setting deadline: %v", err)
	}
	var event realtime.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if event.Type != "message" || event.Message.ID != "live" {
		t.Errorf("event = %+v", event)
	}
}
