package internal

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// FuzzProtocol tests that the server can safely handle arbitrary incoming
// WebSocket messages. It ensures no panic, race, or invalid JSON response
// occurs for any input.
//
// Note: this test does not assert any business logic. Instead,
// it checks if the server can handle malformed inputs.
func FuzzProtocol(f *testing.F) {
	// Seeds
	//
	// All of these seeds represent expected values. Go fuzz testing
	// will generate random versions of these seeds automatically.
	f.Add(`{"type":"createRoom","payload":{"username":"ana"}}`)
	f.Add(`{"type":"joinRoom","payload":{"roomCode":"AB12CD","username":"bogdan"}}`)
	f.Add(`{"type":"leaveRoom","payload":{}}`)
	f.Add(`{"type":"setRule","payload":{"rule":"nextPlayerOnly","enabled":true}}`)
	f.Add(`{"type":"startGame"}`)
	f.Add(`{"type":"declarePair","payload":{"cardId1":1,"cardId2":2}}`)
	f.Add(`{"type":"drawCard","payload":{}}`)
	f.Add(`{"type":"drawCardFromPlayer","payload":{"fromPlayerId":"x","cardPosition":-1}}`)
	f.Add(`{"type":"drawFromPlayer","payload":{"fromPlayerId":"x"}}`)
	f.Add(`{"type":"rearrangeCards","payload":{"newOrder":[1,0,2.5]}}`)
	f.Add(`{"type":"getHandSummary"}`)
	f.Add(`{"type":"unknown","payload":"garbage"}`)

	f.Fuzz(func(t *testing.T, rawMsg string) {
		t.Helper()

		// Start an isolated in-memory server for each fuzz iteration.
		srv := startTestServer(t)

		// Create websocket connection
		wsURL := httpToWs(t, srv.URL+"/ws")
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Skipf("dial failed: %v", err)
			return
		}
		t.Cleanup(func() {
			_ = conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "fuzz test done"),
			)
			conn.Close()
		})

		// Open a room first so game actions reach the engine.
		if err := conn.WriteJSON(ClientMessage{Type: ClientMessageCreateRoom}); err != nil {
			t.Skipf("write failed: %v", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(rawMsg)); err != nil {
			t.Skipf("write failed: %v", err)
			return
		}

		// Read and Validate Response
		conn.SetReadDeadline(time.Now().Add(timeout))
		for range 5 { // read up to a few messages per fuzz run
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg ServerMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("invalid server JSON: %v\nPayload: %s", err, string(data))
			}
			if _, err := UnmarshalServerMessage(msg); err != nil {
				t.Fatalf("undecodable server message: %v\nPayload: %s", err, string(data))
			}

			switch msg.Type {
			case ServerMessageConnectSuccess,
				ServerMessageRoomCreated,
				ServerMessageGameJoined,
				ServerMessageError:
				t.Logf("server responded with %s", msg.Type)
			default:
				t.Logf("server response ignored: %s", msg.Type)
			}
		}
	})
}

// httpToWs converts an http connection to a websocket connection
func httpToWs(t *testing.T, url string) string {
	t.Helper()
	if s, found := strings.CutPrefix(url, "https"); found {
		return "wss" + s
	}
	if s, found := strings.CutPrefix(url, "http"); found {
		return "ws" + s
	}
	return url
}
