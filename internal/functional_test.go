package internal

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JDRadatti/oldmaid/internal/oldmaid"
)

const timeout = 2 * time.Second

// ---------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------

type testServer struct {
	*httptest.Server
	rm        *RoomManager
	results   *MemoryResults
	publisher *recordingPublisher
}

func testOptions(t *testing.T) RoomManagerOptions {
	t.Helper()
	return RoomManagerOptions{
		Settings:        oldmaid.DefaultSettings(),
		CleanupInterval: time.Hour,
		Rand:            rand.New(rand.NewPCG(1, 2)),
		Publisher:       &recordingPublisher{},
		Results:         NewMemoryResults(),
		Logger:          zaptest.NewLogger(t),
	}
}

// startTestServer starts the HTTP router on an httptest server.
func startTestServer(t *testing.T) *testServer {
	t.Helper()
	return startTestServerWith(t, testOptions(t))
}

func startTestServerWith(t *testing.T, opts RoomManagerOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rm := NewRoomManager(t.Context(), opts)
	srv := httptest.NewServer(SetupRouter(rm, opts.Results, opts.Logger))
	t.Cleanup(srv.Close)
	ts := &testServer{Server: srv, rm: rm}
	ts.results, _ = opts.Results.(*MemoryResults)
	ts.publisher, _ = opts.Publisher.(*recordingPublisher)
	return ts
}

// wsDial connects to the test WebSocket endpoint and returns the connection.
func wsDial(t *testing.T, srv *testServer) *websocket.Conn {
	t.Helper()
	wsURL := httpToWs(t, srv.URL+"/ws")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "dial failed")

	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}

// expectMessageType drains messages until it finds the target type or times
// out. Any error message other than the target fails the test.
func expectMessageType(t *testing.T, conn *websocket.Conn, target ServerMessageType, timeout time.Duration) ServerMessage {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for message type %s", target)
		}

		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed while waiting for %s: %v", target, err)
		}

		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}

		if msg.Type == target {
			return msg
		}

		// If we get an Error when we didn't ask for one, log the details
		if msg.Type == ServerMessageError {
			t.Fatalf("received unexpected error while waiting for %s: %s", target, string(data))
		}
	}
}

// expectPayload waits for target and decodes its payload.
func expectPayload[T any](t *testing.T, conn *websocket.Conn, target ServerMessageType) T {
	t.Helper()
	msg := expectMessageType(t, conn, target, timeout)
	payload, err := UnmarshalServerMessage(msg)
	require.NoError(t, err)
	typed, ok := payload.(T)
	require.True(t, ok, "unexpected payload %T for %s", payload, target)
	return typed
}

// expectError waits for an error message and returns its code.
func expectError(t *testing.T, conn *websocket.Conn) ServerMessageErrorPayload {
	t.Helper()
	return expectPayload[ServerMessageErrorPayload](t, conn, ServerMessageError)
}

type player struct {
	conn *websocket.Conn
	id   oldmaid.PlayerID
}

// connect dials and waits for connectSuccess.
func connect(t *testing.T, srv *testServer) player {
	t.Helper()
	conn := wsDial(t, srv)
	hello := expectPayload[ServerMessageConnectSuccessPayload](t, conn, ServerMessageConnectSuccess)
	return player{conn: conn, id: hello.ClientID.PlayerID()}
}

// createRoom connects a new client and opens a room with it.
func createRoom(t *testing.T, srv *testServer, username string) (player, RoomCode) {
	t.Helper()
	p := connect(t, srv)
	send(t, p.conn, ClientMessageCreateRoom, ClientMessageCreateRoomPayload{Username: username})
	created := expectPayload[ServerMessageRoomCreatedPayload](t, p.conn, ServerMessageRoomCreated)
	require.Len(t, string(created.RoomCode), roomCodeLength)
	expectMessageType(t, p.conn, ServerMessageGameJoined, timeout)
	return p, created.RoomCode
}

// joinRoom connects a new client and joins code with it.
func joinRoom(t *testing.T, srv *testServer, code RoomCode, username string) player {
	t.Helper()
	p := connect(t, srv)
	send(t, p.conn, ClientMessageJoinRoom, ClientMessageJoinRoomPayload{RoomCode: code, Username: username})
	joined := expectPayload[oldmaid.GameJoined](t, p.conn, ServerMessageGameJoined)
	require.Equal(t, string(code), joined.RoomCode)
	return p
}

// sendMessage sends a ClientMessage over the WebSocket connection.
func sendMessage(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg), "write failed")
}

func send(t *testing.T, conn *websocket.Conn, msgType ClientMessageType, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	sendMessage(t, conn, ClientMessage{Type: msgType, Payload: raw})
}

// ---------------------------------------------------------------------
// Functional Tests
// ---------------------------------------------------------------------

// TestCreateAndJoin verifies the basic flow:
//
//	connect -> connectSuccess -> createRoom -> roomCreated, gameJoined
//	connect -> connectSuccess -> joinRoom -> gameJoined, playerJoined to the host
func TestCreateAndJoin(t *testing.T) {
	srv := startTestServer(t)

	host, code := createRoom(t, srv, "ana")
	guest := joinRoom(t, srv, code, "bogdan")

	notice := expectPayload[oldmaid.PlayerJoined](t, host.conn, ServerMessagePlayerJoined)
	assert.Equal(t, guest.id, notice.ID)
	assert.Equal(t, "bogdan", notice.Username)
	assert.Equal(t, 2, notice.PlayerCount)
}

// TestJoinIsCaseInsensitive verifies room codes are matched regardless of case.
func TestJoinIsCaseInsensitive(t *testing.T) {
	srv := startTestServer(t)

	_, code := createRoom(t, srv, "ana")
	joinRoom(t, srv, RoomCode(" "+string(code)+" "), "bogdan")
}

// TestInvalidRoom verifies that trying to join a nonexistent room returns an
// error message instead of crashing or ignoring it.
func TestInvalidRoom(t *testing.T) {
	srv := startTestServer(t)
	p := connect(t, srv)

	send(t, p.conn, ClientMessageJoinRoom, ClientMessageJoinRoomPayload{RoomCode: "NOPE00"})

	errPayload := expectError(t, p.conn)
	assert.Equal(t, ErrorCodeRoomNotFound, errPayload.Code)
	assert.Equal(t, ClientMessageJoinRoom, errPayload.RequestType)
}

// TestAlreadyInRoom verifies a client cannot sit in two rooms.
func TestAlreadyInRoom(t *testing.T) {
	srv := startTestServer(t)
	host, code := createRoom(t, srv, "ana")

	send(t, host.conn, ClientMessageJoinRoom, ClientMessageJoinRoomPayload{RoomCode: code})
	assert.Equal(t, ErrorCodeAlreadyInRoom, expectError(t, host.conn).Code)

	send(t, host.conn, ClientMessageCreateRoom, ClientMessageCreateRoomPayload{})
	assert.Equal(t, ErrorCodeAlreadyInRoom, expectError(t, host.conn).Code)
}

// TestRoomFull verifies the seventh player is turned away.
func TestRoomFull(t *testing.T) {
	srv := startTestServer(t)
	_, code := createRoom(t, srv, "p1")
	for i := 2; i <= 6; i++ {
		joinRoom(t, srv, code, "")
	}

	late := connect(t, srv)
	send(t, late.conn, ClientMessageJoinRoom, ClientMessageJoinRoomPayload{RoomCode: code})
	assert.Equal(t, ServerErrorCode(oldmaid.CodeRoomFull), expectError(t, late.conn).Code)
}

// TestMalformedMessages ensures that completely invalid payloads
// trigger an error message.
func TestMalformedMessages(t *testing.T) {
	srv := startTestServer(t)
	p := connect(t, srv)

	for _, raw := range []string{
		`{"type":"joinRoom","payload":"notAnObject"}`,
		`{"type":"declarePair","payload":{"cardId1":"a"}}`,
		`{"type":"rearrangeCards","payload":{"newOrder":"0,1"}}`,
		`not json at all`,
		`{"type":"shuffleDeck","payload":{}}`,
	} {
		require.NoError(t, p.conn.WriteMessage(websocket.TextMessage, []byte(raw)))
		assert.Equal(t, ErrorCodeInvalidRequest, expectError(t, p.conn).Code, raw)
	}
}

// TestActionOutsideRoom verifies game actions need a room.
func TestActionOutsideRoom(t *testing.T) {
	srv := startTestServer(t)
	p := connect(t, srv)

	send(t, p.conn, ClientMessageDrawCard, ClientMessageDrawCardPayload{})
	errPayload := expectError(t, p.conn)
	assert.Equal(t, ErrorCodeNotInRoom, errPayload.Code)
	assert.Equal(t, ClientMessageDrawCard, errPayload.RequestType)

	send(t, p.conn, ClientMessageLeaveRoom, ClientMessageLeaveRoomPayload{})
	assert.Equal(t, ErrorCodeNotInRoom, expectError(t, p.conn).Code)
}

// TestRoomHostTransfer verifies that when the host leaves a room, the next
// player becomes host.
func TestRoomHostTransfer(t *testing.T) {
	srv := startTestServer(t)

	host, code := createRoom(t, srv, "ana")
	guest := joinRoom(t, srv, code, "bogdan")

	send(t, host.conn, ClientMessageLeaveRoom, ClientMessageLeaveRoomPayload{})
	left := expectPayload[ServerMessageRoomLeftPayload](t, host.conn, ServerMessageRoomLeft)
	assert.Equal(t, code, left.RoomCode)

	notice := expectPayload[oldmaid.PlayerLeft](t, guest.conn, ServerMessagePlayerLeft)
	assert.Equal(t, host.id, notice.ID)
	assert.Equal(t, guest.id, notice.HostID)

	// The former host can open another room.
	send(t, host.conn, ClientMessageCreateRoom, ClientMessageCreateRoomPayload{})
	expectMessageType(t, host.conn, ServerMessageRoomCreated, timeout)
}

// TestStartGame verifies that when the host starts, everybody receives
// gameStarted and their own hand.
func TestStartGame(t *testing.T) {
	srv := startTestServer(t)

	host, code := createRoom(t, srv, "ana")
	guest := joinRoom(t, srv, code, "bogdan")

	send(t, host.conn, ClientMessageStartGame, ClientMessageStartGamePayload{})

	for _, p := range []player{host, guest} {
		started := expectPayload[oldmaid.GameStarted](t, p.conn, ServerMessageGameStarted)
		assert.Equal(t, host.id, started.CurrentTurn)
		assert.Equal(t, 33-8, started.DeckCount)
		dealt := expectPayload[oldmaid.DealtCards](t, p.conn, ServerMessageDealtCards)
		assert.Len(t, dealt.Cards, 4)
	}

	assert.Eventually(t, func() bool {
		return len(srv.publisher.events(EventGameStarted)) == 1
	}, timeout, 10*time.Millisecond)
}

// TestNonHostCannotStartGame verifies that the server returns an error
// when a player who is not the host attempts to start the game.
func TestNonHostCannotStartGame(t *testing.T) {
	srv := startTestServer(t)

	_, code := createRoom(t, srv, "ana")
	guest := joinRoom(t, srv, code, "bogdan")

	send(t, guest.conn, ClientMessageStartGame, ClientMessageStartGamePayload{})

	errPayload := expectError(t, guest.conn)
	assert.Equal(t, ServerErrorCode(oldmaid.CodeNotRoomHost), errPayload.Code)
	assert.Equal(t, ClientMessageStartGame, errPayload.RequestType)
}

// TestGameCannotStartWithSinglePlayer verifies that the server returns an error
// when the host attempts to start a game while being the only player.
func TestGameCannotStartWithSinglePlayer(t *testing.T) {
	srv := startTestServer(t)

	host, _ := createRoom(t, srv, "ana")

	send(t, host.conn, ClientMessageStartGame, ClientMessageStartGamePayload{})

	assert.Equal(t, ServerErrorCode(oldmaid.CodeNotEnoughPlayers), expectError(t, host.conn).Code)
}

// TestSetRule verifies the host can toggle rules before the game starts.
func TestSetRule(t *testing.T) {
	srv := startTestServer(t)

	host, code := createRoom(t, srv, "ana")
	guest := joinRoom(t, srv, code, "bogdan")

	send(t, host.conn, ClientMessageSetRule, ClientMessageSetRulePayload{Rule: oldmaid.RuleNextPlayerOnly, Enabled: true})
	updated := expectPayload[oldmaid.RulesUpdated](t, guest.conn, ServerMessageRulesUpdated)
	assert.True(t, updated.Rules[oldmaid.RuleNextPlayerOnly])

	send(t, host.conn, ClientMessageSetRule, ClientMessageSetRulePayload{Rule: "noSuchRule", Enabled: true})
	assert.Equal(t, ServerErrorCode(oldmaid.CodeUnknownRule), expectError(t, host.conn).Code)
}

// TestOutOfTurnActionGoesToSenderOnly verifies a rejected action only reaches
// the player who sent it.
func TestOutOfTurnActionGoesToSenderOnly(t *testing.T) {
	srv := startTestServer(t)

	host, code := createRoom(t, srv, "ana")
	guest := joinRoom(t, srv, code, "bogdan")
	send(t, host.conn, ClientMessageStartGame, ClientMessageStartGamePayload{})
	expectMessageType(t, host.conn, ServerMessageDealtCards, timeout)
	expectMessageType(t, guest.conn, ServerMessageDealtCards, timeout)

	send(t, guest.conn, ClientMessageDrawCard, ClientMessageDrawCardPayload{})
	assert.Equal(t, ServerErrorCode(oldmaid.CodeNotYourTurn), expectError(t, guest.conn).Code)

	// The host's next message is the result of their own draw, not the error.
	send(t, host.conn, ClientMessageDrawCard, ClientMessageDrawCardPayload{})
	drawn := expectPayload[oldmaid.CardDrawn](t, host.conn, ServerMessageCardDrawn)
	assert.NotZero(t, drawn.Card.ID)
	turn := expectPayload[oldmaid.TurnChanged](t, guest.conn, ServerMessageTurnChanged)
	assert.Equal(t, guest.id, turn.CurrentTurn)
}

// TestRearrangeAndSummary verifies hand reordering and the summary request.
func TestRearrangeAndSummary(t *testing.T) {
	srv := startTestServer(t)

	host, code := createRoom(t, srv, "ana")
	guest := joinRoom(t, srv, code, "bogdan")
	send(t, host.conn, ClientMessageStartGame, ClientMessageStartGamePayload{})
	dealt := expectPayload[oldmaid.DealtCards](t, host.conn, ServerMessageDealtCards)

	send(t, host.conn, ClientMessageRearrangeCards, ClientMessageRearrangeCardsPayload{NewOrder: []float64{3, 2, 1, 0}})
	rearranged := expectPayload[oldmaid.CardsRearranged](t, host.conn, ServerMessageCardsRearranged)
	for i, c := range rearranged.Cards {
		assert.Equal(t, dealt.Cards[3-i], c)
	}
	info := expectPayload[oldmaid.PlayersCardsInfo](t, guest.conn, ServerMessagePlayersCardsInfo)
	assert.Len(t, info.Players, 2)

	send(t, host.conn, ClientMessageRearrangeCards, ClientMessageRearrangeCardsPayload{NewOrder: []float64{0, 1.5, 2, 3}})
	assert.Equal(t, ServerErrorCode(oldmaid.CodeInvalidOrder), expectError(t, host.conn).Code)

	send(t, guest.conn, ClientMessageGetHandSummary, ClientMessageGetHandSummaryPayload{})
	summary := expectPayload[oldmaid.PlayersCardsInfo](t, guest.conn, ServerMessagePlayersCardsInfo)
	for _, v := range summary.Players {
		assert.Equal(t, []int{0, 1, 2, 3}, v.CardPositions)
	}
}

// TestDisconnectEndsTwoPlayerGame verifies that dropping out of a running
// two player game hands the win to the remaining player and archives it.
func TestDisconnectEndsTwoPlayerGame(t *testing.T) {
	srv := startTestServer(t)

	host, code := createRoom(t, srv, "ana")
	guest := joinRoom(t, srv, code, "bogdan")
	send(t, host.conn, ClientMessageStartGame, ClientMessageStartGamePayload{})
	expectMessageType(t, guest.conn, ServerMessageDealtCards, timeout)

	host.conn.Close()

	ended := expectPayload[oldmaid.GameEnded](t, guest.conn, ServerMessageGameEnded)
	assert.Equal(t, []oldmaid.PlayerID{guest.id}, ended.Winners)
	assert.Equal(t, oldmaid.EndLastPlayerStanding, ended.Reason)
	assert.Empty(t, ended.Loser)

	require.Eventually(t, func() bool {
		list, _ := srv.results.List(t.Context(), 10)
		return len(list) == 1
	}, timeout, 10*time.Millisecond)
	list, _ := srv.results.List(t.Context(), 10)
	assert.Equal(t, code, list[0].RoomCode)
	assert.Len(t, srv.publisher.events(EventGameEnded), 1)
}

// TestHealthAndRooms verifies the HTTP endpoints.
func TestHealthAndRooms(t *testing.T) {
	srv := startTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, code := createRoom(t, srv, "ana")

	resp, err = http.Get(srv.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Rooms []oldmaid.Snapshot `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Rooms, 1)
	assert.Equal(t, string(code), body.Rooms[0].Code)
	assert.Equal(t, oldmaid.StatusWaiting, body.Rooms[0].Status)
	assert.Len(t, body.Rooms[0].Players, 1)
}

func TestResultsEndpoint(t *testing.T) {
	srv := startTestServer(t)
	require.NoError(t, srv.results.Save(t.Context(), GameResult{ID: "r1", RoomCode: "ABC123"}))
	require.NoError(t, srv.results.Save(t.Context(), GameResult{ID: "r2", RoomCode: "DEF456"}))

	resp, err := http.Get(srv.URL + "/results?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Results []GameResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "r2", body.Results[0].ID, "most recent first")

	bad, err := http.Get(srv.URL + "/results?limit=0")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}
