package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/pegboard/mastermind/internal/chat"
	"github.com/pegboard/mastermind/internal/dependencies/clock"
	"github.com/pegboard/mastermind/internal/dependencies/random"
	"github.com/pegboard/mastermind/internal/model"
	"github.com/pegboard/mastermind/internal/protocol"
	"github.com/pegboard/mastermind/internal/registry"
	"github.com/pegboard/mastermind/internal/storage/memory"
	"github.com/pegboard/mastermind/internal/testutil"
)

type ServerSuite struct {
	suite.Suite
	storage  *memory.Storage
	registry *registry.Registry
	chat     *chat.Hub
	ts       *httptest.Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.storage = memory.New()
	s.registry = registry.New(s.storage, clock.New(), random.New(), logger)
	s.chat = chat.NewHub(logger)
	go s.chat.Run()

	s.ts = httptest.NewServer(NewRouter(RouterConfig{
		Logger:   logger,
		Registry: s.registry,
		Chat:     s.chat,
		Storage:  s.storage,
	}))
}

func (s *ServerSuite) TearDownTest() {
	s.ts.Close()
	s.chat.Close()
}

func (s *ServerSuite) wsURL() string {
	return "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws"
}

func (s *ServerSuite) dial() *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL(), nil)
	s.Require().NoError(err)
	return conn
}

func (s *ServerSuite) sendHello(conn *websocket.Conn, token, displayName string) string {
	env, err := protocol.NewEnvelope(protocol.KindHello, protocol.HelloPayload{
		Token:       token,
		DisplayName: displayName,
	})
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(env))

	reply := s.readEnvelope(conn)
	s.Require().Equal(protocol.KindHello, reply.Kind)
	var hello protocol.HelloPayload
	s.Require().NoError(reply.Decode(&hello))
	s.Require().NotEmpty(hello.Token)
	return hello.Token
}

func (s *ServerSuite) readEnvelope(conn *websocket.Conn) protocol.Envelope {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var env protocol.Envelope
	s.Require().NoError(conn.ReadJSON(&env))
	return env
}

func (s *ServerSuite) TestHealth() {
	resp, err := http.Get(s.ts.URL + "/api/v1/health")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *ServerSuite) TestHelloMintsToken() {
	conn := s.dial()
	defer conn.Close()

	token := s.sendHello(conn, "", "Alice")
	s.True(strings.HasPrefix(token, "p_"))

	_, ok := s.registry.Get(model.ParticipantID(token))
	s.True(ok)
}

func (s *ServerSuite) TestReconnectKeepsIdentity() {
	conn := s.dial()
	token := s.sendHello(conn, "", "Alice")
	conn.Close()

	s.Require().Eventually(func() bool {
		p, ok := s.registry.Get(model.ParticipantID(token))
		return ok && !p.Active()
	}, 5*time.Second, 10*time.Millisecond)

	conn2 := s.dial()
	defer conn2.Close()
	token2 := s.sendHello(conn2, token, "Alice")
	s.Equal(token, token2)

	p, ok := s.registry.Get(model.ParticipantID(token))
	s.Require().True(ok)
	s.True(p.Active())
}

func (s *ServerSuite) TestUnknownTokenMintsFreshIdentity() {
	conn := s.dial()
	defer conn.Close()

	token := s.sendHello(conn, "p_doesnotexist", "Alice")
	s.NotEqual("p_doesnotexist", token)
}

func (s *ServerSuite) TestChatRelayedToAllConnections() {
	alice := s.dial()
	defer alice.Close()
	s.sendHello(alice, "", "Alice")

	bob := s.dial()
	defer bob.Close()
	s.sendHello(bob, "", "Bob")

	env, err := protocol.NewEnvelope(protocol.KindChat, protocol.ChatPayload{Text: "hello there"})
	s.Require().NoError(err)
	s.Require().NoError(alice.WriteJSON(env))

	for _, conn := range []*websocket.Conn{alice, bob} {
		got := s.readEnvelope(conn)
		s.Require().Equal(protocol.KindChat, got.Kind)
		var msg protocol.ChatPayload
		s.Require().NoError(got.Decode(&msg))
		s.Equal("Alice", msg.From)
		s.Equal("hello there", msg.Text)
	}
}

func (s *ServerSuite) TestMessagesBeforeHelloDropped() {
	conn := s.dial()
	defer conn.Close()

	env, err := protocol.NewEnvelope(protocol.KindGuess, protocol.GuessPayload{Guess: model.Code{1, 2, 3, 4}})
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(env))

	// The connection stays usable and identity can still be established
	token := s.sendHello(conn, "", "Alice")
	s.NotEmpty(token)
}

func (s *ServerSuite) TestInboundEnvelopeReachesArmedWaiter() {
	conn := s.dial()
	defer conn.Close()
	token := s.sendHello(conn, "", "Alice")

	p, ok := s.registry.Get(model.ParticipantID(token))
	s.Require().True(ok)

	waiter, err := p.Await(protocol.KindGuess)
	s.Require().NoError(err)

	env, err := protocol.NewEnvelope(protocol.KindGuess, protocol.GuessPayload{Guess: model.Code{1, 2, 3, 4}})
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteJSON(env))

	select {
	case got := <-waiter:
		var payload protocol.GuessPayload
		s.Require().NoError(got.Decode(&payload))
		s.Equal(model.Code{1, 2, 3, 4}, payload.Guess)
	case <-time.After(5 * time.Second):
		s.FailNow("envelope never reached the waiter")
	}
}

func (s *ServerSuite) TestHistoryEndpoint() {
	summary := &model.GameSummary{
		ID:          "GAME1",
		Guesser:     "p_guesser",
		Scorer:      "p_scorer",
		Outcome:     model.OutcomeWon,
		Turns:       5,
		Setup:       model.Code{1, 2, 3, 4},
		CompletedAt: time.Now(),
	}
	s.Require().NoError(s.storage.SaveGameSummary(context.Background(), summary))

	resp, err := http.Get(s.ts.URL + "/api/v1/history")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var body HistoryResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Require().Len(body.Games, 1)
	s.Equal("GAME1", body.Games[0].ID)
	s.Equal(model.OutcomeWon, body.Games[0].Outcome)
	s.Equal(5, body.Games[0].Turns)
}

func (s *ServerSuite) TestHistoryRejectsBadLimit() {
	resp, err := http.Get(s.ts.URL + "/api/v1/history?limit=bogus")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
