package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/pickup/internal/chat"
	"github.com/mauv0809/pickup/internal/metrics"
	"github.com/mauv0809/pickup/internal/presence"
	"github.com/mauv0809/pickup/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records every event sent to it.
type fakeConn struct {
	id       string
	identity Identity

	mu     sync.Mutex
	events []Event
	err    error
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{id: id, identity: Identity{UserID: userID, Name: "name-" + userID}}
}

func (f *fakeConn) ID() string         { return f.id }
func (f *fakeConn) Identity() Identity { return f.identity }

func (f *fakeConn) Send(ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeConn) ofType(eventType string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, ev := range f.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

// fakeMembership allows the users listed per room key.
type fakeMembership struct {
	rooms map[string][]string
	err   error
}

func (f *fakeMembership) IsMember(ctx context.Context, kind RoomKind, entityID, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	members, ok := f.rooms[roomKey(kind, entityID)]
	if !ok {
		return false, ErrRoomNotFound
	}
	for _, m := range members {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

// fakeMessages stores messages in memory.
type fakeMessages struct {
	mu      sync.Mutex
	created []chat.Message
	err     error
}

func (f *fakeMessages) Create(ctx context.Context, msg chat.Message) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return chat.Message{}, f.err
	}
	msg.ID = fmt.Sprintf("msg-%d", len(f.created)+1)
	msg.Timestamp = time.Unix(1700000000, 0).UTC()
	f.created = append(f.created, msg)
	return msg, nil
}

type coordinatorEnv struct {
	coord      *Coordinator
	membership *fakeMembership
	messages   *fakeMessages
	users      *user.Mock
	metr       *metrics.Mock
}

func setupCoordinator(t *testing.T) *coordinatorEnv {
	t.Helper()
	env := &coordinatorEnv{
		membership: &fakeMembership{rooms: map[string][]string{
			"match:m1":     {"alice", "bob"},
			"match:m2":     {"alice", "carol"},
			"community:c1": {"alice", "carol"},
		}},
		messages: &fakeMessages{},
		users:    user.NewMock(),
		metr:     metrics.NewMock(),
	}
	env.coord = NewCoordinator(presence.NewRegistry(), env.membership, env.messages, env.users, env.metr)
	return env
}

func decode[T any](t *testing.T, ev Event) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Payload, &v))
	return v
}

func TestPresence_TransitionsOnFirstAndLastConnection(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()
	observer := newFakeConn("observer", "zed")
	env.coord.Connect(ctx, observer)
	observer.reset()

	first := newFakeConn("a1", "alice")
	second := newFakeConn("a2", "alice")

	env.coord.Connect(ctx, first)
	env.coord.Connect(ctx, second)
	changes := observer.ofType(EventPresenceChanged)
	require.Len(t, changes, 1, "only the first connection broadcasts")
	assert.Equal(t, PresenceChange{UserID: "alice", IsOnline: true}, decode[PresenceChange](t, changes[0]))
	assert.True(t, env.coord.IsOnline("alice"))

	env.coord.Disconnect(ctx, first)
	assert.True(t, env.coord.IsOnline("alice"), "one connection still open")
	assert.Len(t, observer.ofType(EventPresenceChanged), 1)

	env.coord.Disconnect(ctx, second)
	assert.False(t, env.coord.IsOnline("alice"))
	changes = observer.ofType(EventPresenceChanged)
	require.Len(t, changes, 2)
	assert.Equal(t, PresenceChange{UserID: "alice", IsOnline: false}, decode[PresenceChange](t, changes[1]))

	// Disconnecting again is a no-op.
	env.coord.Disconnect(ctx, second)
	assert.Len(t, observer.ofType(EventPresenceChanged), 2)

	calls := env.users.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, user.SetOnlineCall{ID: "zed", Online: true}, calls[0])
	assert.Equal(t, user.SetOnlineCall{ID: "alice", Online: true}, calls[1])
	assert.Equal(t, user.SetOnlineCall{ID: "alice", Online: false}, calls[2])
	assert.Equal(t, 1, env.metr.Connections())
}

func TestPresence_PersistFailureIsNotFatal(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()
	env.users.SetOnlineFunc = func(ctx context.Context, id string, online bool) error {
		return errors.New("database is locked")
	}
	conn := newFakeConn("a1", "alice")

	env.coord.Connect(ctx, conn)
	assert.True(t, env.coord.IsOnline("alice"))
	assert.Len(t, conn.ofType(EventPresenceChanged), 1)
}

func TestPresence_AnonymousIsNotTracked(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()
	guest := &fakeConn{id: "g1", identity: Identity{Name: "Guest", Anonymous: true}}

	env.coord.Connect(ctx, guest)
	assert.Empty(t, env.coord.Online())
	assert.Empty(t, guest.ofType(EventPresenceChanged))

	err := env.coord.JoinRoom(ctx, guest, KindMatch, "m1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	env.coord.Disconnect(ctx, guest)
	assert.Empty(t, env.users.Calls())
}

func TestJoinRoom(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()
	alice := newFakeConn("a1", "alice")
	carol := newFakeConn("c1", "carol")
	env.coord.Connect(ctx, alice)
	env.coord.Connect(ctx, carol)

	require.NoError(t, env.coord.JoinRoom(ctx, alice, KindMatch, " m1 "))
	assert.Equal(t, []string{"a1"}, env.coord.Members(KindMatch, "m1"))

	snapshots := alice.ofType(EventPresenceSnapshot)
	require.Len(t, snapshots, 1)
	assert.Equal(t, []string{"alice", "carol"}, decode[PresenceSnapshot](t, snapshots[0]).UserIDs)

	testCases := []struct {
		name     string
		kind     RoomKind
		entityID string
		wantErr  error
	}{
		{name: "not a participant", kind: KindMatch, entityID: "m1", wantErr: ErrUnauthorized},
		{name: "missing entity", kind: KindMatch, entityID: "nope", wantErr: ErrRoomNotFound},
		{name: "blank id", kind: KindMatch, entityID: "  ", wantErr: ErrInvalid},
		{name: "unknown kind", kind: "team", entityID: "m1", wantErr: ErrInvalid},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.coord.JoinRoom(ctx, carol, tc.kind, tc.entityID)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
	assert.Equal(t, []string{"a1"}, env.coord.Members(KindMatch, "m1"), "failed joins leave the room untouched")
	assert.Empty(t, carol.ofType(EventPresenceSnapshot))
	assert.Equal(t, 1, env.metr.RoomJoinsRejected("unauthorized"))
	assert.Equal(t, 1, env.metr.RoomJoinsRejected("not_found"))
	assert.Equal(t, 2, env.metr.RoomJoinsRejected("invalid"))

	env.coord.Disconnect(ctx, alice)
	assert.Empty(t, env.coord.Members(KindMatch, "m1"))
}

func TestSendMessage_DeliveredToRoomOnly(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()
	alice := newFakeConn("a1", "alice")
	bob := newFakeConn("b1", "bob")
	carol := newFakeConn("c1", "carol")
	for _, c := range []*fakeConn{alice, bob, carol} {
		env.coord.Connect(ctx, c)
	}
	require.NoError(t, env.coord.JoinRoom(ctx, alice, KindMatch, "m1"))
	require.NoError(t, env.coord.JoinRoom(ctx, bob, KindMatch, "m1"))
	require.NoError(t, env.coord.JoinRoom(ctx, carol, KindMatch, "m2"))

	msg, err := env.coord.SendMessage(ctx, bob, KindMatch, "m1", "  kick off at six  ")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, "kick off at six", msg.Body)
	assert.Equal(t, "name-bob", msg.SenderName)

	for _, c := range []*fakeConn{alice, bob} {
		received := c.ofType(EventNewMessage)
		require.Len(t, received, 1, c.id)
		got := decode[chat.Message](t, received[0])
		assert.Equal(t, msg.ID, got.ID)
		assert.True(t, msg.Timestamp.Equal(got.Timestamp))
	}
	assert.Empty(t, carol.ofType(EventNewMessage), "other rooms of the same kind do not receive it")
	assert.Equal(t, 1, env.metr.MessagesSent("match"))
}

func TestSendMessage_WithoutJoiningStillAuthorized(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()
	alice := newFakeConn("a1", "alice")
	carol := newFakeConn("c1", "carol")
	env.coord.Connect(ctx, alice)
	env.coord.Connect(ctx, carol)
	require.NoError(t, env.coord.JoinRoom(ctx, alice, KindCommunity, "c1"))

	_, err := env.coord.SendMessage(ctx, carol, KindCommunity, "c1", "hello club")
	require.NoError(t, err)
	assert.Len(t, alice.ofType(EventNewMessage), 1)
	assert.Empty(t, carol.ofType(EventNewMessage), "carol never joined the room")
}

func TestSendMessage_Rejections(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()
	alice := newFakeConn("a1", "alice")
	carol := newFakeConn("c1", "carol")
	env.coord.Connect(ctx, alice)
	env.coord.Connect(ctx, carol)
	require.NoError(t, env.coord.JoinRoom(ctx, alice, KindMatch, "m1"))

	// A failed join leaves carol outside the room, and her send fails too.
	assert.ErrorIs(t, env.coord.JoinRoom(ctx, carol, KindMatch, "m1"), ErrUnauthorized)
	_, err := env.coord.SendMessage(ctx, carol, KindMatch, "m1", "let me in")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.coord.SendMessage(ctx, alice, KindMatch, "m1", "   ")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = env.coord.SendMessage(ctx, alice, KindMatch, "", "hi")
	assert.ErrorIs(t, err, ErrInvalid)

	env.messages.err = errors.New("disk full")
	_, err = env.coord.SendMessage(ctx, alice, KindMatch, "m1", "hi")
	assert.ErrorIs(t, err, ErrSendFailed)

	assert.Empty(t, env.messages.created)
	assert.Empty(t, alice.ofType(EventNewMessage))
	assert.True(t, env.coord.IsOnline("alice"), "failures leave presence untouched")
	assert.True(t, env.coord.IsOnline("carol"))
}

func TestSendMessage_Truncates(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()
	alice := newFakeConn("a1", "alice")
	env.coord.Connect(ctx, alice)

	msg, err := env.coord.SendMessage(ctx, alice, KindMatch, "m1", strings.Repeat("x", 800))
	require.NoError(t, err)
	assert.Len(t, msg.Body, chat.MaxBodyLength)
}

func TestHandle_Acks(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()
	alice := newFakeConn("a1", "alice")
	carol := newFakeConn("c1", "carol")
	env.coord.Connect(ctx, alice)
	env.coord.Connect(ctx, carol)

	env.coord.Handle(ctx, alice, Event{Type: EventJoinRoom, ID: "1", Payload: json.RawMessage(`{"kind":"match","entityId":"m1"}`)})
	env.coord.Handle(ctx, alice, Event{Type: EventSendMessage, ID: "2", Payload: json.RawMessage(`{"kind":"match","entityId":"m1","message":"hi"}`)})
	env.coord.Handle(ctx, carol, Event{Type: EventJoinRoom, ID: "3", Payload: json.RawMessage(`{"kind":"match","entityId":"m1"}`)})
	env.coord.Handle(ctx, carol, Event{Type: "dance", ID: "4"})
	env.coord.Handle(ctx, carol, Event{Type: EventSendMessage, ID: "5", Payload: json.RawMessage(`[1,2]`)})

	aliceAcks := alice.ofType(EventAck)
	require.Len(t, aliceAcks, 2)
	assert.Equal(t, "1", aliceAcks[0].ID)
	assert.Equal(t, Ack{OK: true}, decode[Ack](t, aliceAcks[0]))
	assert.Equal(t, "2", aliceAcks[1].ID)
	sent := decode[Ack](t, aliceAcks[1])
	assert.True(t, sent.OK)
	require.NotNil(t, sent.Message)
	assert.Equal(t, "hi", sent.Message.Body)

	carolAcks := carol.ofType(EventAck)
	require.Len(t, carolAcks, 3)
	assert.Equal(t, "3", carolAcks[0].ID)
	assert.Equal(t, Ack{OK: false, Error: ErrUnauthorized.Error()}, decode[Ack](t, carolAcks[0]))
	assert.Contains(t, decode[Ack](t, carolAcks[1]).Error, "unknown event type")
	assert.Contains(t, decode[Ack](t, carolAcks[2]).Error, "malformed payload")
}

func TestHandle_UnexpectedErrorsAreGeneric(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()
	env.membership.err = errors.New("connection reset by peer")
	alice := newFakeConn("a1", "alice")
	env.coord.Connect(ctx, alice)

	env.coord.Handle(ctx, alice, Event{Type: EventJoinRoom, ID: "1", Payload: json.RawMessage(`{"kind":"match","entityId":"m1"}`)})
	acks := alice.ofType(EventAck)
	require.Len(t, acks, 1)
	assert.Equal(t, Ack{OK: false, Error: ErrJoinFailed.Error()}, decode[Ack](t, acks[0]))
}

func TestSlowConnectionDoesNotBlockOthers(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()
	alice := newFakeConn("a1", "alice")
	bob := newFakeConn("b1", "bob")
	env.coord.Connect(ctx, alice)
	env.coord.Connect(ctx, bob)
	require.NoError(t, env.coord.JoinRoom(ctx, alice, KindMatch, "m1"))
	require.NoError(t, env.coord.JoinRoom(ctx, bob, KindMatch, "m1"))

	alice.err = ErrQueueFull
	_, err := env.coord.SendMessage(ctx, bob, KindMatch, "m1", "still here?")
	require.NoError(t, err)
	assert.Len(t, bob.ofType(EventNewMessage), 1)
}

func TestConcurrentConnections(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	const n = 50
	conns := make([]*fakeConn, n)
	for i := range conns {
		conns[i] = newFakeConn(fmt.Sprintf("conn-%d", i), fmt.Sprintf("user-%d", i%5))
	}

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *fakeConn) {
			defer wg.Done()
			env.coord.Connect(ctx, c)
		}(c)
	}
	wg.Wait()
	assert.Len(t, env.coord.Online(), 5)

	for _, c := range conns {
		wg.Add(1)
		go func(c *fakeConn) {
			defer wg.Done()
			env.coord.Disconnect(ctx, c)
		}(c)
	}
	wg.Wait()
	assert.Empty(t, env.coord.Online())

	online, offline := 0, 0
	for _, call := range env.users.Calls() {
		if call.Online {
			online++
		} else {
			offline++
		}
	}
	assert.Equal(t, 5, online)
	assert.Equal(t, 5, offline)
}
