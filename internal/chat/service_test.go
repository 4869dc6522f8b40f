package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/apperr"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
)

type recordedBroadcast struct {
	room string
	data []byte
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []recordedBroadcast
}

func (b *recordingBroadcaster) Broadcast(roomID string, data []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, recordedBroadcast{room: roomID, data: data})
	return 1
}

func (b *recordingBroadcaster) recorded() []recordedBroadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedBroadcast(nil), b.calls...)
}

func Test_Send_Persists_Then_Broadcasts_To_Conversation_Room(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture()
	broadcaster := &recordingBroadcaster{}
	f.service.AttachBroadcaster(broadcaster)

	conv, _, err := f.service.StartConversation(ctx, "alice", "bob", "chem101")
	req.NoError(err)

	msg, err := f.service.Send(ctx, conv.ID, "bob", "Is it still available?")
	req.NoError(err)

	calls := broadcaster.recorded()
	req.Len(calls, 1)
	req.Equal(conv.ID, calls[0].room)

	var event models.Event
	req.NoError(json.Unmarshal(calls[0].data, &event))
	req.Equal(models.EventNewMessage, event.Type)

	var pushed models.Message
	req.NoError(json.Unmarshal(event.Payload, &pushed))
	req.Equal(msg.ID, pushed.ID)
	req.Equal("Is it still available?", pushed.Content)
}

func Test_Send_Without_Broadcaster_Still_Succeeds(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture()

	conv, _, err := f.service.StartConversation(ctx, "alice", "bob", "chem101")
	req.NoError(err)

	msg, err := f.service.Send(ctx, conv.ID, "alice", "hello")
	req.NoError(err)
	req.NotEmpty(msg.ID)

	page, err := f.service.Page(ctx, conv.ID, "bob", 1, 50)
	req.NoError(err)
	req.Len(page.Messages, 1)
}

func Test_Send_By_Non_Participant_Never_Reaches_Ledger_Or_Room(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture()
	broadcaster := &recordingBroadcaster{}
	f.service.AttachBroadcaster(broadcaster)

	conv, _, err := f.service.StartConversation(ctx, "alice", "bob", "chem101")
	req.NoError(err)

	_, err = f.service.Send(ctx, conv.ID, "carol", "hi there")
	req.Error(err)
	req.Equal(apperr.CodeForbidden, apperr.CodeOf(err))
	req.Empty(broadcaster.recorded())

	page, err := f.service.Page(ctx, conv.ID, "alice", 1, 50)
	req.NoError(err)
	req.Empty(page.Messages)
}

func Test_Send_Updates_Last_Message_And_Activity(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture()

	conv, _, err := f.service.StartConversation(ctx, "alice", "bob", "chem101")
	req.NoError(err)

	msg, err := f.service.Send(ctx, conv.ID, "bob", "Is it still available?")
	req.NoError(err)

	views, err := f.service.ListConversations(ctx, "alice")
	req.NoError(err)
	req.Len(views, 1)
	req.NotNil(views[0].LastMessage)
	req.Equal(msg.ID, views[0].LastMessage.ID)
	req.Equal(msg.CreatedAt, views[0].LastActivity)
	req.Equal("Bob", views[0].OtherParticipant.Name)
	req.NotNil(views[0].Listing)
	req.Equal("Chem101 textbook", views[0].Listing.Title)
}

// The end-to-end exchange: Bob asks, Alice reads, Alice answers.
func Test_Textbook_Exchange_Scenario(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture()
	broadcaster := &recordingBroadcaster{}
	f.service.AttachBroadcaster(broadcaster)

	conv, created, err := f.service.StartConversation(ctx, "alice", "bob", "chem101")
	req.NoError(err)
	req.True(created)

	_, err = f.service.Send(ctx, conv.ID, "bob", "Is it still available?")
	req.NoError(err)

	aliceUnread, err := f.service.UnreadCount(ctx, "alice")
	req.NoError(err)
	req.Equal(1, aliceUnread)

	bobUnread, err := f.service.UnreadCount(ctx, "bob")
	req.NoError(err)
	req.Zero(bobUnread)

	page, err := f.service.Page(ctx, conv.ID, "alice", 1, 50)
	req.NoError(err)
	req.Len(page.Messages, 1)
	req.Equal("Is it still available?", page.Messages[0].Content)

	aliceUnread, err = f.service.UnreadCount(ctx, "alice")
	req.NoError(err)
	req.Zero(aliceUnread)

	_, err = f.service.Send(ctx, conv.ID, "alice", "Yes!")
	req.NoError(err)

	bobUnread, err = f.service.UnreadCount(ctx, "bob")
	req.NoError(err)
	req.Equal(1, bobUnread)

	req.Len(broadcaster.recorded(), 2)
}

func Test_Concurrent_Sends_To_One_Conversation_Broadcast_In_Append_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture()
	broadcaster := &recordingBroadcaster{}
	f.service.AttachBroadcaster(broadcaster)

	conv, _, err := f.service.StartConversation(ctx, "alice", "bob", "chem101")
	req.NoError(err)

	const sends = 20
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Send(ctx, conv.ID, "alice", "ping")
			req.NoError(err)
		}()
	}
	wg.Wait()

	page, err := f.service.Page(ctx, conv.ID, "bob", 1, 50)
	req.NoError(err)
	req.Len(page.Messages, sends)

	// Broadcast order matches the ledger's append order exactly.
	calls := broadcaster.recorded()
	req.Len(calls, sends)
	for i, call := range calls {
		var event models.Event
		req.NoError(json.Unmarshal(call.data, &event))
		var pushed models.Message
		req.NoError(json.Unmarshal(event.Payload, &pushed))
		req.Equal(page.Messages[i].ID, pushed.ID)
	}
}

func Test_UnreadCount_Aggregates_Across_Conversations_Without_Side_Effects(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture()
	f.listings.Add(&models.Listing{ID: "bike", Title: "City bike", Price: 3000, Status: "available", SellerID: "carol"})

	convBob, _, err := f.service.StartConversation(ctx, "alice", "bob", "chem101")
	req.NoError(err)
	convCarol, _, err := f.service.StartConversation(ctx, "alice", "carol", "bike")
	req.NoError(err)

	_, err = f.service.Send(ctx, convBob.ID, "bob", "one")
	req.NoError(err)
	_, err = f.service.Send(ctx, convCarol.ID, "carol", "two")
	req.NoError(err)
	_, err = f.service.Send(ctx, convCarol.ID, "carol", "three")
	req.NoError(err)

	count, err := f.service.UnreadCount(ctx, "alice")
	req.NoError(err)
	req.Equal(3, count)

	// Counting twice changes nothing; only paging marks read.
	count, err = f.service.UnreadCount(ctx, "alice")
	req.NoError(err)
	req.Equal(3, count)
}
