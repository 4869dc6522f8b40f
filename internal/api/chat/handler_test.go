package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/auth"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/chat"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage/memory"
)

type apiEnv struct {
	router *mux.Router
	tokens *auth.TokenManager
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	log := slog.Default()

	users := memory.NewUserStore()
	listings := memory.NewListingStore()
	conversations := memory.NewConversationStore()
	messages := memory.NewMessageStore()

	users.Add(&models.User{ID: "alice", Name: "Alice", Mobile: "111", Verified: true})
	users.Add(&models.User{ID: "bob", Name: "Bob", Mobile: "222", Verified: true})
	users.Add(&models.User{ID: "carol", Name: "Carol", Mobile: "333", Verified: true})
	listings.Add(&models.Listing{ID: "chem101", Title: "Chem101 textbook", Price: 450, Status: "available", SellerID: "bob"})

	directory := chat.NewDirectory(conversations, listings, log)
	ledger := chat.NewLedger(messages, 2000, log)
	service := chat.NewService(directory, ledger, users, listings, log)

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	authn := auth.NewMiddleware(tokens, users, log)

	router := mux.NewRouter()
	RegisterRoutes(router, NewHandler(service, 50, log), authn.Require, log)
	return &apiEnv{router: router, tokens: tokens}
}

func (e *apiEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	if userID != "" {
		token, err := e.tokens.Generate(userID)
		require.NoError(t, err)
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	body := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func conversationID(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var view models.ConversationView
	require.NoError(t, json.Unmarshal(decodeBody(t, recorder)["conversation"], &view))
	return view.ID
}

func Test_Routes_Require_Authentication(t *testing.T) {
	req := require.New(t)
	env := newAPIEnv(t)

	recorder := env.do(t, http.MethodGet, "/api/chat/conversations", "", nil)
	req.Equal(http.StatusUnauthorized, recorder.Code)
}

func Test_StartConversation_Creates_Then_Returns_Existing(t *testing.T) {
	req := require.New(t)
	env := newAPIEnv(t)
	body := map[string]string{"listingId": "chem101", "sellerId": "bob"}

	first := env.do(t, http.MethodPost, "/api/chat/conversations", "alice", body)
	req.Equal(http.StatusCreated, first.Code)
	id := conversationID(t, first)

	second := env.do(t, http.MethodPost, "/api/chat/conversations", "alice", body)
	req.Equal(http.StatusOK, second.Code)
	req.Equal(id, conversationID(t, second))

	// Same pair from the other side lands on the same conversation.
	reversed := env.do(t, http.MethodPost, "/api/chat/conversations", "bob",
		map[string]string{"listingId": "chem101", "sellerId": "alice"})
	req.Equal(http.StatusOK, reversed.Code)
	req.Equal(id, conversationID(t, reversed))
}

func Test_StartConversation_Rejects_Bad_Input(t *testing.T) {
	req := require.New(t)
	env := newAPIEnv(t)

	recorder := env.do(t, http.MethodPost, "/api/chat/conversations", "alice",
		map[string]string{"listingId": "chem101"})
	req.Equal(http.StatusBadRequest, recorder.Code)

	recorder = env.do(t, http.MethodPost, "/api/chat/conversations", "alice",
		map[string]string{"listingId": "chem101", "sellerId": "alice"})
	req.Equal(http.StatusBadRequest, recorder.Code)

	recorder = env.do(t, http.MethodPost, "/api/chat/conversations", "alice",
		map[string]string{"listingId": "missing", "sellerId": "bob"})
	req.Equal(http.StatusNotFound, recorder.Code)
}

func Test_GetConversation_Enforces_Membership(t *testing.T) {
	req := require.New(t)
	env := newAPIEnv(t)

	created := env.do(t, http.MethodPost, "/api/chat/conversations", "alice",
		map[string]string{"listingId": "chem101", "sellerId": "bob"})
	id := conversationID(t, created)

	recorder := env.do(t, http.MethodGet, "/api/chat/conversations/"+id, "carol", nil)
	req.Equal(http.StatusForbidden, recorder.Code)

	recorder = env.do(t, http.MethodGet, "/api/chat/conversations/"+id, "bob", nil)
	req.Equal(http.StatusOK, recorder.Code)

	recorder = env.do(t, http.MethodGet, "/api/chat/conversations/unknown", "alice", nil)
	req.Equal(http.StatusNotFound, recorder.Code)
}

func Test_Message_Flow_Over_The_API(t *testing.T) {
	req := require.New(t)
	env := newAPIEnv(t)

	created := env.do(t, http.MethodPost, "/api/chat/conversations", "alice",
		map[string]string{"listingId": "chem101", "sellerId": "bob"})
	id := conversationID(t, created)

	sent := env.do(t, http.MethodPost, "/api/chat/messages", "bob",
		map[string]string{"conversationId": id, "content": "Is it still available?"})
	req.Equal(http.StatusCreated, sent.Code)

	unread := env.do(t, http.MethodGet, "/api/chat/unread-count", "alice", nil)
	req.Equal(http.StatusOK, unread.Code)
	req.JSONEq(`{"success":true,"unreadCount":1}`, unread.Body.String())

	fetched := env.do(t, http.MethodGet, fmt.Sprintf("/api/chat/conversations/%s/messages?page=1&limit=50", id), "alice", nil)
	req.Equal(http.StatusOK, fetched.Code)

	var msgs []models.Message
	body := decodeBody(t, fetched)
	req.NoError(json.Unmarshal(body["messages"], &msgs))
	req.Len(msgs, 1)
	req.Equal("Is it still available?", msgs[0].Content)

	var pagination models.Pagination
	req.NoError(json.Unmarshal(body["pagination"], &pagination))
	req.Equal(models.Pagination{Total: 1, Page: 1, Pages: 1, Limit: 50}, pagination)

	// Fetching the page cleared Alice's unread count.
	unread = env.do(t, http.MethodGet, "/api/chat/unread-count", "alice", nil)
	req.JSONEq(`{"success":true,"unreadCount":0}`, unread.Body.String())

	// A non-participant can neither send nor read.
	forbidden := env.do(t, http.MethodPost, "/api/chat/messages", "carol",
		map[string]string{"conversationId": id, "content": "hello"})
	req.Equal(http.StatusForbidden, forbidden.Code)

	forbidden = env.do(t, http.MethodGet, "/api/chat/conversations/"+id+"/messages", "carol", nil)
	req.Equal(http.StatusForbidden, forbidden.Code)
}

func Test_ListConversations_Orders_Most_Recent_First(t *testing.T) {
	req := require.New(t)
	env := newAPIEnv(t)

	withBob := env.do(t, http.MethodPost, "/api/chat/conversations", "alice",
		map[string]string{"listingId": "chem101", "sellerId": "bob"})
	bobConv := conversationID(t, withBob)

	withCarol := env.do(t, http.MethodPost, "/api/chat/conversations", "alice",
		map[string]string{"listingId": "chem101", "sellerId": "carol"})
	carolConv := conversationID(t, withCarol)

	// Activity in the older conversation moves it back to the top.
	sent := env.do(t, http.MethodPost, "/api/chat/messages", "bob",
		map[string]string{"conversationId": bobConv, "content": "ping"})
	req.Equal(http.StatusCreated, sent.Code)

	listed := env.do(t, http.MethodGet, "/api/chat/conversations", "alice", nil)
	req.Equal(http.StatusOK, listed.Code)

	var views []models.ConversationView
	req.NoError(json.Unmarshal(decodeBody(t, listed)["conversations"], &views))
	req.Len(views, 2)
	req.Equal(bobConv, views[0].ID)
	req.Equal(carolConv, views[1].ID)
	req.Equal("Bob", views[0].OtherParticipant.Name)
	req.NotNil(views[0].LastMessage)
	req.Equal("ping", views[0].LastMessage.Content)
}
