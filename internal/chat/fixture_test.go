package chat

import (
	"log/slog"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage/memory"
)

const testMaxContentLength = 200

type fixture struct {
	users         *memory.UserStore
	listings      *memory.ListingStore
	conversations *memory.ConversationStore
	messages      *memory.MessageStore
	directory     *Directory
	ledger        *Ledger
	service       *Service
}

// newFixture wires the chat core against in-memory stores seeded with the
// usual cast: Alice and Bob around Bob's Chem 101 textbook, plus Carol as
// an outsider.
func newFixture() *fixture {
	f := &fixture{
		users:         memory.NewUserStore(),
		listings:      memory.NewListingStore(),
		conversations: memory.NewConversationStore(),
		messages:      memory.NewMessageStore(),
	}

	f.users.Add(&models.User{ID: "alice", Name: "Alice", Mobile: "111", Verified: true})
	f.users.Add(&models.User{ID: "bob", Name: "Bob", Mobile: "222", Verified: true})
	f.users.Add(&models.User{ID: "carol", Name: "Carol", Mobile: "333", Verified: true})
	f.listings.Add(&models.Listing{ID: "chem101", Title: "Chem101 textbook", Price: 450, Status: "available", SellerID: "bob"})

	log := slog.Default()
	f.directory = NewDirectory(f.conversations, f.listings, log)
	f.ledger = NewLedger(f.messages, testMaxContentLength, log)
	f.service = NewService(f.directory, f.ledger, f.users, f.listings, log)
	return f
}
