package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/yashwanth8634/CampusXChange-Backend/internal/models"
	"github.com/yashwanth8634/CampusXChange-Backend/internal/storage"
)

// UserStore reads the users table maintained by the auth subsystem.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Find(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, name, mobile, COALESCE(profile_picture, ''), verified
		FROM users WHERE id = $1
	`
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Mobile, &user.ProfilePicture, &user.Verified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListingStore reads the listings table maintained by the product subsystem.
type ListingStore struct {
	db *sql.DB
}

func NewListingStore(db *sql.DB) *ListingStore {
	return &ListingStore{db: db}
}

func (s *ListingStore) Get(ctx context.Context, id string) (*models.Listing, error) {
	query := `
		SELECT id, title, price, status, seller_id
		FROM listings WHERE id = $1
	`
	listing := &models.Listing{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&listing.ID, &listing.Title, &listing.Price, &listing.Status, &listing.SellerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return listing, nil
}
