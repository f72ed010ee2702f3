package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// NewFeed is the input to FeedRepository.Add.
type NewFeed struct {
	Name     string
	URL      string
	Category string
}

// FeedRepository stores each user's private feed list under the user's ID.
// There is no path from one user's ID to another user's feeds.
type FeedRepository struct {
	store Store
	now   func() time.Time
	mu    sync.Mutex
}

func NewFeedRepository(store Store) *FeedRepository {
	return &FeedRepository{store: store, now: time.Now}
}

// List returns the user's feeds in insertion order; never nil.
func (r *FeedRepository) List(userID string) ([]PrivateFeed, error) {
	feeds := []PrivateFeed{}
	err := getJSON(r.store, privateFeedsBucket, userID, &feeds)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return feeds, nil
}

func (r *FeedRepository) Add(userID string, in NewFeed) (*PrivateFeed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	feeds, err := r.List(userID)
	if err != nil {
		return nil, err
	}

	feed := PrivateFeed{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		URL:       in.URL,
		Category:  categoryOrDefault(in.Category),
		CreatedAt: r.now().UTC(),
	}

	if err := putJSON(r.store, privateFeedsBucket, userID, append(feeds, feed)); err != nil {
		return nil, fmt.Errorf("saving private feeds: %w", err)
	}
	return &feed, nil
}

// Remove deletes feedID from the user's list. It reports false, without
// error, when the user has no such feed.
func (r *FeedRepository) Remove(userID, feedID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	feeds, err := r.List(userID)
	if err != nil {
		return false, err
	}

	kept := lo.Reject(feeds, func(f PrivateFeed, _ int) bool { return f.ID == feedID })
	if len(kept) == len(feeds) {
		return false, nil
	}

	if err := putJSON(r.store, privateFeedsBucket, userID, kept); err != nil {
		return false, fmt.Errorf("saving private feeds: %w", err)
	}
	return true, nil
}

// Replace overwrites the user's list, used when loading seed data.
func (r *FeedRepository) Replace(userID string, feeds []PrivateFeed) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalized := lo.Map(feeds, func(f PrivateFeed, _ int) PrivateFeed {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		f.UserID = userID
		f.Category = categoryOrDefault(f.Category)
		return f
	})
	return putJSON(r.store, privateFeedsBucket, userID, normalized)
}

func categoryOrDefault(category string) string {
	if strings.TrimSpace(category) == "" {
		return DefaultCategory
	}
	return category
}
