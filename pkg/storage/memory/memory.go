// Package memory provides process-lifetime record stores guarded by mutexes.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	tourhub "github.com/perpetuallyhorni/tourhub/internal"
	"github.com/perpetuallyhorni/tourhub/pkg/storage"
)

var _ storage.Storer = (*Store)(nil)

// Store is an in-memory implementation of storage.Storer.
// Downloads and social data are guarded by separate locks.
type Store struct {
	clock tourhub.Clock
	ids   tourhub.IDGenerator

	dmu       sync.RWMutex
	downloads []tourhub.DownloadRecord

	smu      sync.RWMutex
	likes    map[likeKey]tourhub.Like
	comments map[string][]tourhub.Comment // postID -> comments in insertion order
}

type likeKey struct {
	postID string
	userID string
}

// New creates an empty store. A nil clock or id generator selects the real one.
func New(clock tourhub.Clock, ids tourhub.IDGenerator) *Store {
	if clock == nil {
		clock = tourhub.RealClock{}
	}
	if ids == nil {
		ids = tourhub.UUIDGenerator{}
	}
	return &Store{
		clock:    clock,
		ids:      ids,
		likes:    make(map[likeKey]tourhub.Like),
		comments: make(map[string][]tourhub.Comment),
	}
}

// All returns a copy of every record in insertion order.
func (s *Store) All(_ context.Context) ([]tourhub.DownloadRecord, error) {
	s.dmu.RLock()
	defer s.dmu.RUnlock()
	return slices.Clone(s.downloads), nil
}

// Get returns the record with the given id.
func (s *Store) Get(_ context.Context, id string) (tourhub.DownloadRecord, error) {
	s.dmu.RLock()
	defer s.dmu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.downloads[i], nil
	}
	return tourhub.DownloadRecord{}, fmt.Errorf("download %q: %w", id, tourhub.ErrNotFound)
}

// Add stores a new record with a generated id.
func (s *Store) Add(_ context.Context, in tourhub.NewDownload) (tourhub.DownloadRecord, error) {
	rec := tourhub.DownloadRecord{
		ID:          s.ids.New(),
		ImageURL:    in.ImageURL,
		DownloadURL: in.DownloadURL,
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   s.clock.Now(),
	}

	s.dmu.Lock()
	defer s.dmu.Unlock()
	s.downloads = append(s.downloads, rec)
	return rec, nil
}

// Remove deletes the record with the given id.
func (s *Store) Remove(_ context.Context, id string) error {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("download %q: %w", id, tourhub.ErrNotFound)
	}
	s.downloads = slices.Delete(s.downloads, i, i+1)
	return nil
}

// Seed inserts records as-is, replacing any record with the same id.
func (s *Store) Seed(_ context.Context, records ...tourhub.DownloadRecord) error {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	for _, rec := range records {
		if i := s.indexOf(rec.ID); i >= 0 {
			s.downloads[i] = rec
			continue
		}
		s.downloads = append(s.downloads, rec)
	}
	return nil
}

// indexOf must be called with dmu held.
func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.downloads, func(r tourhub.DownloadRecord) bool { return r.ID == id })
}

// AddLike records a like, returning the existing one for a repeated like.
func (s *Store) AddLike(_ context.Context, postID, userID string) (tourhub.Like, error) {
	key := likeKey{postID, userID}

	s.smu.Lock()
	defer s.smu.Unlock()
	if like, ok := s.likes[key]; ok {
		return like, nil
	}
	like := tourhub.Like{
		ID:        s.ids.New(),
		PostID:    postID,
		UserID:    userID,
		CreatedAt: s.clock.Now(),
	}
	s.likes[key] = like
	return like, nil
}

// RemoveLike deletes a like and reports whether it existed.
func (s *Store) RemoveLike(_ context.Context, postID, userID string) (bool, error) {
	key := likeKey{postID, userID}

	s.smu.Lock()
	defer s.smu.Unlock()
	if _, ok := s.likes[key]; !ok {
		return false, nil
	}
	delete(s.likes, key)
	return true, nil
}

func (s *Store) LikeCount(_ context.Context, postID string) (int, error) {
	s.smu.RLock()
	defer s.smu.RUnlock()
	n := 0
	for key := range s.likes {
		if key.postID == postID {
			n++
		}
	}
	return n, nil
}

func (s *Store) IsLiked(_ context.Context, postID, userID string) (bool, error) {
	s.smu.RLock()
	defer s.smu.RUnlock()
	_, ok := s.likes[likeKey{postID, userID}]
	return ok, nil
}

// AddComment appends a comment to a post.
func (s *Store) AddComment(_ context.Context, postID, userID, username, text string) (tourhub.Comment, error) {
	c := tourhub.Comment{
		ID:        s.ids.New(),
		PostID:    postID,
		UserID:    userID,
		Username:  username,
		Text:      text,
		CreatedAt: s.clock.Now(),
	}

	s.smu.Lock()
	defer s.smu.Unlock()
	s.comments[postID] = append(s.comments[postID], c)
	return c, nil
}

// Comments returns a post's comments, newest first. Equal timestamps keep
// the most recently added comment first.
func (s *Store) Comments(_ context.Context, postID string) ([]tourhub.Comment, error) {
	s.smu.RLock()
	out := slices.Clone(s.comments[postID])
	s.smu.RUnlock()

	slices.Reverse(out)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Close is a no-op; the data lives as long as the process.
func (s *Store) Close() error { return nil }
