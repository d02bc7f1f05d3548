package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

type fileSnapshot struct {
	Seen      []SeenItem          `json:"seen"`
	Posts     []Post              `json:"posts"`
	Summaries []cachedSummaryFile `json:"summaries,omitempty"`
}

type cachedSummaryFile struct {
	Hash      string    `json:"hash"`
	Summary   string    `json:"summary"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// FileStore keeps seen and posted items in a JSON file.
type FileStore struct {
	filePath  string
	ttl       time.Duration
	seen      map[string]SeenItem
	posts     map[string]Post
	summaries map[string]cachedSummaryFile
	now       func() time.Time
	mu        sync.RWMutex
}

// NewFileStore creates a store backed by filePath. Items older than ttl are
// dropped on load.
func NewFileStore(filePath string, ttl time.Duration) *FileStore {
	return &FileStore{
		filePath:  filePath,
		ttl:       ttl,
		seen:      make(map[string]SeenItem),
		posts:     make(map[string]Post),
		summaries: make(map[string]cachedSummaryFile),
		now:       time.Now,
	}
}

// Load loads existing records from file. A missing file is an empty store.
func (fs *FileStore) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to unmarshal store file: %w", err)
	}

	cutoff := fs.cutoff()
	for _, item := range snap.Seen {
		if item.SeenAt.After(cutoff) {
			fs.seen[item.URL] = item
		}
	}
	for _, p := range snap.Posts {
		if p.PostedAt.After(cutoff) {
			fs.posts[p.URL] = p
		}
	}
	for _, s := range snap.Summaries {
		if s.CreatedAt.After(cutoff) {
			fs.summaries[s.Hash] = s
		}
	}
	return nil
}

// Save writes the store atomically through a temp file.
func (fs *FileStore) Save() error {
	fs.mu.RLock()
	snap := fileSnapshot{
		Seen:      make([]SeenItem, 0, len(fs.seen)),
		Posts:     make([]Post, 0, len(fs.posts)),
		Summaries: make([]cachedSummaryFile, 0, len(fs.summaries)),
	}
	for _, item := range fs.seen {
		snap.Seen = append(snap.Seen, item)
	}
	for _, p := range fs.posts {
		snap.Posts = append(snap.Posts, p)
	}
	for _, s := range fs.summaries {
		snap.Summaries = append(snap.Summaries, s)
	}
	fs.mu.RUnlock()

	sort.Slice(snap.Seen, func(i, j int) bool { return snap.Seen[i].URL < snap.Seen[j].URL })
	sort.Slice(snap.Posts, func(i, j int) bool { return snap.Posts[i].PostedAt.After(snap.Posts[j].PostedAt) })
	sort.Slice(snap.Summaries, func(i, j int) bool { return snap.Summaries[i].Hash < snap.Summaries[j].Hash })

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp := fs.filePath + ".tmp"
	if dir := filepath.Dir(fs.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create store dir: %w", err)
		}
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, fs.filePath); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

func (fs *FileStore) cutoff() time.Time {
	if fs.ttl <= 0 {
		return time.Time{}
	}
	return fs.now().Add(-fs.ttl)
}

// Len is the number of seen records in memory.
func (fs *FileStore) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.seen)
}

func (fs *FileStore) SeenURLs(_ context.Context, urls []string) (map[string]bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make(map[string]bool)
	for _, u := range urls {
		if _, ok := fs.seen[u]; ok {
			out[u] = true
		}
	}
	return out, nil
}

func (fs *FileStore) RecordSeen(_ context.Context, items []SeenItem) error {
	if len(items) == 0 {
		return nil
	}
	fs.mu.Lock()
	now := fs.now()
	for _, item := range items {
		if _, ok := fs.seen[item.URL]; ok {
			continue
		}
		if item.SeenAt.IsZero() {
			item.SeenAt = now
		}
		fs.seen[item.URL] = item
	}
	fs.mu.Unlock()
	return fs.Save()
}

func (fs *FileStore) IsPosted(_ context.Context, url string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.posts[url]
	return ok, nil
}

func (fs *FileStore) RecordPost(_ context.Context, p Post) error {
	fs.mu.Lock()
	if p.PostedAt.IsZero() {
		p.PostedAt = fs.now()
	}
	fs.posts[p.URL] = p
	fs.mu.Unlock()
	return fs.Save()
}

func (fs *FileStore) RecentPosts(_ context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 10
	}
	fs.mu.RLock()
	posts := make([]Post, 0, len(fs.posts))
	for _, p := range fs.posts {
		posts = append(posts, p)
	}
	fs.mu.RUnlock()

	sort.Slice(posts, func(i, j int) bool { return posts[i].PostedAt.After(posts[j].PostedAt) })
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (fs *FileStore) Cleanup(_ context.Context, olderThan time.Time) (int64, error) {
	fs.mu.Lock()
	var removed int64
	for u, item := range fs.seen {
		if item.SeenAt.Before(olderThan) {
			delete(fs.seen, u)
			removed++
		}
	}
	for h, s := range fs.summaries {
		if s.CreatedAt.Before(olderThan) {
			delete(fs.summaries, h)
		}
	}
	fs.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}
	return removed, fs.Save()
}

func (fs *FileStore) GetSummary(_ context.Context, contentHash string) (string, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	s, ok := fs.summaries[contentHash]
	return s.Summary, ok, nil
}

func (fs *FileStore) PutSummary(_ context.Context, contentHash, summary, provider string) error {
	fs.mu.Lock()
	fs.summaries[contentHash] = cachedSummaryFile{
		Hash:      contentHash,
		Summary:   summary,
		Provider:  provider,
		CreatedAt: fs.now(),
	}
	fs.mu.Unlock()
	return fs.Save()
}

// GetStats returns record counts, matching SQLStore.GetStats.
func (fs *FileStore) GetStats(_ context.Context) (map[string]int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return map[string]int{
		"seen_items":   len(fs.seen),
		"posted_items": len(fs.posts),
		"summaries":    len(fs.summaries),
	}, nil
}

func (fs *FileStore) Close() error {
	return fs.Save()
}
