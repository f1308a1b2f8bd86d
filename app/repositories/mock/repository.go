// Package mock provides in-memory repositories for tests.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"campusblogs/app/apperr"
	"campusblogs/app/models"
	"campusblogs/app/repositories"
)

type PostRepository struct {
	posts  map[string]*models.Post
	nextID int
	clock  time.Time
	mutex  sync.RWMutex
}

type CommentRepository struct {
	comments map[string]*models.Comment
	nextID   int
	clock    time.Time
	mutex    sync.RWMutex
}

var (
	_ repositories.PostRepository    = (*PostRepository)(nil)
	_ repositories.CommentRepository = (*CommentRepository)(nil)
)

func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts:  make(map[string]*models.Post),
		nextID: 1,
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func NewCommentRepository() *CommentRepository {
	return &CommentRepository{
		comments: make(map[string]*models.Comment),
		nextID:   1,
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func notFound(op string) error {
	return apperr.NotFound(op, "record not found")
}

// PostRepository implementation
func (m *PostRepository) Create(_ context.Context, post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post.ID = fmt.Sprintf("post-%d", m.nextID)
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	post.CreatedAt = m.clock
	post.LikesCount = 0
	post.CommentsCount = 0
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) GetByID(_ context.Context, id string) (*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	post, exists := m.posts[id]
	if !exists {
		return nil, notFound("posts.GetByID")
	}
	cp := *post
	return &cp, nil
}

func (m *PostRepository) List(_ context.Context, limit int) ([]*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	posts := make([]*models.Post, 0, len(m.posts))
	for _, post := range m.posts {
		cp := *post
		posts = append(posts, &cp)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (m *PostRepository) ListByAuthor(_ context.Context, authorID string) ([]*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var posts []*models.Post
	for _, post := range m.posts {
		if post.AuthorID == authorID {
			cp := *post
			posts = append(posts, &cp)
		}
	}
	return posts, nil
}

func (m *PostRepository) Update(_ context.Context, id string, changes repositories.PostChanges) (*models.Post, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post, exists := m.posts[id]
	if !exists {
		return nil, notFound("posts.Update")
	}
	if changes.Title != nil {
		post.Title = *changes.Title
	}
	if changes.Content != nil {
		post.Content = *changes.Content
	}
	if changes.BannerURL != nil {
		post.BannerURL = *changes.BannerURL
	}
	m.clock = m.clock.Add(time.Second)
	post.UpdatedAt = m.clock
	cp := *post
	return &cp, nil
}

func (m *PostRepository) Delete(_ context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.posts[id]; !exists {
		return notFound("posts.Delete")
	}
	delete(m.posts, id)
	return nil
}

func (m *PostRepository) increment(id string, field func(*models.Post) *int64, delta int64) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post, exists := m.posts[id]
	if !exists {
		return 0, notFound("posts.Increment")
	}
	counter := field(post)
	*counter += delta
	if *counter < 0 {
		*counter = 0
	}
	return *counter, nil
}

func likesField(p *models.Post) *int64    { return &p.LikesCount }
func commentsField(p *models.Post) *int64 { return &p.CommentsCount }

func (m *PostRepository) IncrementLikes(_ context.Context, id string, delta int64) (int64, error) {
	return m.increment(id, likesField, delta)
}

func (m *PostRepository) IncrementComments(_ context.Context, id string, delta int64) (int64, error) {
	return m.increment(id, commentsField, delta)
}

func (m *PostRepository) SetCommentsCount(_ context.Context, id string, n int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post, exists := m.posts[id]
	if !exists {
		return notFound("posts.SetCommentsCount")
	}
	post.CommentsCount = max(n, 0)
	return nil
}

// CommentRepository implementation
func (m *CommentRepository) Create(_ context.Context, comment *models.Comment) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	comment.ID = fmt.Sprintf("comment-%d", m.nextID)
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	comment.CreatedAt = m.clock
	stored := *comment
	m.comments[comment.ID] = &stored
	return nil
}

func (m *CommentRepository) GetByID(_ context.Context, id string) (*models.Comment, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	comment, exists := m.comments[id]
	if !exists {
		return nil, notFound("comments.GetByID")
	}
	cp := *comment
	return &cp, nil
}

func (m *CommentRepository) ListByPost(_ context.Context, postID string) ([]*models.Comment, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var comments []*models.Comment
	for _, comment := range m.comments {
		if comment.PostID == postID {
			cp := *comment
			comments = append(comments, &cp)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

func (m *CommentRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	comments, err := m.ListByPost(ctx, postID)
	return int64(len(comments)), err
}

func (m *CommentRepository) UpdateBody(_ context.Context, id, body string) (*models.Comment, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	comment, exists := m.comments[id]
	if !exists {
		return nil, notFound("comments.UpdateBody")
	}
	comment.Body = body
	m.clock = m.clock.Add(time.Second)
	comment.UpdatedAt = m.clock
	cp := *comment
	return &cp, nil
}

func (m *CommentRepository) Delete(_ context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.comments[id]; !exists {
		return notFound("comments.Delete")
	}
	delete(m.comments, id)
	return nil
}
