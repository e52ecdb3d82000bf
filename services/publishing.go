package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// PublishingService publishes a finished document and returns its identifier
// and URL.
type PublishingService interface {
	Publish(ctx context.Context, title, content string) (id, url string, err error)
}

// PublishFunc adapts a function into a PublishingService.
type PublishFunc func(ctx context.Context, title, content string) (string, string, error)

func (f PublishFunc) Publish(ctx context.Context, title, content string) (string, string, error) {
	return f(ctx, title, content)
}

// PublishedDoc is one document held by the MemoryPublisher.
type PublishedDoc struct {
	ID      string
	Title   string
	Content string
}

// MemoryPublisher stores published documents in memory and mints UUID-based
// document IDs. It stands in for the document platform integration.
type MemoryPublisher struct {
	mutex sync.Mutex
	docs  []PublishedDoc
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, title, content string) (string, string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	id := uuid.NewString()
	p.docs = append(p.docs, PublishedDoc{ID: id, Title: title, Content: content})
	return id, fmt.Sprintf("https://docs.example.com/d/%s", id), nil
}

// Documents returns a copy of everything published so far.
func (p *MemoryPublisher) Documents() []PublishedDoc {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return append([]PublishedDoc(nil), p.docs...)
}
