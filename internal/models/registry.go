package models

import (
	"context"
	"sync"
	"time"
)

// FileURLGenerator interface for generating signed URLs
type FileURLGenerator interface {
	GetSignedURL(ctx context.Context, path string, duration time.Duration) (string, error)
}

var (
	urlGenerator FileURLGenerator
	registryMu   sync.RWMutex
)

// RegisterFileURLGenerator sets the URL generator for files and returns the
// previously registered one.
func RegisterFileURLGenerator(generator FileURLGenerator) FileURLGenerator {
	registryMu.Lock()
	defer registryMu.Unlock()
	prev := urlGenerator
	urlGenerator = generator
	return prev
}
