package rtt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/traingraph/traingraph/pkg/cache"
)

// FetchError marks an upstream request that still failed after retries were
// exhausted. It carries the cache fingerprint so a missing service can be
// traced instead of being mistaken for a service that did not run.
type FetchError struct {
	Fingerprint string
	URL         string
	Err         error
}

func (err *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s (%s): %v", err.Fingerprint, err.URL, err.Err)
}

func (err *FetchError) Unwrap() error {
	return err.Err
}

// Fetcher retrieves search and service pages, consulting the cache store
// before touching the network. Uncached requests are spaced out by a
// politeness delay and retried with exponential backoff on transient
// failures.
type Fetcher struct {
	Store  cache.Store
	Client *http.Client

	UserAgent       string
	MaxRetries      uint64
	PolitenessDelay time.Duration

	// Refresh bypasses cache reads, for live queries where the cached page
	// for the current day may be stale.
	Refresh bool

	mutex       sync.Mutex
	lastRequest time.Time
}

func NewFetcher(store cache.Store) *Fetcher {
	return &Fetcher{
		Store: store,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent:       "curl/7.54.1",
		MaxRetries:      4,
		PolitenessDelay: 500 * time.Millisecond,
	}
}

// FetchListing returns the service detail paths for one search request.
func (fetcher *Fetcher) FetchListing(ctx context.Context, request ListingRequest) ([]string, error) {
	document, err := fetcher.document(ctx, request.URL(), request.Fingerprint())
	if err != nil {
		return nil, err
	}

	return ParseListing(document)
}

// FetchServiceDocument returns the raw service detail page for a path
// extracted from a listing.
func (fetcher *Fetcher) FetchServiceDocument(ctx context.Context, servicePath string) ([]byte, error) {
	return fetcher.document(ctx, BaseURL+servicePath, cache.ServiceFingerprint(servicePath))
}

func (fetcher *Fetcher) document(ctx context.Context, url string, fingerprint string) ([]byte, error) {
	if !fetcher.Refresh {
		if document, hit := fetcher.Store.Get(fingerprint); hit {
			log.Debug().Str("fingerprint", fingerprint).Msg("Cache hit")
			return document, nil
		}
	}

	var document []byte
	operation := func() error {
		fetcher.waitPoliteness()

		request, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		request.Header["user-agent"] = []string{fetcher.UserAgent}

		response, err := fetcher.Client.Do(request)
		if err != nil {
			return err
		}
		defer response.Body.Close()

		if response.StatusCode >= 500 {
			return fmt.Errorf("upstream returned %s", response.Status)
		}
		if response.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("upstream returned %s", response.Status))
		}

		document, err = io.ReadAll(response.Body)
		if err != nil {
			return err
		}
		if len(document) == 0 {
			return errors.New("empty response body")
		}

		return nil
	}

	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), fetcher.MaxRetries), ctx)
	if err := backoff.Retry(operation, retryPolicy); err != nil {
		return nil, &FetchError{Fingerprint: fingerprint, URL: url, Err: err}
	}

	if err := fetcher.Store.Put(fingerprint, document); err != nil {
		log.Error().Err(err).Str("fingerprint", fingerprint).Msg("Failed to write cache entry")
	}

	return document, nil
}

func (fetcher *Fetcher) waitPoliteness() {
	fetcher.mutex.Lock()
	defer fetcher.mutex.Unlock()

	wait := fetcher.PolitenessDelay - time.Since(fetcher.lastRequest)
	if wait > 0 {
		time.Sleep(wait)
	}

	fetcher.lastRequest = time.Now()
}
