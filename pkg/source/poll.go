package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mfeltner/lattice/pkg/cache"
	"github.com/mfeltner/lattice/pkg/graph"
	"github.com/mfeltner/lattice/pkg/observability"
)

const (
	defaultPollInterval = 10 * time.Second
	fetchAttempts       = 3
	fetchBackoff        = time.Second
	maxSnapshotBytes    = 32 << 20
)

// PollOptions configures a Poll source.
type PollOptions struct {
	// URL of an endpoint returning a snapshot as JSON.
	URL string

	// Interval between fetches. Zero means defaultPollInterval.
	Interval time.Duration

	// Client to fetch with. Nil means http.DefaultClient.
	Client *http.Client

	Logger *log.Logger
}

// ValidateAndSetDefaults checks options and fills in defaults.
func (o *PollOptions) ValidateAndSetDefaults() error {
	if o.URL == "" {
		return fmt.Errorf("poll source: URL is required")
	}
	if o.Interval <= 0 {
		o.Interval = defaultPollInterval
	}
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return nil
}

// Poll fetches snapshots from an HTTP endpoint on a fixed interval and
// pushes one downstream only when its content actually changed. Changed
// means different bytes: the raw body is hashed before decoding, so an
// endpoint that re-serves the same document costs one hash, not a decode
// and a full diff.
type Poll struct {
	opts   PollOptions
	ch     chan graph.Snapshot
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoll starts polling immediately and returns the running source.
func NewPoll(ctx context.Context, opts PollOptions) (*Poll, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Poll{
		opts:   opts,
		ch:     make(chan graph.Snapshot, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go p.run(ctx)
	return p, nil
}

// Snapshots implements Source.
func (p *Poll) Snapshots() <-chan graph.Snapshot { return p.ch }

// Close stops the poll loop and closes the snapshot channel.
func (p *Poll) Close() error {
	p.cancel()
	<-p.done
	return nil
}

func (p *Poll) run(ctx context.Context) {
	defer close(p.done)
	defer close(p.ch)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	var lastHash string
	for {
		if hash, ok := p.poll(ctx, lastHash); ok {
			lastHash = hash
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll runs one fetch-decode-deliver cycle. It returns the content hash
// and true when a snapshot was delivered downstream.
func (p *Poll) poll(ctx context.Context, lastHash string) (string, bool) {
	body, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", false
		}
		p.opts.Logger.Warn("snapshot fetch failed", "url", p.opts.URL, "error", err)
		observability.Source().OnSourceError(ctx, err)
		return "", false
	}

	hash := cache.Hash(body)
	if hash == lastHash {
		return "", false
	}

	snap, err := graph.UnmarshalSnapshot(body)
	if err != nil {
		p.opts.Logger.Warn("snapshot decode failed", "url", p.opts.URL, "error", err)
		observability.Source().OnSourceError(ctx, err)
		return "", false
	}

	observability.Source().OnSnapshot(ctx, len(snap.Nodes), len(snap.Edges))
	select {
	case p.ch <- snap:
	case <-ctx.Done():
		return "", false
	}
	return hash, true
}

func (p *Poll) fetch(ctx context.Context) ([]byte, error) {
	var body []byte
	err := retryFetch(ctx, fetchAttempts, fetchBackoff, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.URL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := p.opts.Client.Do(req)
		if err != nil {
			return Transient(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return Transient(fmt.Errorf("fetch %s: status %s", p.opts.URL, resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetch %s: status %s", p.opts.URL, resp.Status)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
		return err
	})
	return body, err
}
