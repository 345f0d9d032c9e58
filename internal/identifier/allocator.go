// Package identifier allocates the human-readable identifiers residents see
// on certificate requests and incident reports.
package identifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RequestPrefix = "REQ"
	ReportPrefix  = "RPT"

	// DefaultMaxAttempts bounds the sequential allocation loop before the
	// timestamp fallback is tried.
	DefaultMaxAttempts = 100

	maxJitter = 10
)

var (
	// ErrCollision is returned by an InsertFunc when the candidate identifier
	// is already taken. It is the only error that triggers a retry.
	ErrCollision = errors.New("identifier already in use")

	// ErrExhausted means every attempt, including the fallback, collided.
	// Callers may retry the whole operation later.
	ErrExhausted = errors.New("unable to allocate a unique identifier")
)

// SequenceSource reports the highest sequence number already issued for a year.
// It returns 0 when the year has no requests yet.
type SequenceSource interface {
	MaxRequestSequence(ctx context.Context, year int) (int, error)
}

// InsertFunc persists a record under the given identifier. Uniqueness must be
// enforced by the store; a duplicate is reported as ErrCollision.
type InsertFunc func(ctx context.Context, id string) error

// Allocator issues REQ-YYYY-NNNN identifiers by inserting candidates under a
// uniqueness constraint until one sticks.
type Allocator struct {
	source      SequenceSource
	now         func() time.Time
	jitter      func() int
	maxAttempts int
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		a.now = now
	}
}

// WithJitter replaces the random 1..10 offset added on retries.
func WithJitter(jitter func() int) Option {
	return func(a *Allocator) {
		a.jitter = jitter
	}
}

// NewAllocator creates an allocator reading sequences from source.
func NewAllocator(source SequenceSource, opts ...Option) *Allocator {
	a := &Allocator{
		source:      source,
		now:         time.Now,
		jitter:      func() int { return rand.Intn(maxJitter) + 1 },
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AllocateRequestID finds an unused identifier for the current year and
// persists the record through insert. The returned identifier is the one
// the record was stored under.
func (a *Allocator) AllocateRequestID(ctx context.Context, insert InsertFunc) (string, error) {
	year := a.now().Year()

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		maxSeq, err := a.source.MaxRequestSequence(ctx, year)
		if err != nil {
			return "", fmt.Errorf("failed to read request sequence: %w", err)
		}

		candidate := maxSeq + 1
		if attempt > 0 {
			candidate += a.jitter()
		}

		id := FormatRequestID(year, candidate)
		err = insert(ctx, id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrCollision) {
			return "", err
		}
	}

	id := FormatRequestID(year, fallbackSequence(a.now()))
	switch err := insert(ctx, id); {
	case err == nil:
		return id, nil
	case errors.Is(err, ErrCollision):
		return "", ErrExhausted
	default:
		return "", err
	}
}

func fallbackSequence(now time.Time) int {
	return int(now.UnixMilli() % 10000)
}

// FormatRequestID renders REQ-<year>-<seq> with the sequence zero-padded to
// four digits. Larger sequences simply widen.
func FormatRequestID(year, seq int) string {
	return fmt.Sprintf("%s-%04d-%04d", RequestPrefix, year, seq)
}

// ParseRequestID splits a request identifier into its year and sequence.
func ParseRequestID(id string) (year, seq int, ok bool) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] != RequestPrefix || len(parts[1]) != 4 || len(parts[2]) < 4 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	seq, err = strconv.Atoi(parts[2])
	if err != nil || seq < 0 {
		return 0, 0, false
	}
	return year, seq, true
}

// NewReportID returns RPT- followed by eight uppercase hex characters taken
// from a random UUID.
func NewReportID() string {
	return ReportPrefix + "-" + strings.ToUpper(uuid.New().String()[:8])
}

// IsReportID reports whether id has the RPT-XXXXXXXX shape.
func IsReportID(id string) bool {
	hex, found := strings.CutPrefix(id, ReportPrefix+"-")
	if !found || len(hex) != 8 {
		return false
	}
	for _, c := range hex {
		if !strings.ContainsRune("0123456789ABCDEF", c) {
			return false
		}
	}
	return true
}
