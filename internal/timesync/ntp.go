package timesync

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"

	"github.com/sweeney/plant-light/internal/clock"
)

// Defaults for NTP synchronization.
const (
	DefaultServer       = "pool.ntp.org"
	DefaultSyncInterval = 24 * time.Hour
	DefaultQueryTimeout = 5 * time.Second

	// MinAttemptInterval limits how often a failing sync is retried.
	MinAttemptInterval clock.Millis = 60000
)

// QueryFunc returns the offset between the local clock and the server.
type QueryFunc func(server string) (time.Duration, error)

// QueryNTP returns a QueryFunc backed by an SNTP request.
func QueryNTP(timeout time.Duration) QueryFunc {
	return func(server string) (time.Duration, error) {
		resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: timeout})
		if err != nil {
			return 0, fmt.Errorf("query %s: %w", server, err)
		}
		if err := resp.Validate(); err != nil {
			return 0, fmt.Errorf("invalid response from %s: %w", server, err)
		}
		return resp.ClockOffset, nil
	}
}

// NTPConfig configures an NTPSource.
type NTPConfig struct {
	Server       string
	Location     *time.Location
	SyncInterval time.Duration

	// Query and Wall are injectable for tests. Nil selects QueryNTP and
	// time.Now.
	Query QueryFunc
	Wall  func() time.Time
}

// NTPSource keeps wall time corrected by periodic NTP queries.
// A failed resync keeps the previously synchronized time valid.
type NTPSource struct {
	server       string
	loc          *time.Location
	syncInterval clock.Millis
	query        QueryFunc
	wall         func() time.Time

	offset      time.Duration
	valid       bool
	attempted   bool
	lastAttempt clock.Millis
	lastSuccess clock.Millis
	syncCount   uint64

	// overdue latches once the sync interval has passed, so a resync that
	// keeps failing is retried even after the age counter wraps.
	overdue bool
}

// NewNTPSource creates an unsynchronized source.
func NewNTPSource(cfg NTPConfig) *NTPSource {
	s := &NTPSource{
		server:       cfg.Server,
		loc:          cfg.Location,
		syncInterval: clock.FromDuration(cfg.SyncInterval),
		query:        cfg.Query,
		wall:         cfg.Wall,
	}
	if s.server == "" {
		s.server = DefaultServer
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.syncInterval == 0 {
		s.syncInterval = clock.FromDuration(DefaultSyncInterval)
	}
	if s.query == nil {
		s.query = QueryNTP(DefaultQueryTimeout)
	}
	if s.wall == nil {
		s.wall = time.Now
	}
	return s
}

// Update resynchronizes if a sync is due and the last attempt was long
// enough ago. It returns the sync error, if any.
func (s *NTPSource) Update(now clock.Millis) error {
	if s.valid && clock.Elapsed(now, s.lastSuccess) >= s.syncInterval {
		s.overdue = true
	}
	if !s.NeedsSync(now) || !s.shouldAttempt(now) {
		return nil
	}
	return s.Sync(now)
}

// Sync queries the server immediately.
func (s *NTPSource) Sync(now clock.Millis) error {
	s.attempted = true
	s.lastAttempt = now

	offset, err := s.query(s.server)
	if err != nil {
		return fmt.Errorf("ntp sync: %w", err)
	}

	s.offset = offset
	s.valid = true
	s.overdue = false
	s.lastSuccess = now
	s.syncCount++
	return nil
}

func (s *NTPSource) shouldAttempt(now clock.Millis) bool {
	return !s.attempted || clock.Elapsed(now, s.lastAttempt) >= MinAttemptInterval
}

// NeedsSync reports whether the source has never synced or the last
// successful sync is older than the sync interval. Once a resync falls due it
// stays due until a sync succeeds.
func (s *NTPSource) NeedsSync(now clock.Millis) bool {
	return !s.valid || s.overdue || clock.Elapsed(now, s.lastSuccess) >= s.syncInterval
}

// IsValid reports whether at least one sync has succeeded.
func (s *NTPSource) IsValid() bool {
	return s.valid
}

// Now returns the corrected local time.
func (s *NTPSource) Now() (time.Time, error) {
	if !s.valid {
		return time.Time{}, ErrNoValidTime
	}
	return s.wall().Add(s.offset).In(s.loc), nil
}

// CurrentHour returns the hour of day in [0,23], or NoHour if not valid.
func (s *NTPSource) CurrentHour() int {
	t, err := s.Now()
	if err != nil {
		return NoHour
	}
	return t.Hour()
}

// Format returns the corrected time as "2006-01-02 15:04:05", or a
// placeholder if not valid.
func (s *NTPSource) Format() string {
	t, err := s.Now()
	if err != nil {
		return "no time available"
	}
	return t.Format("2006-01-02 15:04:05")
}

// SinceLastSync returns the time since the last successful sync, or
// NeverSynced.
func (s *NTPSource) SinceLastSync(now clock.Millis) clock.Millis {
	if !s.valid {
		return NeverSynced
	}
	return clock.Elapsed(now, s.lastSuccess)
}

// SyncCount returns the number of successful syncs since start.
func (s *NTPSource) SyncCount() uint64 {
	return s.syncCount
}

// Offset returns the last measured clock offset.
func (s *NTPSource) Offset() time.Duration {
	return s.offset
}

// Validity returns a snapshot of the source state.
func (s *NTPSource) Validity(now clock.Millis) Validity {
	return Validity{
		Valid:   s.valid,
		Hour:    s.CurrentHour(),
		SyncAge: s.SinceLastSync(now),
	}
}
