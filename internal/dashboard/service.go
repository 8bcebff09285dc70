package dashboard

import (
	"context"
	"time"

	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/repo"
)

// activeWindow is how recent a message must be for its sender to count as active
const activeWindow = 24 * time.Hour

type Stats struct {
	TotalUsers    int64 `json:"total_users"`
	TotalChats    int64 `json:"total_chats"`
	TotalMessages int64 `json:"total_messages"`
	ActiveUsers   int64 `json:"active_users"`
}

type Charts struct {
	MessagesByDay []Point `json:"messages_by_day"`
	UsersByDay    []Point `json:"users_by_day"`
	ChatsByHour   []Point `json:"chats_by_hour"`
}

// Snapshot is what the live dashboard stream pushes
type Snapshot struct {
	Stats       *Stats    `json:"stats"`
	Charts      *Charts   `json:"charts"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Service struct {
	stats repo.StatsRepoInterface
	loc   *time.Location
	now   func() time.Time
}

// NewService buckets charts in loc; nil means the server's local zone
func NewService(stats repo.StatsRepoInterface, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{stats: stats, loc: loc, now: time.Now}
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var (
		out Stats
		err error
	)
	if out.TotalUsers, err = s.stats.CountProfiles(); err != nil {
		return nil, err
	}
	if out.TotalChats, err = s.stats.CountChats(); err != nil {
		return nil, err
	}
	if out.TotalMessages, err = s.stats.CountMessages(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if out.ActiveUsers, err = s.stats.CountActiveUsers(s.now().Add(-activeWindow)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) Charts(ctx context.Context) (*Charts, error) {
	now := s.now()
	weekStart := bucketStarts(ByDay, now, s.loc)[0]
	dayStart := bucketStarts(ByHour, now, s.loc)[0]

	messages, err := s.stats.CreatedSince(libraries.TableMessages, weekStart)
	if err != nil {
		return nil, err
	}
	users, err := s.stats.CreatedSince(libraries.TableProfiles, weekStart)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chats, err := s.stats.CreatedSince(libraries.TableChats, dayStart)
	if err != nil {
		return nil, err
	}

	return &Charts{
		MessagesByDay: Bucket(messages, ByDay, now, s.loc),
		UsersByDay:    Bucket(users, ByDay, now, s.loc),
		ChatsByHour:   Bucket(chats, ByHour, now, s.loc),
	}, nil
}

func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	charts, err := s.Charts(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Stats: stats, Charts: charts, GeneratedAt: s.now()}, nil
}
