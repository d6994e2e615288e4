// Package analytics is the read-only dashboard side: counts from the event
// log plus channel-switch stats scanned out of the session store. Nothing
// here feeds back into the chat path.
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/threadline/stylist/internal/eventlog"
	"github.com/threadline/stylist/internal/session"
)

// SessionScanner iterates stored session snapshots. Both store drivers
// implement it.
type SessionScanner interface {
	ScanPrefix(ctx context.Context, prefix string, fn func(value []byte) error) error
}

type Service struct {
	repo    *eventlog.Repo
	scanner SessionScanner
}

func NewService(repo *eventlog.Repo, scanner SessionScanner) *Service {
	return &Service{repo: repo, scanner: scanner}
}

type Dashboard struct {
	ActiveUsers        int64                   `json:"active_users"`
	ConversationsToday int64                   `json:"conversations_today"`
	ChannelBreakdown   []eventlog.ChannelCount `json:"channel_breakdown"`
	Timestamp          time.Time               `json:"timestamp"`
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	since := time.Now().Add(-24 * time.Hour)

	conversations, err := s.repo.CountSince(ctx, since)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.CountDistinctUsersSince(ctx, since)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.repo.ChannelCountsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		ActiveUsers:        users,
		ConversationsToday: conversations,
		ChannelBreakdown:   breakdown,
		Timestamp:          time.Now().UTC(),
	}, nil
}

type Conversation struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}

// RecentConversations lists the newest logged turns, with user ids masked
// and content truncated for the monitoring view.
func (s *Service) RecentConversations(ctx context.Context, limit int) ([]Conversation, error) {
	evs, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Conversation, 0, len(evs))
	for _, ev := range evs {
		out = append(out, Conversation{
			UserID:    maskUserID(ev.UserID),
			Role:      ev.Role,
			Content:   truncate(ev.Content, 100),
			Channel:   ev.Channel,
			Timestamp: ev.CreatedAt,
		})
	}
	return out, nil
}

type SwitchEntry struct {
	ChannelsUsed []string `json:"channels_used"`
	SwitchCount  int      `json:"switch_count"`
}

type SwitchStats struct {
	TotalUsersWithSwitches int           `json:"total_users_with_switches"`
	AverageSwitches        float64       `json:"average_switches"`
	Data                   []SwitchEntry `json:"data"`
}

// ChannelSwitches scans the session store for users who moved between
// channels. Corrupt snapshots are skipped rather than failing the report.
func (s *Service) ChannelSwitches(ctx context.Context) (*SwitchStats, error) {
	var entries []SwitchEntry
	total := 0

	err := s.scanner.ScanPrefix(ctx, "session:", func(value []byte) error {
		var sess session.Session
		if err := json.Unmarshal(value, &sess); err != nil {
			return nil
		}
		if sess.ChannelSwitches > 0 {
			total += sess.ChannelSwitches
			entries = append(entries, SwitchEntry{
				ChannelsUsed: sess.ChannelsUsed,
				SwitchCount:  sess.ChannelSwitches,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats := &SwitchStats{TotalUsersWithSwitches: len(entries)}
	if len(entries) > 0 {
		stats.AverageSwitches = float64(total) / float64(len(entries))
	}
	if len(entries) > 10 {
		entries = entries[:10]
	}
	stats.Data = entries
	return stats, nil
}

func maskUserID(id string) string {
	if len(id) <= 4 {
		return "***"
	}
	return "***" + id[len(id)-4:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
