package session

import (
	"strings"
	"time"
)

// MaxHistory bounds conversation_history. Appends beyond the bound drop the
// oldest entries.
const MaxHistory = 50

// Message is one conversation turn. Immutable once appended.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
	// Seq breaks ties when timestamps collide at clock resolution.
	Seq uint64 `json:"seq"`
}

// StyleProfile holds attributes derived from an uploaded photo. It is always
// overwritten wholesale, never merged.
type StyleProfile struct {
	Undertone        string   `json:"undertone"`
	BestColors       []string `json:"best_colors"`
	AvoidColors      []string `json:"avoid_colors"`
	StylePersonality string   `json:"style_personality"`
	Confidence       float64  `json:"confidence"`
}

type CartItem struct {
	Name    string    `json:"name"`
	Price   int       `json:"price"`
	AddedAt time.Time `json:"added_at"`
}

// Session is the per-user record of cross-channel state. One per user id;
// persisted as a complete snapshot on every write.
type Session struct {
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`

	LastChannel     string   `json:"last_channel"`
	ChannelsUsed    []string `json:"channels_used"`
	ChannelSwitches int      `json:"channel_switches"`

	ConversationHistory []Message  `json:"conversation_history"`
	Cart                []CartItem `json:"cart"`

	StyleProfile *StyleProfile `json:"style_profile,omitempty"`

	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`

	// NextSeq feeds Message.Seq.
	NextSeq uint64 `json:"next_seq"`
}

// New constructs the creation-state session for a first inbound message.
func New(userID, channel string, now time.Time) *Session {
	s := &Session{
		UserID:              userID,
		CreatedAt:           now,
		LastActive:          now,
		LastChannel:         channel,
		ChannelsUsed:        []string{channel},
		ChannelSwitches:     0,
		ConversationHistory: []Message{},
		Cart:                []CartItem{},
	}
	if strings.HasPrefix(userID, "+") {
		s.Phone = userID
	}
	return s
}

// Touch applies the channel bookkeeping for one inbound message: the switch
// counter increments exactly once when the channel differs from the prior
// last_channel, and last_channel/last_active are refreshed unconditionally.
func (s *Session) Touch(channel string, now time.Time) {
	if s.LastChannel != channel {
		s.ChannelSwitches++
		if !s.HasChannel(channel) {
			s.ChannelsUsed = append(s.ChannelsUsed, channel)
		}
	}
	s.LastChannel = channel
	s.LastActive = now
}

func (s *Session) HasChannel(channel string) bool {
	for _, c := range s.ChannelsUsed {
		if c == channel {
			return true
		}
	}
	return false
}

// Append adds one turn and truncates history to the most recent MaxHistory
// entries, dropping from the head.
func (s *Session) Append(role, content, channel string, now time.Time) Message {
	msg := Message{
		Role:      role,
		Content:   content,
		Channel:   channel,
		Timestamp: now,
		Seq:       s.NextSeq,
	}
	s.NextSeq++
	s.ConversationHistory = append(s.ConversationHistory, msg)
	if n := len(s.ConversationHistory); n > MaxHistory {
		s.ConversationHistory = s.ConversationHistory[n-MaxHistory:]
	}
	return msg
}

// Recent returns at most limit of the newest turns, oldest first.
func (s *Session) Recent(limit int) []Message {
	h := s.ConversationHistory
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]Message, len(h))
	copy(out, h)
	return out
}
