package domain

import (
	"sort"
	"time"
)

type TeamID string
type StreamID string
type UserID string

// StreamType distinguishes the three kinds of stream.
type StreamType string

const (
	StreamTypeChannel StreamType = "channel" // named, invite-based membership
	StreamTypeDirect  StreamType = "direct"  // ad-hoc membership, no name
	StreamTypeFile    StreamType = "file"    // whole-team visibility, no member list
)

// ValidStreamType reports whether t is a recognized stream type.
func ValidStreamType(t StreamType) bool {
	return t == StreamTypeChannel || t == StreamTypeDirect || t == StreamTypeFile
}

// Team is a collection of users sharing streams.
type Team struct {
	ID        TeamID    `json:"id"`
	Name      string    `json:"name"`
	MemberIDs []UserID  `json:"memberIds"`
	AdminIDs  []UserID  `json:"adminIds,omitempty"`
	CreatorID UserID    `json:"creatorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasMember reports whether the user is a member of the team.
func (t *Team) HasMember(id UserID) bool {
	for _, m := range t.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}

// Stream is a conversation scope within a team.
type Stream struct {
	ID         StreamID   `json:"id"`
	TeamID     TeamID     `json:"teamId"`
	Type       StreamType `json:"type"`
	Name       string     `json:"name,omitempty"`
	RepoID     string     `json:"repoId,omitempty"`
	File       string     `json:"file,omitempty"`
	MemberIDs  []UserID   `json:"memberIds,omitempty"`
	CreatorID  UserID     `json:"creatorId"`
	NextSeqNum int        `json:"nextSeqNum"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// EnsureMember adds the user to the member list if absent and keeps the list
// sorted so identical memberships compare equal.
func (s *Stream) EnsureMember(id UserID) {
	for _, m := range s.MemberIDs {
		if m == id {
			return
		}
	}
	s.MemberIDs = append(s.MemberIDs, id)
	sort.Slice(s.MemberIDs, func(i, j int) bool { return s.MemberIDs[i] < s.MemberIDs[j] })
}

// User is a principal that can hold channel grants.
type User struct {
	ID       UserID   `json:"id"`
	Username string   `json:"username"`
	TeamIDs  []TeamID `json:"teamIds,omitempty"`
}

// StreamSummary is the cheap per-stream record returned by a bulk listing.
// Detail fetches fill in the rest later; a summary is enough for the UI to
// render unread state immediately.
type StreamSummary struct {
	ID          StreamID   `json:"id"`
	Name        string     `json:"name,omitempty"`
	Type        StreamType `json:"type"`
	Priority    *float64   `json:"priority,omitempty"`
	UnreadCount int        `json:"unreadCount,omitempty"`
}
