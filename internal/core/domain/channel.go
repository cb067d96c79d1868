package domain

import "strings"

// ChannelKind identifies which kind of entity a channel belongs to.
type ChannelKind string

const (
	ChannelKindTeam   ChannelKind = "team"
	ChannelKindStream ChannelKind = "stream"
	ChannelKindUser   ChannelKind = "user"
)

// Channel is a named pub/sub topic. Channels are never persisted; they are
// derived deterministically from entity IDs. The distinct prefixes guarantee
// that two different (kind, id) pairs never collide.
type Channel string

// TeamChannel returns the channel carrying updates for a team and its members.
func TeamChannel(id TeamID) Channel {
	return Channel(string(ChannelKindTeam) + "-" + string(id))
}

// StreamChannel returns the channel carrying updates for a single stream.
func StreamChannel(id StreamID) Channel {
	return Channel(string(ChannelKindStream) + "-" + string(id))
}

// UserChannel returns a user's personal channel. Removal directives are
// published here so a removed user still hears about the removal after their
// team channel grant is gone.
func UserChannel(id UserID) Channel {
	return Channel(string(ChannelKindUser) + "-" + string(id))
}

// Kind reports which entity kind the channel was derived from.
func (c Channel) Kind() ChannelKind {
	switch {
	case strings.HasPrefix(string(c), "team-"):
		return ChannelKindTeam
	case strings.HasPrefix(string(c), "stream-"):
		return ChannelKindStream
	case strings.HasPrefix(string(c), "user-"):
		return ChannelKindUser
	default:
		return ""
	}
}

// EntityID returns the entity ID portion of the channel name.
func (c Channel) EntityID() string {
	if kind := c.Kind(); kind != "" {
		return strings.TrimPrefix(string(c), string(kind)+"-")
	}
	return ""
}

func (c Channel) String() string {
	return string(c)
}
