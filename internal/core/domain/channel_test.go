package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelConstructors(t *testing.T) {
	tests := []struct {
		name    string
		channel Channel
		want    string
		kind    ChannelKind
		entity  string
	}{
		{"team", TeamChannel("t1"), "team-t1", ChannelKindTeam, "t1"},
		{"stream", StreamChannel("s1"), "stream-s1", ChannelKindStream, "s1"},
		{"user", UserChannel("u1"), "user-u1", ChannelKindUser, "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.channel.String())
			assert.Equal(t, tt.kind, tt.channel.Kind())
			assert.Equal(t, tt.entity, tt.channel.EntityID())
		})
	}
}

func TestChannelNamesAreInjective(t *testing.T) {
	channels := []Channel{
		TeamChannel("x"),
		StreamChannel("x"),
		UserChannel("x"),
		TeamChannel("y"),
		// an ID that embeds another prefix must not collide
		TeamChannel("stream-x"),
		StreamChannel("team-x"),
	}

	seen := make(map[string]Channel)
	for _, c := range channels {
		prev, dup := seen[c.String()]
		assert.False(t, dup, "channel name %q produced by both %#v and %#v", c.String(), prev, c)
		seen[c.String()] = c
	}
}

func TestChannelNameIsStable(t *testing.T) {
	assert.Equal(t, TeamChannel("t1").String(), TeamChannel("t1").String())
}
