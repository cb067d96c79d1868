package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeValidate(t *testing.T) {
	entity, err := EntityBody(map[string]string{"id": "t1"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		env     Envelope
		wantErr bool
	}{
		{
			name: "valid entity envelope",
			env:  Envelope{Payload: entity, Channel: "team-t1", RequestID: "r1"},
		},
		{
			name: "valid directive envelope",
			env: Envelope{
				Payload: DirectiveBody(Directive{ID: "u2", Field: "teamIds", Op: OpPull, Values: []string{"t1"}}),
				Channel: "user-u2",
			},
		},
		{
			name:    "missing channel",
			env:     Envelope{Payload: entity},
			wantErr: true,
		},
		{
			name:    "entity kind without entity",
			env:     Envelope{Payload: MessageBody{Kind: BodyKindEntity}, Channel: "team-t1"},
			wantErr: true,
		},
		{
			name:    "directive kind without directive",
			env:     Envelope{Payload: MessageBody{Kind: BodyKindDirective}, Channel: "user-u1"},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			env:     Envelope{Payload: MessageBody{Kind: "mystery"}, Channel: "team-t1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvelopeWireFormat(t *testing.T) {
	body := DirectiveBody(Directive{ID: "u2", Field: "teamIds", Op: OpPull, Values: []string{"t1"}})
	env := Envelope{Payload: body, Channel: "user-u2", RequestID: "req-1"}

	data, err := json.Marshal(&env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "user-u2", decoded.Channel)
	assert.Equal(t, "req-1", decoded.RequestID)
	assert.Equal(t, BodyKindDirective, decoded.Payload.Kind)
	require.NotNil(t, decoded.Payload.Directive)
	assert.Equal(t, OpPull, decoded.Payload.Directive.Op)
	assert.Equal(t, []string{"t1"}, decoded.Payload.Directive.Values)
}
