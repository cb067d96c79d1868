package domain

import (
	"encoding/json"
	"fmt"
)

// BodyKind discriminates the two payload shapes carried by an envelope.
type BodyKind string

const (
	BodyKindEntity    BodyKind = "entity"
	BodyKindDirective BodyKind = "directive"
)

// DirectiveOp is the operation a directive applies to a field.
type DirectiveOp string

const (
	OpPull DirectiveOp = "$pull"
	OpPush DirectiveOp = "$push"
	OpSet  DirectiveOp = "$set"
)

// Directive instructs a client to mutate one field of a local entity without
// shipping the whole entity, e.g. pull a team ID out of a removed user's
// teamIds.
type Directive struct {
	ID     string      `json:"id"`
	Field  string      `json:"field"`
	Op     DirectiveOp `json:"op"`
	Values []string    `json:"values"`
}

// MessageBody is the tagged union of payload shapes: either a full entity or
// a directive. Kind is the explicit discriminator; consumers must not sniff
// the payload shape.
type MessageBody struct {
	Kind      BodyKind        `json:"kind"`
	Entity    json.RawMessage `json:"entity,omitempty"`
	Directive *Directive      `json:"directive,omitempty"`
}

// EntityBody wraps an entity value as a message body.
func EntityBody(v interface{}) (MessageBody, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return MessageBody{}, fmt.Errorf("failed to marshal entity payload: %w", err)
	}
	return MessageBody{Kind: BodyKindEntity, Entity: data}, nil
}

// DirectiveBody wraps a directive as a message body.
func DirectiveBody(d Directive) MessageBody {
	return MessageBody{Kind: BodyKindDirective, Directive: &d}
}

// Envelope is the unit published to a channel. Delivery is at-least-once;
// consumers deduplicate on (RequestID, payload identity).
type Envelope struct {
	Payload   MessageBody `json:"payload"`
	Channel   string      `json:"channel"`
	RequestID string      `json:"requestId"`
}

// Validate checks structural consistency of the envelope.
func (e *Envelope) Validate() error {
	if e.Channel == "" {
		return fmt.Errorf("envelope missing channel")
	}
	switch e.Payload.Kind {
	case BodyKindEntity:
		if len(e.Payload.Entity) == 0 {
			return fmt.Errorf("entity envelope missing entity payload")
		}
	case BodyKindDirective:
		if e.Payload.Directive == nil {
			return fmt.Errorf("directive envelope missing directive payload")
		}
	default:
		return fmt.Errorf("unknown payload kind: %q", e.Payload.Kind)
	}
	return nil
}
