// Package event defines the notifications broadcast to every live connection.
// On the wire each event is a JSON object tagged by "type".
package event

import (
	"encoding/json"
	"fmt"
	"treasure-hunt/domain"
	"treasure-hunt/errors"
)

type Type string

const (
	UserConnectedType    Type = "userConnected"
	NewChatMessageType   Type = "newChatMessage"
	TreasureClaimedType  Type = "treasureClaimed"
	NewTreasureAddedType Type = "newTreasureAdded"
)

// Event is one member of the broadcast union.
type Event interface {
	Type() Type
}

type UserConnected struct {
	Address string
}

type NewChatMessage struct {
	Message domain.ChatMessage
}

// TreasureClaimed travels with the identity under "discordId", the key clients read.
type TreasureClaimed struct {
	TreasureID uint64
	Claimant   string
	Identity   string
}

type NewTreasureAdded struct{}

func (UserConnected) Type() Type { return UserConnectedType }
func (NewChatMessage) Type() Type { return NewChatMessageType }
func (TreasureClaimed) Type() Type { return TreasureClaimedType }
func (NewTreasureAdded) Type() Type { return NewTreasureAddedType }

type userConnectedWire struct {
	Type    Type   `json:"type"`
	Address string `json:"address"`
}

type newChatMessageWire struct {
	Type    Type               `json:"type"`
	Message domain.ChatMessage `json:"message"`
}

type treasureClaimedWire struct {
	Type       Type   `json:"type"`
	TreasureID uint64 `json:"treasureId"`
	Claimant   string `json:"claimant"`
	Identity   string `json:"discordId"`
}

type envelope struct {
	Type Type `json:"type"`
}

func (e UserConnected) MarshalJSON() ([]byte, error) {
	return json.Marshal(userConnectedWire{Type: UserConnectedType, Address: e.Address})
}

func (e NewChatMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(newChatMessageWire{Type: NewChatMessageType, Message: e.Message})
}

func (e TreasureClaimed) MarshalJSON() ([]byte, error) {
	return json.Marshal(treasureClaimedWire{
		Type:       TreasureClaimedType,
		TreasureID: e.TreasureID,
		Claimant:   e.Claimant,
		Identity:   e.Identity,
	})
}

func (e NewTreasureAdded) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{Type: NewTreasureAddedType})
}

// Encode serializes an event into its wire form.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a wire payload back into a typed event.
func Decode(payload []byte) (Event, error) {
	var head envelope
	if err := json.Unmarshal(payload, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}

	switch head.Type {
	case UserConnectedType:
		var w userConnectedWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
		}
		return UserConnected{Address: w.Address}, nil
	case NewChatMessageType:
		var w newChatMessageWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
		}
		return NewChatMessage{Message: w.Message}, nil
	case TreasureClaimedType:
		var w treasureClaimedWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
		}
		return TreasureClaimed{TreasureID: w.TreasureID, Claimant: w.Claimant, Identity: w.Identity}, nil
	case NewTreasureAddedType:
		return NewTreasureAdded{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, head.Type)
	}
}
