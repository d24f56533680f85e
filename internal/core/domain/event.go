package domain

import (
	"encoding/json"
	"fmt"
)

type EventKind string

const (
	EventCreated EventKind = "create"
	EventUpdated EventKind = "update"
	EventDeleted EventKind = "delete"
)

// LifecycleEvent est transitoire : créé après une mutation réussie,
// diffusé immédiatement, jamais stocké.
type LifecycleEvent struct {
	Kind   EventKind
	Post   *Post  // created / updated
	PostID string // deleted
}

func PostCreated(p *Post) LifecycleEvent { return LifecycleEvent{Kind: EventCreated, Post: p, PostID: p.ID} }
func PostUpdated(p *Post) LifecycleEvent { return LifecycleEvent{Kind: EventUpdated, Post: p, PostID: p.ID} }
func PostDeleted(id string) LifecycleEvent {
	return LifecycleEvent{Kind: EventDeleted, PostID: id}
}

// Format sur le fil (websocket, NATS, Redis) : {"action": "...", "post": {...} | "<id>"}
type eventWire struct {
	Action EventKind       `json:"action"`
	Post   json.RawMessage `json:"post"`
}

func (e LifecycleEvent) MarshalJSON() ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	if e.Kind == EventDeleted {
		payload, err = json.Marshal(e.PostID)
	} else {
		payload, err = json.Marshal(e.Post)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventWire{Action: e.Kind, Post: payload})
}

func (e *LifecycleEvent) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch w.Action {
	case EventDeleted:
		var id string
		if err := json.Unmarshal(w.Post, &id); err != nil {
			return fmt.Errorf("delete event payload: %w", err)
		}
		*e = PostDeleted(id)
	case EventCreated, EventUpdated:
		var p Post
		if err := json.Unmarshal(w.Post, &p); err != nil {
			return fmt.Errorf("%s event payload: %w", w.Action, err)
		}
		*e = LifecycleEvent{Kind: w.Action, Post: &p, PostID: p.ID}
	default:
		return fmt.Errorf("unknown event action %q", w.Action)
	}
	return nil
}
