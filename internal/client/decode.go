// Package client – wire decoding.
//
// Events arrive over the stream as JSON envelopes whose payload shape
// depends on the kind. Decode maps known kinds to their concrete payload
// types; unknown kinds decode to an envelope with a nil payload, which
// Store.Apply ignores, keeping old clients forward compatible with new
// event kinds.
package client

import (
	"encoding/json"

	"github.com/tbourn/go-recipe-backend/internal/events"
)

// wireEvent is the transport form of events.Event with a deferred payload.
type wireEvent struct {
	Kind     events.Kind     `json:"kind"`
	RecipeID string          `json:"recipe_id"`
	Version  int64           `json:"version"`
	Payload  json.RawMessage `json:"payload"`
}

// Decode parses a raw event envelope into an events.Event with a typed
// payload. Malformed JSON is an error; an unrecognized kind is not.
func Decode(raw []byte) (events.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return events.Event{}, err
	}
	ev := events.Event{Kind: w.Kind, RecipeID: w.RecipeID, Version: w.Version}
	if len(w.Payload) == 0 {
		return ev, nil
	}

	switch w.Kind {
	case events.KindCreated, events.KindUpdated, events.KindStatusChanged,
		events.KindSignatureToggled, events.KindPhotoUpdated, events.KindDeleted:
		var snap events.RecipeSnapshot
		if err := json.Unmarshal(w.Payload, &snap); err != nil {
			return events.Event{}, err
		}
		ev.Payload = snap
	case events.KindRated:
		var sum events.RatingSummary
		if err := json.Unmarshal(w.Payload, &sum); err != nil {
			return events.Event{}, err
		}
		ev.Payload = sum
	case events.KindProfileUpdated:
		var p events.ProfileSnapshot
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return events.Event{}, err
		}
		ev.Payload = p
	case events.KindHomepageUpdated:
		var h events.HomepageSnapshot
		if err := json.Unmarshal(w.Payload, &h); err != nil {
			return events.Event{}, err
		}
		ev.Payload = h
	}
	return ev, nil
}
