package session

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/engine"
)

// Script is a recorded gesture sequence replayed against a board.
type Script struct {
	// Name labels the script in output.
	Name string `yaml:"name"`

	// Viewport is the viewport width in pixels. Zero leaves the session's
	// width unchanged.
	Viewport float64 `yaml:"viewport,omitempty"`

	// Steps run in order. Their At offsets must not decrease.
	Steps []Step `yaml:"steps"`
}

// Step is one scripted input. Event names are the session event kinds
// plus the mutations move, reorder and delete.
type Step struct {
	At        int64   `yaml:"at"` // milliseconds since script start
	Event     string  `yaml:"event"`
	Item      string  `yaml:"item,omitempty"`
	Target    string  `yaml:"target,omitempty"`
	Bucket    string  `yaml:"bucket,omitempty"`
	Index     *int    `yaml:"index,omitempty"`
	From      int     `yaml:"from,omitempty"`
	To        int     `yaml:"to,omitempty"`
	Dir       string  `yaml:"dir,omitempty"`
	X         float64 `yaml:"x,omitempty"`
	Offset    float64 `yaml:"offset,omitempty"`
	PageWidth float64 `yaml:"page_width,omitempty"`
	Width     float64 `yaml:"width,omitempty"`
}

// LoadScript parses a YAML script, rejecting unknown fields.
func LoadScript(r io.Reader) (*Script, error) {
	var script Script
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&script); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("script has no steps")
	}
	return &script, nil
}

// Events converts the steps to session events timestamped from start.
func (sc *Script) Events(start time.Time) ([]Event, error) {
	events := make([]Event, 0, len(sc.Steps)+1)
	if sc.Viewport > 0 {
		events = append(events, Event{Kind: KindResize, At: start, Width: sc.Viewport})
	}

	var last int64
	for i, step := range sc.Steps {
		if step.At < last {
			return nil, fmt.Errorf("step %d: at %dms is before the previous step (%dms)", i+1, step.At, last)
		}
		last = step.At

		ev, err := step.event()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		ev.At = start.Add(time.Duration(step.At) * time.Millisecond)
		events = append(events, ev)
	}
	return events, nil
}

func (st Step) event() (Event, error) {
	switch Kind(st.Event) {
	case KindDragStart, KindPickUp:
		if st.Item == "" {
			return Event{}, fmt.Errorf("%s requires item", st.Event)
		}
		return Event{Kind: Kind(st.Event), ItemID: st.Item}, nil
	case KindDragOver, KindDragEnd:
		if st.Target == "" {
			return Event{}, fmt.Errorf("%s requires target", st.Event)
		}
		return Event{Kind: Kind(st.Event), Target: st.Target}, nil
	case KindDragCancel, KindDrop, KindTick:
		return Event{Kind: Kind(st.Event)}, nil
	case KindKeyMove:
		dir, err := engine.ParseDirection(st.Dir)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: KindKeyMove, Direction: dir}, nil
	case KindPointer:
		return Event{Kind: KindPointer, X: st.X}, nil
	case KindScroll:
		return Event{Kind: KindScroll, Offset: st.Offset, PageWidth: st.PageWidth}, nil
	case KindResize:
		return Event{Kind: KindResize, Width: st.Width}, nil
	}

	var m board.Mutation
	switch st.Event {
	case "move":
		index := board.Append
		if st.Index != nil {
			index = *st.Index
		}
		m = board.MoveItem{ItemID: st.Item, TargetBucketID: st.Bucket, TargetIndex: index}
	case "reorder":
		m = board.ReorderWithinBucket{BucketID: st.Bucket, FromIndex: st.From, ToIndex: st.To}
	case "delete":
		m = board.DeleteItem{ItemID: st.Item}
	default:
		return Event{}, fmt.Errorf("unknown event %q", st.Event)
	}
	return Event{Kind: KindMutate, Mutation: m}, nil
}
