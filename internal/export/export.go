// Package export ships a generated corpus to systems outside the store.
package export

import (
	"context"
	"time"

	"corpuslab/atogen/internal/corpus"
	"corpuslab/atogen/internal/store"
)

// Sink receives a whole corpus.
type Sink interface {
	Write(ctx context.Context, c *corpus.Corpus) error
	Close() error
}

// Record kinds.
const (
	KindUser        = "user"
	KindProfile     = "profile"
	KindInteraction = "interaction"
)

// Manifest describes one exported run.
type Manifest struct {
	RunID        string    `json:"run_id"`
	Now          time.Time `json:"now"`
	Users        int       `json:"users"`
	Profiles     int       `json:"profiles"`
	Interactions int       `json:"interactions"`
	Sessions     int       `json:"sessions"`
	Victims      int       `json:"victims"`
}

func manifest(c *corpus.Corpus) Manifest {
	return Manifest{
		RunID:        c.RunID,
		Now:          c.Now,
		Users:        len(c.Users),
		Profiles:     len(c.Profiles),
		Interactions: len(c.Interactions),
		Sessions:     c.Sessions.Sessions(),
		Victims:      len(c.VictimPatterns),
	}
}

// interactions pairs every event with its session id, in corpus order.
func interactions(c *corpus.Corpus) []store.Interaction {
	out := make([]store.Interaction, len(c.Interactions))
	for i, ev := range c.Interactions {
		sid, _ := c.Sessions.Lookup(ev.ID)
		out[i] = store.Interaction{Interaction: ev, SessionID: sid}
	}
	return out
}
