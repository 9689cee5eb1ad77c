// Package reactions implements like/dislike toggling for learning resources.
package reactions

import (
	"errors"

	"github.com/EmpoweredVote/academic-portal/internal/api"
)

// ErrInvalidType is returned for reaction types other than like or dislike.
var ErrInvalidType = errors.New("reaction type must be like or dislike")

// Counts is the per-resource tally.
type Counts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// State is one user's view of one resource: their current reaction ("" for
// none) and the totals.
type State struct {
	Mine   api.ReactionType `json:"mine,omitempty"`
	Counts Counts           `json:"counts"`
}

// Parse validates a reaction type coming from a request.
func Parse(s string) (api.ReactionType, error) {
	switch t := api.ReactionType(s); t {
	case api.ReactionLike, api.ReactionDislike:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

// Toggle applies give to s. Giving the current reaction again removes it;
// giving the other one switches to it.
func Toggle(s State, give api.ReactionType) State {
	next := s
	switch s.Mine {
	case give:
		next.Mine = ""
		next.Counts.add(give, -1)
	case "":
		next.Mine = give
		next.Counts.add(give, 1)
	default:
		next.Counts.add(s.Mine, -1)
		next.Mine = give
		next.Counts.add(give, 1)
	}
	return next
}

func (c *Counts) add(t api.ReactionType, delta int) {
	switch t {
	case api.ReactionLike:
		c.Likes += delta
		if c.Likes < 0 {
			c.Likes = 0
		}
	case api.ReactionDislike:
		c.Dislikes += delta
		if c.Dislikes < 0 {
			c.Dislikes = 0
		}
	}
}

// Tally builds userID's state from the full reaction list of a resource.
// If the backend ever returns more than one reaction for the user, the last
// one wins.
func Tally(list []api.Reaction, userID int) State {
	var s State
	for _, r := range list {
		s.Counts.add(r.Type, 1)
		if r.UserID == userID {
			s.Mine = r.Type
		}
	}
	return s
}
