package controller

import (
	"net/http"
	"strconv"

	"github.com/cinesync/server/internal/resolver"
	"github.com/cinesync/server/pkg/rest"
)

type resolveQuery struct {
	ID      string `json:"id" validate:"required"`
	Type    string `json:"type" validate:"required,oneof=movie tv"`
	Season  int    `json:"season" validate:"omitempty,min=1"`
	Episode int    `json:"episode" validate:"omitempty,min=1"`
}

// resolve is the stream resolution surface. It always answers 200 for a
// well-formed query: either a playable URL or the embed fallback.
func (c controller) resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	season, _ := strconv.Atoi(q.Get("season"))
	episode, _ := strconv.Atoi(q.Get("episode"))

	query := resolveQuery{
		ID:      q.Get("id"),
		Type:    q.Get("type"),
		Season:  season,
		Episode: episode,
	}
	if validationErrs, ok := c.validate.Validate(query); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrs})
		return
	}
	if query.Type == "tv" && (query.Season == 0 || query.Episode == 0) {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": "season and episode are required for tv"})
		return
	}

	result := c.resolver.Resolve(r.Context(), &resolver.ResolveParams{
		SourceID:  query.ID,
		MediaType: resolver.MediaType(query.Type),
		Season:    query.Season,
		Episode:   query.Episode,
	})

	if result.Fallback {
		rest.WriteJSON(w, http.StatusOK, rest.Envelope{
			"fallback":  true,
			"embed_url": result.EmbedURL,
		})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"url": result.URL})
}
