package resolver

import "fmt"

// EmbedURL builds the degraded-mode iframe player URL for a title. The path
// shape /embed/{movie|tv}/{id}[/{season}/{episode}] is the third-party
// player's contract.
func (r *Resolver) EmbedURL(params *ResolveParams) string {
	if params.MediaType == MediaTypeTV {
		return fmt.Sprintf("%s/embed/tv/%s/%d/%d", r.cfg.EmbedBaseURL, params.SourceID, params.Season, params.Episode)
	}

	return fmt.Sprintf("%s/embed/movie/%s", r.cfg.EmbedBaseURL, params.SourceID)
}
