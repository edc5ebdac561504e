package recommend

import (
	"math/rand"
	"strings"

	"github.com/reelshelf/reelshelf/internal/catalog"
)

// MaxQueryGenres caps how many genres go into the catalog query.
const MaxQueryGenres = 3

// AggregateGenres unions the genres of the chosen options. Questions are
// visited in order and each option's genres in their listed order; the
// first occurrence of a genre fixes its position. Unanswered questions and
// unknown option ids contribute nothing.
func AggregateGenres(questions []Question, answers map[string]string) []string {
	seen := make(map[string]struct{})
	var genres []string

	for _, q := range questions {
		optionID, ok := answers[q.ID]
		if !ok {
			continue
		}
		option, ok := q.Option(optionID)
		if !ok {
			continue
		}
		for _, g := range option.Genres {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			genres = append(genres, g)
		}
	}
	return genres
}

// BuildQuery joins the first MaxQueryGenres genres with spaces.
func BuildQuery(genres []string) string {
	if len(genres) > MaxQueryGenres {
		genres = genres[:MaxQueryGenres]
	}
	return strings.Join(genres, " ")
}

// Select picks one movie from results. Movies whose id is in owned are
// skipped when any other result exists; if every result is owned one of
// them is returned anyway. Empty results yield false.
func Select(results []catalog.Movie, owned map[string]struct{}, rng *rand.Rand) (catalog.Movie, bool) {
	if len(results) == 0 {
		return catalog.Movie{}, false
	}

	candidates := make([]catalog.Movie, 0, len(results))
	for _, m := range results {
		if _, have := owned[m.ID]; !have {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		candidates = results
	}

	return candidates[rng.Intn(len(candidates))], true
}
