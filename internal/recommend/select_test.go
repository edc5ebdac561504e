package recommend

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelshelf/reelshelf/internal/catalog"
)

func TestAggregateGenres(t *testing.T) {
	answers := map[string]string{"mood": "happy", "time": "short", "company": "family"}

	genres := AggregateGenres(DefaultQuestions(), answers)

	assert.Equal(t, []string{"comedy", "animation", "family", "thriller", "horror"}, genres)
	assert.Equal(t, "comedy animation family", BuildQuery(genres))
}

func TestAggregateGenres_SkipsUnknownAnswers(t *testing.T) {
	answers := map[string]string{"mood": "bored", "company": "date"}

	genres := AggregateGenres(DefaultQuestions(), answers)

	assert.Equal(t, []string{"romance", "comedy", "drama"}, genres)
}

func TestBuildQuery_Short(t *testing.T) {
	assert.Equal(t, "drama", BuildQuery([]string{"drama"}))
	assert.Equal(t, "", BuildQuery(nil))
}

// Every combination of answers yields at most three distinct tokens, all
// taken from the chosen options.
func TestBuildQuery_AllCombinations(t *testing.T) {
	qs := DefaultQuestions()

	for _, mood := range qs[0].Options {
		for _, length := range qs[1].Options {
			for _, company := range qs[2].Options {
				allowed := map[string]struct{}{}
				for _, o := range []Option{mood, length, company} {
					for _, g := range o.Genres {
						allowed[g] = struct{}{}
					}
				}

				answers := map[string]string{"mood": mood.ID, "time": length.ID, "company": company.ID}
				tokens := strings.Fields(BuildQuery(AggregateGenres(qs, answers)))

				require.NotEmpty(t, tokens)
				assert.LessOrEqual(t, len(tokens), MaxQueryGenres)
				seen := map[string]bool{}
				for _, tok := range tokens {
					assert.Contains(t, allowed, tok)
					assert.False(t, seen[tok], "duplicate token %q", tok)
					seen[tok] = true
				}
			}
		}
	}
}

func results(ids ...string) []catalog.Movie {
	out := make([]catalog.Movie, len(ids))
	for i, id := range ids {
		out[i] = catalog.Movie{ID: id, Title: "Movie " + id}
	}
	return out
}

func TestSelect_PrefersUnowned(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	owned := map[string]struct{}{"A": {}}
	picked := map[string]int{}

	for i := 0; i < 500; i++ {
		m, ok := Select(results("A", "B", "C"), owned, rng)
		require.True(t, ok)
		picked[m.ID]++
	}

	assert.Zero(t, picked["A"])
	assert.Positive(t, picked["B"])
	assert.Positive(t, picked["C"])
}

func TestSelect_FallsBackToOwned(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	owned := map[string]struct{}{"A": {}}

	for i := 0; i < 20; i++ {
		m, ok := Select(results("A"), owned, rng)
		require.True(t, ok)
		assert.Equal(t, "A", m.ID)
	}
}

func TestSelect_Empty(t *testing.T) {
	_, ok := Select(nil, nil, rand.New(rand.NewSource(1)))
	assert.False(t, ok)

	_, ok = Select([]catalog.Movie{}, map[string]struct{}{"A": {}}, rand.New(rand.NewSource(1)))
	assert.False(t, ok)
}

func TestSelect_DeterministicForSeed(t *testing.T) {
	pick := func() []string {
		rng := rand.New(rand.NewSource(42))
		var ids []string
		for i := 0; i < 10; i++ {
			m, _ := Select(results("1", "2", "3", "4", "5"), nil, rng)
			ids = append(ids, m.ID)
		}
		return ids
	}

	assert.Equal(t, pick(), pick())
}
