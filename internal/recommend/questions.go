// Package recommend runs the movie recommendation quiz: a fixed sequence of
// multiple-choice questions whose answers are turned into a genre query
// against the catalog, from which one movie is picked.
package recommend

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidQuestions is returned when a question set fails validation.
var ErrInvalidQuestions = errors.New("invalid question set")

// Option is one answer to a question.
type Option struct {
	ID     string   `yaml:"id" json:"id"`
	Text   string   `yaml:"text" json:"text"`
	Genres []string `yaml:"genres" json:"genres"`
}

// Question is one step of the quiz. Order in the set is significant.
type Question struct {
	ID      string   `yaml:"id" json:"id"`
	Text    string   `yaml:"text" json:"text"`
	Options []Option `yaml:"options" json:"options"`
}

// Option returns the option with id.
func (q Question) Option(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

type questionFile struct {
	Questions []Question `yaml:"questions"`
}

// DefaultQuestions returns the built-in mood / time / company quiz.
func DefaultQuestions() []Question {
	return []Question{
		{
			ID:   "mood",
			Text: "What kind of mood are you in today?",
			Options: []Option{
				{ID: "happy", Text: "Cheerful and Upbeat", Genres: []string{"comedy", "animation", "family"}},
				{ID: "thoughtful", Text: "Thoughtful and Reflective", Genres: []string{"drama", "documentary"}},
				{ID: "excited", Text: "Looking for Excitement", Genres: []string{"action", "adventure", "thriller"}},
				{ID: "scared", Text: "Want to be Scared", Genres: []string{"horror", "thriller"}},
			},
		},
		{
			ID:   "time",
			Text: "How much time do you have?",
			Options: []Option{
				{ID: "short", Text: "Under 2 hours", Genres: []string{"comedy", "thriller", "horror"}},
				{ID: "medium", Text: "2-3 hours", Genres: []string{"drama", "action", "adventure"}},
				{ID: "long", Text: "I have all day", Genres: []string{"sci-fi", "fantasy"}},
			},
		},
		{
			ID:   "company",
			Text: "Who are you watching with?",
			Options: []Option{
				{ID: "alone", Text: "Just myself", Genres: []string{"thriller", "horror", "drama"}},
				{ID: "family", Text: "Family", Genres: []string{"family", "animation", "comedy"}},
				{ID: "friends", Text: "Friends", Genres: []string{"action", "comedy", "adventure"}},
				{ID: "date", Text: "Date night", Genres: []string{"romance", "comedy", "drama"}},
			},
		},
	}
}

// LoadQuestions reads a question set from a YAML file of the form
//
//	questions:
//	  - id: mood
//	    text: ...
//	    options:
//	      - {id: happy, text: ..., genres: [comedy]}
//
// An empty path returns DefaultQuestions.
func LoadQuestions(path string) ([]Question, error) {
	if path == "" {
		return DefaultQuestions(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions file: %w", err)
	}
	return ParseQuestions(data)
}

// ParseQuestions decodes and validates a YAML question set.
func ParseQuestions(data []byte) ([]Question, error) {
	var file questionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse questions: %w", err)
	}
	if err := ValidateQuestions(file.Questions); err != nil {
		return nil, err
	}
	return file.Questions, nil
}

// ValidateQuestions checks that the set is non-empty, ids are unique, and
// every option yields at least one genre.
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuestions)
	}

	seenQuestions := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		if strings.TrimSpace(q.ID) == "" {
			return fmt.Errorf("%w: question %d has no id", ErrInvalidQuestions, i)
		}
		if _, dup := seenQuestions[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidQuestions, q.ID)
		}
		seenQuestions[q.ID] = struct{}{}

		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %q has no options", ErrInvalidQuestions, q.ID)
		}

		seenOptions := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			if strings.TrimSpace(o.ID) == "" {
				return fmt.Errorf("%w: question %q has an option without id", ErrInvalidQuestions, q.ID)
			}
			if _, dup := seenOptions[o.ID]; dup {
				return fmt.Errorf("%w: duplicate option id %q in question %q", ErrInvalidQuestions, o.ID, q.ID)
			}
			seenOptions[o.ID] = struct{}{}

			if len(nonBlank(o.Genres)) == 0 {
				return fmt.Errorf("%w: option %q of question %q has no genres", ErrInvalidQuestions, o.ID, q.ID)
			}
		}
	}
	return nil
}

func nonBlank(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
