package report

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Convention describes how question columns are named: a letter, the exercise digits,
// optional sub-part markup, then the separator and free text ("E1(a). Explain...").
type Convention struct {
	Letter    rune
	Separator string
	// Metadata columns are never questions, even when they match.
	Metadata []string
}

func DefaultConvention() Convention {
	return Convention{
		Letter:    'E',
		Separator: ".",
		Metadata:  []string{"Timestamp", "First name", "Last name", "Score", "Student number", "Email"},
	}
}

type Question struct {
	Header string // full column header
	Name   string // header up to the separator, e.g. "E1(a)"
}

type Exercise struct {
	Key       string // "E10"
	Number    string // "10", empty when malformed
	Questions []Question
}

// IsQuestion reports whether header follows the convention.
func (c Convention) IsQuestion(header string) bool {
	for _, m := range c.Metadata {
		if header == m {
			return false
		}
	}
	return strings.HasPrefix(header, string(c.Letter)) && strings.Contains(header, c.Separator)
}

// GroupExercises partitions question headers by exercise number. Column order is kept
// within an exercise; exercises are sorted numerically with malformed numbers last.
func (c Convention) GroupExercises(headers []string) []Exercise {
	var exercises []Exercise
	pos := make(map[string]int)
	for _, h := range headers {
		if !c.IsQuestion(h) {
			continue
		}
		name, _, _ := strings.Cut(h, c.Separator)
		key := c.exerciseKey(name)
		i, ok := pos[key]
		if !ok {
			i = len(exercises)
			pos[key] = i
			exercises = append(exercises, Exercise{Key: key, Number: strings.TrimPrefix(key, string(c.Letter))})
		}
		exercises[i].Questions = append(exercises[i].Questions, Question{Header: h, Name: name})
	}

	sort.SliceStable(exercises, func(i, j int) bool {
		ni, okI := exerciseNumber(exercises[i])
		nj, okJ := exerciseNumber(exercises[j])
		if okI != okJ {
			return okI
		}
		return okI && ni < nj
	})
	return exercises
}

// exerciseKey keeps the letter and the digit run right after it.
func (c Convention) exerciseKey(name string) string {
	rest := strings.TrimPrefix(name, string(c.Letter))
	end := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(rest)
	}
	return string(c.Letter) + rest[:end]
}

func exerciseNumber(e Exercise) (int, bool) {
	n, err := strconv.Atoi(e.Number)
	return n, err == nil
}
