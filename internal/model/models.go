// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the chat models exposed by the duckchat backend and
// the fuzzy resolution used to pick one from user input.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// Model is the wire identifier the backend expects in a chat request.
type Model string

// Models accepted by the backend.
const (
	GPT4oMini Model = "gpt-4o-mini"
	Claude3   Model = "claude-3-haiku-20240307"
	Llama3    Model = "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo"
	Mixtral   Model = "mistralai/Mixtral-8x7B-Instruct-v0.1"
)

// Default returns the model used when neither flag nor config names one.
func Default() Model {
	return GPT4oMini
}

// Name returns the short human-facing name for a model.
func (m Model) Name() string {
	switch m {
	case GPT4oMini:
		return "gpt4o-mini"
	case Claude3:
		return "claude3"
	case Llama3:
		return "llama3"
	case Mixtral:
		return "mixtral"
	default:
		return string(m)
	}
}

// All returns every supported model in display order.
func All() []Model {
	return []Model{GPT4oMini, Claude3, Llama3, Mixtral}
}

// aliases maps every accepted spelling to a model. Resolution scores the
// input against these keys, so common shorthands resolve without fuzziness.
var aliases = map[string]Model{
	"gpt4o-mini": GPT4oMini,
	"gpt4o":      GPT4oMini,
	"gpt4":       GPT4oMini,
	"claude3":    Claude3,
	"claude":     Claude3,
	"llama3":     Llama3,
	"llama":      Llama3,
	"mixtral":    Mixtral,
}

// RankedMatch pairs a model with its similarity score against some input.
type RankedMatch struct {
	Model Model
	Score float64
}

// Rank scores input against every known alias and returns the best score per
// model, sorted descending. It is a pure function of its input.
func Rank(input string) []RankedMatch {
	needle := strings.ToLower(strings.TrimSpace(input))

	best := make(map[Model]float64)
	for alias, m := range aliases {
		score := jaro(needle, alias)
		if score > best[m] {
			best[m] = score
		}
	}

	ranked := make([]RankedMatch, 0, len(best))
	for m, score := range best {
		ranked = append(ranked, RankedMatch{Model: m, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Model.Name() < ranked[j].Model.Name()
	})
	return ranked
}

// Resolution thresholds: the best match must be close enough on its own and
// clearly separated from the runner-up, otherwise the input is ambiguous.
const (
	minScore      = 0.8
	minSeparation = 0.1
)

// Resolve maps user input to a model, tolerating typos. It fails when no
// alias is similar enough or when two models are too close to call.
func Resolve(input string) (Model, error) {
	ranked := Rank(input)
	if len(ranked) == 0 {
		return "", fmt.Errorf("unknown model %q", input)
	}

	top := ranked[0]
	if top.Score <= minScore {
		return "", fmt.Errorf("unknown model %q (closest: %s)", input, top.Model.Name())
	}
	if len(ranked) > 1 && top.Score-ranked[1].Score < minSeparation {
		return "", fmt.Errorf("ambiguous model %q (could be %s or %s)",
			input, top.Model.Name(), ranked[1].Model.Name())
	}
	return top.Model, nil
}

// jaro computes the Jaro similarity of two strings in [0, 1].
func jaro(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))

	matches := 0
	for i := 0; i < len(a); i++ {
		lo := max(0, i-window)
		hi := min(len(b)-1, i+window)
		for j := lo; j <= hi; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0.0
	}

	// Count transpositions among matched characters.
	transpositions := 0
	j := 0
	for i := 0; i < len(a); i++ {
		if !aMatched[i] {
			continue
		}
		for !bMatched[j] {
			j++
		}
		if a[i] != b[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	t := float64(transpositions) / 2.0
	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3.0
}
