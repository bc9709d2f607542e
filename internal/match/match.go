// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match associates a meeting with at most one account using only the
// meeting title and participant emails.
//
// Strategies run in a fixed order and the first one that qualifies wins:
//
//  1. email: a participant email equals an account email (confidence 1.0)
//  2. titulo_substring_exact: the account name is inside the title (1.0)
//  3. titulo_substring_inverse: the account name contains a title of at
//     least five characters (0.95)
//  4. titulo_word_based: token overlap between title and account name,
//     scored and mapped onto 0.775-0.90
//
// A higher tier always reports a confidence at least as high as any lower
// tier can reach.
package match

import (
	"math"
	"strings"

	"github.com/pdiddy/meeting-matcher/internal/normalize"
	"github.com/pdiddy/meeting-matcher/pkg/types"
)

const (
	confidenceEmail          = 1.0
	confidenceSubstringExact = 1.0
	confidenceInverse        = 0.95

	// Word-overlap confidence is wordBase + wordSpan*score.
	wordBase = 0.65
	wordSpan = 0.25

	// MinOverlapScore is the lowest word-overlap score that qualifies.
	MinOverlapScore = 0.5

	minNameLength    = 3
	minInverseLength = 5
)

// candidate is an account with its comparable forms computed once per call.
type candidate struct {
	account types.Account
	name    string
	email   string
}

// input is one Match call's prepared state.
type input struct {
	title      string
	emails     []string
	candidates []candidate
}

// strategy is one tier of the cascade.
type strategy struct {
	method types.MatchMethod
	run    func(in input) (types.Account, float64, bool)
}

// Matcher runs the cascade. It holds no per-call state; one Matcher can
// serve any number of concurrent batches.
type Matcher struct {
	norm       *normalize.Normalizer
	strategies []strategy
}

// New returns a Matcher that tokenizes with norm. A nil norm uses the
// default stop words.
func New(norm *normalize.Normalizer) *Matcher {
	if norm == nil {
		norm = normalize.New()
	}
	m := &Matcher{norm: norm}
	m.strategies = []strategy{
		{types.MatchEmail, matchEmail},
		{types.MatchTitleSubstringExact, matchSubstringExact},
		{types.MatchTitleSubstringInverse, matchSubstringInverse},
		{types.MatchTitleWordOverlap, m.matchWordOverlap},
	}
	return m
}

// Match returns the account the meeting belongs to. The boolean is false
// when no strategy qualifies, which is an ordinary outcome. A meeting with
// an empty title never matches.
func (m *Matcher) Match(meeting types.Meeting, accounts []types.Account) (types.MatchResult, bool) {
	title := normalize.Fold(meeting.Title)
	if title == "" || len(accounts) == 0 {
		return types.MatchResult{}, false
	}

	in := input{
		title:      title,
		candidates: make([]candidate, len(accounts)),
	}
	for _, p := range meeting.Participants {
		if p.Email != "" {
			in.emails = append(in.emails, normalize.Lower(p.Email))
		}
	}
	for i, a := range accounts {
		in.candidates[i] = candidate{
			account: a,
			name:    normalize.Fold(a.Name),
			email:   normalize.Lower(a.Email),
		}
	}

	for _, s := range m.strategies {
		if acct, conf, ok := s.run(in); ok {
			return types.MatchResult{
				AccountID:  acct.ID,
				Method:     s.method,
				Confidence: conf,
			}, true
		}
	}
	return types.MatchResult{}, false
}

func matchEmail(in input) (types.Account, float64, bool) {
	if len(in.emails) == 0 {
		return types.Account{}, 0, false
	}
	for _, c := range in.candidates {
		if c.email == "" {
			continue
		}
		for _, e := range in.emails {
			if e == c.email {
				return c.account, confidenceEmail, true
			}
		}
	}
	return types.Account{}, 0, false
}

// matchSubstringExact only checks name-in-title. The reverse direction is
// matchSubstringInverse's, which requires a title of minInverseLength runes
// and reports the lower confidence; a title such as "Sync" inside
// "Sync Weekly Review" must not count as an exact match. Titles shorter than
// that fall through to word overlap.
func matchSubstringExact(in input) (types.Account, float64, bool) {
	for _, c := range in.candidates {
		if normalize.Len(c.name) < minNameLength {
			continue
		}
		if strings.Contains(in.title, c.name) {
			return c.account, confidenceSubstringExact, true
		}
	}
	return types.Account{}, 0, false
}

func matchSubstringInverse(in input) (types.Account, float64, bool) {
	if normalize.Len(in.title) < minInverseLength {
		return types.Account{}, 0, false
	}
	for _, c := range in.candidates {
		if normalize.Len(c.name) < minNameLength {
			continue
		}
		if strings.Contains(c.name, in.title) {
			return c.account, confidenceInverse, true
		}
	}
	return types.Account{}, 0, false
}

func (m *Matcher) matchWordOverlap(in input) (types.Account, float64, bool) {
	titleTokens := m.norm.Tokens(in.title)
	if len(titleTokens) == 0 {
		return types.Account{}, 0, false
	}

	var (
		best      types.Account
		bestScore float64
		found     bool
	)
	for _, c := range in.candidates {
		if c.name == "" {
			continue
		}
		nameTokens := m.norm.Tokens(c.name)
		if len(nameTokens) == 0 {
			continue
		}
		score := OverlapScore(titleTokens, nameTokens)
		// Strict > keeps the earliest account on ties.
		if score >= MinOverlapScore && score > bestScore {
			best, bestScore, found = c.account, score, true
		}
	}
	if !found {
		return types.Account{}, 0, false
	}
	return best, WordOverlapConfidence(bestScore), true
}

// OverlapScore counts the title tokens that contain, or are contained in,
// some name token, and divides by the longer token list. Each title token
// counts at most once even if it matches several name tokens.
func OverlapScore(titleTokens, nameTokens []string) float64 {
	denom := max(len(titleTokens), len(nameTokens))
	if denom == 0 {
		return 0
	}
	matches := 0
	for _, t := range titleTokens {
		for _, n := range nameTokens {
			if strings.Contains(t, n) || strings.Contains(n, t) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(denom)
}

// WordOverlapConfidence maps an overlap score onto a confidence rounded to
// two decimals.
func WordOverlapConfidence(score float64) float64 {
	return math.Round((wordBase+wordSpan*score)*100) / 100
}
