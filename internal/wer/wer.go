// Package wer scores a transcript against a reference by word error rate.
package wer

import (
	"strings"
	"unicode"
)

// Result is the word-level edit breakdown between a reference and a
// hypothesis transcript.
type Result struct {
	Rate          float64 // (Substitutions+Insertions+Deletions) / Words
	Substitutions int
	Insertions    int
	Deletions     int
	Words         int // reference word count
}

// Errors returns the total number of word edits.
func (r Result) Errors() int { return r.Substitutions + r.Insertions + r.Deletions }

type cell struct {
	subs, ins, dels int
}

func (c cell) cost() int { return c.subs + c.ins + c.dels }

// Compute aligns hypothesis against reference after lowercasing, dropping
// punctuation and collapsing whitespace. An empty reference scores zero.
func Compute(reference, hypothesis string) Result {
	ref := Words(reference)
	hyp := Words(hypothesis)
	if len(ref) == 0 {
		return Result{}
	}

	// prev and cur are rows of the alignment table over hyp.
	prev := make([]cell, len(hyp)+1)
	cur := make([]cell, len(hyp)+1)
	for j := range prev {
		prev[j] = cell{ins: j}
	}

	for i := 1; i <= len(ref); i++ {
		cur[0] = cell{dels: i}
		for j := 1; j <= len(hyp); j++ {
			if ref[i-1] == hyp[j-1] {
				cur[j] = prev[j-1]
				continue
			}
			best := prev[j-1]
			best.subs++
			if del := prev[j]; del.cost()+1 < best.cost() {
				best = del
				best.dels++
			}
			if ins := cur[j-1]; ins.cost()+1 < best.cost() {
				best = ins
				best.ins++
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}

	c := prev[len(hyp)]
	return Result{
		Rate:          float64(c.cost()) / float64(len(ref)),
		Substitutions: c.subs,
		Insertions:    c.ins,
		Deletions:     c.dels,
		Words:         len(ref),
	}
}

// Words normalizes s into the word sequence Compute aligns.
func Words(s string) []string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Fields(s)
}
