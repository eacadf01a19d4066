package wer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		ref, hyp string
		rate     float64
		subs     int
		ins      int
		dels     int
		words    int
	}{
		{name: "identical", ref: "the cat sat on the mat", hyp: "the cat sat on the mat", words: 6},
		{name: "substitution", ref: "the cat sat on the mat", hyp: "the cat sit on the mat", rate: 1.0 / 6, subs: 1, words: 6},
		{name: "insertion", ref: "the cat sat", hyp: "the big cat sat", rate: 1.0 / 3, ins: 1, words: 3},
		{name: "deletion", ref: "ask not what your country can do for you", hyp: "ask what your country can do for you", rate: 1.0 / 9, dels: 1, words: 9},
		{name: "case and punctuation", ref: "And so, my fellow Americans!", hyp: " and so my fellow americans", words: 5},
		{name: "whitespace", ref: "  the   cat  sat  ", hyp: "the cat sat", words: 3},
		{name: "empty reference", ref: "", hyp: "some words"},
		{name: "empty hypothesis", ref: "some words", hyp: "", rate: 1, dels: 2, words: 2},
		{name: "all different", ref: "the cat sat", hyp: "a dog ran", rate: 1, subs: 3, words: 3},
		{name: "mixed", ref: "the quick brown fox jumps over the lazy dog", hyp: "a quick brown cat jumps the lazy dog", rate: 3.0 / 9, subs: 2, dels: 1, words: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.ref, tt.hyp)
			assert.InDelta(t, tt.rate, got.Rate, 1e-9)
			assert.Equal(t, tt.subs, got.Substitutions, "substitutions")
			assert.Equal(t, tt.ins, got.Insertions, "insertions")
			assert.Equal(t, tt.dels, got.Deletions, "deletions")
			assert.Equal(t, tt.words, got.Words)
			assert.Equal(t, tt.subs+tt.ins+tt.dels, got.Errors())
		})
	}
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"its", "a", "test"}, Words("It's a TEST."))
	assert.Empty(t, Words(" ,. "))
}
