package models

import "testing"

func TestStoryboardSortHierarchy(t *testing.T) {
	sb := &Storyboard{
		Scenes: []*StoryboardScene{
			{SceneNumber: 3, Shots: []*Shot{{ShotNumber: 2, UserPrompt: "b"}, {ShotNumber: 1, UserPrompt: "a"}}},
			{SceneNumber: 1},
			{SceneNumber: 2, Shots: []*Shot{{ShotNumber: 5, UserPrompt: "x"}, {ShotNumber: 5, UserPrompt: "y"}}},
		},
	}

	sb.SortHierarchy()

	for i, want := range []int{1, 2, 3} {
		if sb.Scenes[i].SceneNumber != want {
			t.Fatalf("scene %d: expected number %d, got %d", i, want, sb.Scenes[i].SceneNumber)
		}
	}
	if sb.Scenes[0].Shots == nil {
		t.Fatalf("expected empty shots slice, got nil")
	}
	if sb.Scenes[2].Shots[0].UserPrompt != "a" {
		t.Fatalf("expected shot 1 first, got %q", sb.Scenes[2].Shots[0].UserPrompt)
	}
	// duplicate shot numbers keep insertion order
	if sb.Scenes[1].Shots[0].UserPrompt != "x" || sb.Scenes[1].Shots[1].UserPrompt != "y" {
		t.Fatalf("expected stable order for equal shot numbers")
	}
}

func TestCanTransitionGeneration(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{GenerationPending, GenerationProcessing, true},
		{GenerationPending, GenerationFailed, true},
		{GenerationPending, GenerationCompleted, false},
		{GenerationProcessing, GenerationCompleted, true},
		{GenerationProcessing, GenerationFailed, true},
		{GenerationCompleted, GenerationProcessing, false},
		{GenerationFailed, GenerationCompleted, false},
		{GenerationProcessing, GenerationPending, false},
	}

	for _, tc := range tests {
		if got := CanTransitionGeneration(tc.from, tc.to); got != tc.want {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}
