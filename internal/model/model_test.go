package model

import "testing"

func TestParseItemType(t *testing.T) {
	tests := []struct {
		in      string
		want    ItemType
		wantErr bool
	}{
		{in: "learningPath", want: TypeLearningPath},
		{in: "learningPaths", want: TypeLearningPath},
		{in: "course", want: TypeCourse},
		{in: "courses", want: TypeCourse},
		{in: "module", want: TypeModule},
		{in: "modules", want: TypeModule},
		{in: "appliedSkill", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseItemType(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseItemType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnitRefFetchURL(t *testing.T) {
	u := &UnitRef{NominalURL: "https://example.com/training/modules/m/1-intro"}
	if got := u.FetchURL(); got != u.NominalURL {
		t.Errorf("FetchURL = %q, want nominal", got)
	}

	u.ResolvedURL = "https://example.com/training/modules/m/1-introduction"
	if got := u.FetchURL(); got != u.ResolvedURL {
		t.Errorf("FetchURL = %q, want resolved", got)
	}
}

func TestJobClone(t *testing.T) {
	j := &Job{
		ID:     "job-1",
		Status: JobRunning,
		Items: []ItemOutcome{
			{
				ItemUID:     "learn.path-a",
				FailedUnits: []UnitFailure{{UnitUID: "u1", Reason: "unavailable"}},
				Images:      ImageSummary{Total: 2, Failed: []FailedImage{{SourceURL: "x", Class: FailNotFound}}},
			},
		},
	}

	c := j.Clone()
	c.Items[0].FailedUnits[0].Reason = "mutated"
	c.Items[0].Images.Failed[0].Class = FailForbidden

	if j.Items[0].FailedUnits[0].Reason != "unavailable" {
		t.Error("Clone shares FailedUnits backing array")
	}
	if j.Items[0].Images.Failed[0].Class != FailNotFound {
		t.Error("Clone shares Images.Failed backing array")
	}
}

func TestItemTreeUnitCount(t *testing.T) {
	tree := &ItemTree{
		Modules: []ModuleTree{
			{Units: []*UnitRef{{}, {}, {}}},
			{Units: []*UnitRef{{}}},
			{},
		},
	}
	if got := tree.UnitCount(); got != 4 {
		t.Errorf("UnitCount = %d, want 4", got)
	}
}
