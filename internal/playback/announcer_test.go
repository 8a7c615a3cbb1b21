package playback

import "testing"

func TestUploadAnnouncementKeepsMoveNumberOnce(t *testing.T) {
	a := NewCatalogAnnouncer(nil)
	seq := Sequence{Kind: KindUpload}
	cases := []struct {
		step Step
		want string
	}{
		{Step{Number: 1, Notation: "1. e4 e5", Commentary: "Center."}, "1. e4 e5. Center."},
		{Step{Number: 12, Notation: "12...Nf6"}, "12...Nf6."},
		{Step{Number: 3, Notation: "Nf3"}, "Move 3. Nf3."},
	}
	for _, c := range cases {
		if got := a.Step(seq, c.step); got != c.want {
			t.Fatalf("Step(%q)=%q want %q", c.step.Notation, got, c.want)
		}
	}
}

func TestHasMoveNumber(t *testing.T) {
	for in, want := range map[string]bool{
		"1. e4 e5": true,
		"12...Nf6": true,
		"e4":       false,
		"O-O":      false,
		"1":        false,
		"":         false,
	} {
		if HasMoveNumber(in) != want {
			t.Fatalf("HasMoveNumber(%q) != %v", in, want)
		}
	}
}
