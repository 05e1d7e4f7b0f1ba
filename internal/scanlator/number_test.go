package scanlator

import "testing"

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Chapter 42", "42"},
		{"chapter 42", "42"},
		{"Ch. 42.5", "42.5"},
		{"Ch 7", "7"},
		{"Cap. 123", "123"},
		{"Capítulo 12", "12"},
		{"Episode 5", "5"},
		{"Ep. 9", "9"},
		{"Chapter 42: The 7 Swords", "42"},
		{"  Chapter 3  ", "3"},
		{"105.1", "105.1"},
		{"Extras", "0"},
		{"", "0"},
	}

	for _, tc := range cases {
		if got := ParseNumber(tc.in); got != tc.want {
			t.Errorf("ParseNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAsuraFirstChapter(t *testing.T) {
	a := &AsuraScans{}
	if got := a.ParseChapterNumber("First Chapter"); got != "1" {
		t.Errorf("ParseChapterNumber(First Chapter) = %q, want 1", got)
	}
	if got := a.ParseChapterNumber("Chapter 12"); got != "12" {
		t.Errorf("ParseChapterNumber(Chapter 12) = %q, want 12", got)
	}
}

func TestNumericValue(t *testing.T) {
	if numericValue("42.5") != 42.5 {
		t.Error("expected 42.5")
	}
	if numericValue("not-a-number") != 0 {
		t.Error("unparseable numbers must sort as 0")
	}
}
