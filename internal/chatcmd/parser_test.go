package chatcmd

import "testing"

func TestParseValidCommands(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"-flo", "flo"},
		{"-mute 2", "mute 2"},
		{"-stats Player1", "stats Player1"},
		{"-mutef", "mutef"},
		{"-a1b2 trailing args here", "a1b2 trailing args here"},
	}
	for _, tc := range cases {
		cmd, ok := Parse(tc.text)
		if !ok {
			t.Fatalf("Parse(%q): expected match", tc.text)
		}
		if cmd.Raw() != tc.want {
			t.Errorf("Parse(%q).Raw() = %q, want %q", tc.text, cmd.Raw(), tc.want)
		}
	}
}

func TestParseRejectsNonCommands(t *testing.T) {
	cases := []string{
		"",
		"-",
		"hello there",
		"-1abc",
		"--flo",
		"- flo",
	}
	for _, text := range cases {
		if _, ok := Parse(text); ok {
			t.Errorf("Parse(%q): expected no match", text)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	// For every valid command string "-<w>", parsing then retrieving Raw()
	// yields exactly "<w>" (plus any arguments, verbatim, before trimming).
	words := []string{"flo", "game", "muteall", "mute", "mutef2", "stats"}
	for _, w := range words {
		cmd, ok := Parse("-" + w)
		if !ok {
			t.Fatalf("Parse(%q): expected match", "-"+w)
		}
		if cmd.Raw() != w {
			t.Errorf("round-trip: Raw() = %q, want %q", cmd.Raw(), w)
		}
	}
}

func TestParseIsIdempotent(t *testing.T) {
	cmd1, ok1 := Parse("-mute 3")
	cmd2, ok2 := Parse("-mute 3")
	if ok1 != ok2 || cmd1.Raw() != cmd2.Raw() {
		t.Errorf("Parse is not idempotent: (%v,%q) vs (%v,%q)", ok1, cmd1.Raw(), ok2, cmd2.Raw())
	}
}
