package hw

import "testing"

func FuzzParseCommand(f *testing.F) {
	f.Add("PAUS")
	f.Add("SEEK 1000")
	f.Add("ASPR ")
	f.Add("")

	f.Fuzz(func(t *testing.T, text string) {
		cmd, err := ParseCommand(text)
		if err != nil {
			return
		}
		if len(cmd.Args) < commandArity[cmd.Name] {
			t.Fatalf("arity not enforced for %q", text)
		}
		_, _ = cmd.IntArg(0)
		_, _, _ = cmd.OptionalIntArg(0)
	})
}
