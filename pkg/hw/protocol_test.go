package hw

import (
	"errors"
	"testing"
)

func TestParseCommandKeepsEmptyArgument(t *testing.T) {
	cmd, err := ParseCommand("ASPR ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmd.Name != CmdAspectRatio {
		t.Fatalf("unexpected name %q", cmd.Name)
	}
	if len(cmd.Args) != 1 || cmd.Args[0] != "" {
		t.Fatalf("expected one empty arg, got %#v", cmd.Args)
	}
	_, ok, err := cmd.OptionalIntArg(0)
	if err != nil || ok {
		t.Fatalf("expected absent optional arg")
	}
}

func TestParseCommandUnknown(t *testing.T) {
	_, err := ParseCommand("NOPE 1")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected unknown command, got %v", err)
	}
}

func TestParseCommandMissingArg(t *testing.T) {
	_, err := ParseCommand("VOLU")
	if !errors.Is(err, ErrMissingArg) {
		t.Fatalf("expected missing arg, got %v", err)
	}
}

func TestParseCommandEmpty(t *testing.T) {
	if _, err := ParseCommand("  \n"); !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("expected empty command, got %v", err)
	}
}

func TestCommandArgs(t *testing.T) {
	cmd, err := ParseCommand("SEEK 12000\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v, err := cmd.IntArg(0)
	if err != nil || v != 12000 {
		t.Fatalf("expected 12000, got %d (%v)", v, err)
	}

	cmd, _ = ParseCommand("SHUF 1")
	on, err := cmd.BoolArg(0)
	if err != nil || !on {
		t.Fatalf("expected true flag")
	}

	cmd, _ = ParseCommand("VOLU abc")
	if _, err := cmd.IntArg(0); err == nil {
		t.Fatalf("expected integer error")
	}
}

func TestMessages(t *testing.T) {
	cases := map[string]string{
		TimeMessage(1500):       "TIME 1500",
		MediaPathMessage(""):    "MPTH None",
		MediaPathMessage("a/b"): "MPTH a/b",
		StateMessage(3, true):   "MSTT 3",
		StateMessage(0, false):  "MSTT None",
		SubsDelayMessage(-500):  "SDEL -500",
		ShutdownMessage("end"):  "SHUT end",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestTopics(t *testing.T) {
	if CommandTopic("hw") != "hw/session/cmd" {
		t.Fatalf("unexpected command topic")
	}
	if EventTopic("hw") != "hw/session/events" {
		t.Fatalf("unexpected event topic")
	}
	if StatusTopic("hw") != "hw/session/status" {
		t.Fatalf("unexpected status topic")
	}
}
