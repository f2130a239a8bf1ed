package main

import "testing"

func TestParseOptions(t *testing.T) {
	opts := parseOptions([]string{"--id=12", "--name=gallery", "--page=2", "--size=bad", "--json", "stray"})

	if opts.id != "12" {
		t.Errorf("id = %q", opts.id)
	}
	if opts.name != "gallery" {
		t.Errorf("name = %q", opts.name)
	}
	if opts.page != 2 {
		t.Errorf("page = %d", opts.page)
	}
	if opts.size != 20 {
		t.Errorf("size should keep its default, got %d", opts.size)
	}
	if !opts.useJSON {
		t.Error("expected json output")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("a-rather-long-project-name", 10); got != "a-rathe..." {
		t.Errorf("got %q", got)
	}
}
