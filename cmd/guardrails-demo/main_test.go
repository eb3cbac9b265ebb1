package main

import (
	"bytes"
	"testing"
)

func TestPrintWarningsPrefixesEachLine(t *testing.T) {
	var out bytes.Buffer
	printWarnings(&out, []string{
		".env not found; set OPENAI_API_KEY or create a .env file.",
		"OPENAI_API_KEY not set. Set it if using OpenAI models.",
	})

	want := "[warn] .env not found; set OPENAI_API_KEY or create a .env file.\n" +
		"[warn] OPENAI_API_KEY not set. Set it if using OpenAI models.\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", out.String(), want)
	}
}

func TestPrintWarningsWithoutWarningsPrintsNothing(t *testing.T) {
	var out bytes.Buffer
	printWarnings(&out, nil)
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}
