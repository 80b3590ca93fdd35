package binance

import "testing"

func TestFloatParserReadsValidNumbers(t *testing.T) {
	var p floatParser
	if got := p.parse("0.0001"); got != 0.0001 {
		t.Fatalf("parse(0.0001) = %v", got)
	}
	if got := p.parse("-42.5"); got != -42.5 {
		t.Fatalf("parse(-42.5) = %v", got)
	}
	if p.err != nil {
		t.Fatalf("unexpected error: %v", p.err)
	}
}

func TestFloatParserSurfacesMalformedFields(t *testing.T) {
	var p floatParser
	if got := p.parse("not-a-number"); got != 0 {
		t.Fatalf("malformed input returned %v, want 0", got)
	}
	if p.err == nil {
		t.Fatal("expected error for malformed input")
	}
}

func TestFloatParserKeepsFirstError(t *testing.T) {
	var p floatParser
	p.parse("bogus")
	first := p.err
	if first == nil {
		t.Fatal("expected error for malformed input")
	}
	// Later values are skipped once a field failed to parse.
	if got := p.parse("123.45"); got != 0 {
		t.Fatalf("parse after error returned %v, want 0", got)
	}
	if p.err != first {
		t.Fatalf("error was replaced: %v", p.err)
	}
}
