package util

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already normalized", input: "tom sawyer", want: "tom sawyer"},
		{name: "mixed case", input: "Tom Sawyer", want: "tom sawyer"},
		{name: "surrounding whitespace", input: "  Tom Sawyer \n", want: "tom sawyer"},
		{name: "internal whitespace collapsed", input: "Tom \t  Sawyer", want: "tom sawyer"},
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: " \t\n ", want: ""},
		{name: "single word", input: "HUCKLEBERRY", want: "huckleberry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.input); got != tt.want {
				t.Fatalf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
