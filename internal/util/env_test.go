package util

import "testing"

func TestGetEnvString(t *testing.T) {
	t.Setenv("NOVELGRAPH_TEST_STR", "value")

	if got := GetEnvString("NOVELGRAPH_TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnvString() = %q, want %q", got, "value")
	}
	if got := GetEnvString("NOVELGRAPH_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("GetEnvString() = %q, want fallback", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		def   int
		want  int
	}{
		{name: "valid", value: "42", def: 7, want: 42},
		{name: "invalid falls back", value: "forty-two", def: 7, want: 7},
		{name: "empty falls back", value: "", def: 7, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NOVELGRAPH_TEST_INT", tt.value)
			if got := GetEnvInt("NOVELGRAPH_TEST_INT", tt.def); got != tt.want {
				t.Errorf("GetEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name  string
		value string
		def   bool
		want  bool
	}{
		{name: "true", value: "true", def: false, want: true},
		{name: "false", value: "false", def: true, want: false},
		{name: "invalid falls back", value: "yes please", def: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NOVELGRAPH_TEST_BOOL", tt.value)
			if got := GetEnvBool("NOVELGRAPH_TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("GetEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}
