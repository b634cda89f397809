package schema

import "testing"

func TestFirstLine(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "multiline", input: "a\nb\n", want: "a"},
		{name: "empty", input: "", want: ""},
		{name: "plain", input: "hello", want: "hello"},
		{name: "crlf", input: "first\r\nsecond", want: "first"},
		{name: "padded", input: "  spaced out  \nrest", want: "spaced out"},
		{name: "only newline", input: "\n", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FirstLine(tc.input); got != tc.want {
				t.Fatalf("FirstLine(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
