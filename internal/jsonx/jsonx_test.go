package jsonx

import "testing"

func TestExtractObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{"Sure! Here you go:\n```json\n{\"a\": {\"b\": 2}}\n```\nHope that helps.", `{"a": {"b": 2}}`, true},
		{`prefix {"s":"has } brace"} suffix`, `{"s":"has } brace"}`, true},
		{`{"s":"escaped \" quote}"}`, `{"s":"escaped \" quote}"}`, true},
		{`no json here`, ``, false},
		{`{"unterminated": `, ``, false},
	}
	for _, tc := range cases {
		got, ok := ExtractObject(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ExtractObject(%q) = %q,%v; want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtractArray(t *testing.T) {
	got, ok := ExtractArray(`the plan: [{"name":"web_search"}] done`)
	if !ok || got != `[{"name":"web_search"}]` {
		t.Fatalf("ExtractArray = %q,%v", got, ok)
	}
}
