package fmf

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mergeStrings folds the incoming snippet onto the base snippet and
// returns the resulting plain data.
func mergeStrings(t *testing.T, base, incoming string) map[string]any {
	t.Helper()
	data := parseMap(t, base)
	if err := mergeInto(data, parseMap(t, incoming)); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	return data.ToMap()
}

func TestSplitOperator(t *testing.T) {
	tests := []struct {
		key  string
		base string
		op   string
	}{
		{"tag", "tag", ""},
		{"tag+", "tag", "+"},
		{"tag+<", "tag", "+<"},
		{"tag-", "tag", "-"},
		{"require~", "require", "~"},
		{"require-~", "require", "-~"},
		{"+", "+", ""},
		{"~", "~", ""},
	}
	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			base, op := splitOperator(test.key)
			if base != test.base || op != test.op {
				t.Errorf("splitOperator(%q) = (%q, %q), want (%q, %q)",
					test.key, base, op, test.base, test.op)
			}
		})
	}
}

func TestMerge_Plus(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		incoming string
		want     map[string]any
	}{
		{
			"lists concatenate",
			"tag: [a]", "tag+: [b, c]",
			map[string]any{"tag": []any{"a", "b", "c"}},
		},
		{
			"lists prepend",
			"tag: [a]", "tag+<: [b, c]",
			map[string]any{"tag": []any{"b", "c", "a"}},
		},
		{
			"numbers add",
			"count: 1", "count+: 2",
			map[string]any{"count": 3},
		},
		{
			"strings concatenate",
			"note: start", "note+: -end",
			map[string]any{"note": "start-end"},
		},
		{
			"strings prepend",
			"note: end", "note+<: start-",
			map[string]any{"note": "start-end"},
		},
		{
			"mappings merge recursively",
			"env:\n    A: 1\n    B: 2", "env+:\n    B: 3\n    C: 4",
			map[string]any{"env": map[string]any{"A": 1, "B": 3, "C": 4}},
		},
		{
			"inner operators apply on merge",
			"env:\n    PATH: /usr", "env+:\n    PATH+: /bin",
			map[string]any{"env": map[string]any{"PATH": "/usr/bin"}},
		},
		{
			"missing parent just sets",
			"other: x", "tag+: [a]",
			map[string]any{"other": "x", "tag": []any{"a"}},
		},
		{
			"null parent just sets",
			"tag:", "tag+: [a]",
			map[string]any{"tag": []any{"a"}},
		},
		{
			"mapping distributes into list",
			"cases:\n  - name: one\n  - name: two", "cases+:\n    tier: 1",
			map[string]any{"cases": []any{
				map[string]any{"name": "one", "tier": 1},
				map[string]any{"name": "two", "tier": 1},
			}},
		},
		{
			"list elements updated by parent mapping",
			"case:\n    tier: 1", "case+:\n  - name: one\n  - name: two",
			map[string]any{"case": []any{
				map[string]any{"tier": 1, "name": "one"},
				map[string]any{"tier": 1, "name": "two"},
			}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mergeStrings(t, test.base, test.incoming)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("merged data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_Minus(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		incoming string
		want     map[string]any
	}{
		{
			"numbers subtract",
			"count: 5", "count-: 2",
			map[string]any{"count": 3},
		},
		{
			"list items removed",
			"tag: [a, b, c, b]", "tag-: [b]",
			map[string]any{"tag": []any{"a", "c"}},
		},
		{
			"mapping keys removed",
			"env:\n    A: 1\n    B: 2", "env-: [A]",
			map[string]any{"env": map[string]any{"B": 2}},
		},
		{
			"string pattern removed",
			"note: hello world", "note-: 'l+o'",
			map[string]any{"note": "hel world"},
		},
		{
			"missing parent is a no-op",
			"other: x", "tag-: [a]",
			map[string]any{"other": "x"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mergeStrings(t, test.base, test.incoming)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("merged data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_Regexp(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		incoming string
		want     map[string]any
	}{
		{
			"substitute in string",
			"require: python2-foo", "require~: /python2-/python3-/",
			map[string]any{"require": "python3-foo"},
		},
		{
			"substitute in list",
			"require: [python2-foo, bar]", "require~: /python2-/python3-/",
			map[string]any{"require": []any{"python3-foo", "bar"}},
		},
		{
			"substitutions applied in order",
			"note: aaa", "note~: [/a/b/, /bb/c/]",
			map[string]any{"note": "cb"},
		},
		{
			"back references",
			"note: one-two", "note~: /(\\w+)-(\\w+)/$2-$1/",
			map[string]any{"note": "two-one"},
		},
		{
			"remove matching list items",
			"tag: [Tier1, Tier2, slow]", "tag-~: ^Tier.*",
			map[string]any{"tag": []any{"slow"}},
		},
		{
			"remove matching string",
			"note: obsolete", "note-~: sole",
			map[string]any{"note": ""},
		},
		{
			"remove matching mapping keys",
			"env:\n    KEEP: 1\n    DROP_A: 2\n    DROP_B: 3", "env-~: ^DROP",
			map[string]any{"env": map[string]any{"KEEP": 1}},
		},
		{
			"missing parent is a no-op",
			"other: x", "require~: /a/b/",
			map[string]any{"other": "x"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := mergeStrings(t, test.base, test.incoming)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("merged data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_DeclaredOrder(t *testing.T) {
	// Multiple operator variants of the same base key apply in
	// declared order.
	got := mergeStrings(t, "tag: [a, b]", "tag+: [c]\ntag-: [a]")
	want := map[string]any{"tag": []any{"b", "c"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merged data mismatch (-want +got):\n%s", diff)
	}

	// An unsuffixed occurrence replaces, later suffixed ones operate
	// on the new value.
	got = mergeStrings(t, "tag: [old]", "tag: [x]\ntag+: [y]")
	want = map[string]any{"tag": []any{"x", "y"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merged data mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_SuffixStripped(t *testing.T) {
	// No operator suffix may survive in merged data, even when the
	// value is a fresh mapping with inner suffixed keys.
	data := parseMap(t, "")
	if err := mergeInto(data, parseMap(t, "env+:\n    PATH+: /bin")); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	want := map[string]any{"env": map[string]any{"PATH": "/bin"}}
	if diff := cmp.Diff(want, data.ToMap()); diff != "" {
		t.Errorf("merged data mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_Idempotence(t *testing.T) {
	// x + empty = x
	got := mergeStrings(t, "tag: [a]\nnote: text", "")
	want := map[string]any{"tag": []any{"a"}, "note": "text"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("x + empty changed data (-want +got):\n%s", diff)
	}

	// x - (x matches) = empty
	got = mergeStrings(t, "tag: [a, b]", "tag-: [a, b]")
	if diff := cmp.Diff(map[string]any{"tag": []any{}}, got); diff != "" {
		t.Errorf("x - x left data behind (-want +got):\n%s", diff)
	}

	// Substituting the empty pattern with nothing keeps the value.
	got = mergeStrings(t, "note: keep", "note~: /^$//")
	if diff := cmp.Diff(map[string]any{"note": "keep"}, got); diff != "" {
		t.Errorf("empty substitution changed data (-want +got):\n%s", diff)
	}
}

func TestMerge_Errors(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		incoming string
	}{
		{"list plus number", "tag: [a]", "tag+: 1"},
		{"number plus string", "count: 1", "count+: text"},
		{"bool plus bool", "flag: true", "flag+: false"},
		{"minus on bool", "flag: true", "flag-: false"},
		{"substitute on mapping", "env:\n    A: 1", "env~: /a/b/"},
		{"invalid substitution", "note: x", "note~: no-delimiters"},
		{"invalid pattern", "note: x", "note~: '/(/x/'"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data := parseMap(t, test.base)
			err := mergeInto(data, parseMap(t, test.incoming))
			if err == nil {
				t.Fatal("expected merge error")
			}
			if !errors.Is(err, ErrMerge) {
				t.Errorf("error should be ErrMerge, got: %v", err)
			}
		})
	}
}
