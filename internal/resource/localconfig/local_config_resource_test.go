package localconfig

import (
	"reflect"
	"testing"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		id      string
		want    []string
		wantErr bool
	}{
		{id: "kubernetes", want: []string{"kubernetes"}},
		{id: "kubernetes.context", want: []string{"kubernetes", "context"}},
		{id: "", wantErr: true},
		{id: "kubernetes..context", wantErr: true},
		{id: "kubernetes.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := parseID(tt.id)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseID(%q) = %v, want error", tt.id, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseID(%q): %s", tt.id, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "minikube", "minikube"},
		{"nil", nil, ""},
		{"int", 3, "3"},
		{"bool", true, "true"},
		{"float", 1.5, "1.5"},
		{"mapping", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{"list", []any{"a", "b"}, `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stringify(tt.in)
			if err != nil {
				t.Fatalf("stringify(%v): %s", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("stringify(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
