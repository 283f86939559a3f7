package tagging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name       string
		previous   map[string]string
		desired    map[string]string
		wantRemove []string
		wantAdd    map[string]string
	}{
		{
			name:    "nothing before",
			desired: map[string]string{"team": "data"},
			wantAdd: map[string]string{"team": "data"},
		},
		{
			name:       "nothing after",
			previous:   map[string]string{"team": "data", "env": "dev"},
			wantRemove: []string{"env", "team"},
			wantAdd:    map[string]string{},
		},
		{
			name:       "key removed and key added",
			previous:   map[string]string{"team": "data", "env": "dev"},
			desired:    map[string]string{"team": "data", "owner": "ops"},
			wantRemove: []string{"env"},
			wantAdd:    map[string]string{"owner": "ops"},
		},
		{
			name:     "value changed",
			previous: map[string]string{"env": "dev"},
			desired:  map[string]string{"env": "prod"},
			wantAdd:  map[string]string{"env": "prod"},
		},
		{
			name:     "unchanged",
			previous: map[string]string{"env": "dev"},
			desired:  map[string]string{"env": "dev"},
			wantAdd:  map[string]string{},
		},
		{
			name:    "both empty",
			wantAdd: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remove, add := Diff(tt.previous, tt.desired)
			assert.Equal(t, tt.wantRemove, remove)
			assert.Equal(t, tt.wantAdd, add)
		})
	}
}

func TestDiffRoundTrip(t *testing.T) {
	sets := []map[string]string{
		nil,
		{},
		{"a": "1"},
		{"a": "2"},
		{"a": "1", "b": "2"},
		{"b": "2", "c": "3"},
		{"c": "3", "d": "4", "a": "9"},
	}

	for _, previous := range sets {
		for _, desired := range sets {
			remove, add := Diff(previous, desired)
			got := Apply(previous, remove, add)
			want := desired
			if want == nil {
				want = map[string]string{}
			}
			assert.Equal(t, want, got, "previous=%v desired=%v", previous, desired)
		}
	}
}

func TestMerge(t *testing.T) {
	merged := Merge(map[string]string{"a": "1", "b": "1"}, nil, map[string]string{"b": "2"})
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, merged)
	assert.Empty(t, Merge())
}
