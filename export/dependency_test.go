package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologicalSort(t *testing.T) {
	tests := []struct {
		name         string
		tables       []string
		dependencies map[string][]string
		want         []string
		wantErr      bool
	}{
		{
			name:         "no dependencies keeps input order",
			tables:       []string{"b", "a", "c"},
			dependencies: map[string][]string{"a": {}, "b": {}, "c": {}},
			want:         []string{"b", "a", "c"},
		},
		{
			name:   "referenced tables first",
			tables: []string{"OrderItems", "Orders", "Users"},
			dependencies: map[string][]string{
				"orderitems": {"orders"},
				"orders":     {"users"},
				"users":      {},
			},
			want: []string{"Users", "Orders", "OrderItems"},
		},
		{
			name:   "two foreign keys to the same table",
			tables: []string{"transfers", "accounts"},
			dependencies: map[string][]string{
				"transfers": {"accounts", "accounts"},
				"accounts":  {},
			},
			want: []string{"accounts", "transfers"},
		},
		{
			name:   "cycle",
			tables: []string{"a", "b"},
			dependencies: map[string][]string{
				"a": {"b"},
				"b": {"a"},
			},
			wantErr: true,
		},
		{
			name:         "unknown referenced table",
			tables:       []string{"a"},
			dependencies: map[string][]string{"a": {"ghost"}},
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := topologicalSort(tt.tables, tt.dependencies)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
