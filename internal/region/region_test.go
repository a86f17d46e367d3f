package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		department string
		want       []Region
	}{
		{"toulouse", "31", []Region{"toulouse31"}},
		{"leading zero normalized", "07", []Region{"centrest", "sudrhonealpes"}},
		{"corsica alpha code", "2A", []Region{"corse"}},
		{"ambiguous ordered", "53", []Region{"normandie", "anjou-maine"}},
		{"overseas", "974", []Region{"reunion"}},
		{"slug passthrough", "toulouse31", []Region{"toulouse31"}},
		{"whitespace trimmed", " 31 ", []Region{"toulouse31"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.department)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve("999")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownDepartment)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://www.toulouse31.example-bank.fr", Region("toulouse31").BaseURL())
}

func TestName(t *testing.T) {
	assert.Equal(t, "Toulouse", Region("toulouse31").Name())
	assert.Equal(t, "unknown-slug", Region("unknown-slug").Name())
}

func TestEveryGroupRegionIsKnown(t *testing.T) {
	for _, group := range departmentGroups {
		for _, slug := range group.regions {
			_, ok := regionNames[slug]
			assert.True(t, ok, "region %q has no display name", slug)
		}
	}
}
