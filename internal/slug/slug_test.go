package slug

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveBase(t *testing.T) {
	cases := []struct {
		name1, name2 string
		want         string
	}{
		{"Alice", "Bob", "alice-bob"},
		{"Alice & Bob!!", "C.J.", "alice-bob-c-j"},
		{"  Mary  Jane ", "\tPeter\n", "mary-jane-peter"},
		{"Zoë", "Li", "zo-li"},
		{"R2D2", "C3PO", "r2d2-c3po"},
		{"", "", "-"},
		{"!!!", "Bob", "-bob"},
		{"Ann", "   ", "ann-"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DeriveBase(tc.name1, tc.name2), "DeriveBase(%q, %q)", tc.name1, tc.name2)
	}
}

func TestDeriveBaseDeterministic(t *testing.T) {
	first := DeriveBase("Émile & Zoé", "Dr. Who")
	for i := 0; i < 10; i++ {
		require.Equal(t, first, DeriveBase("Émile & Zoé", "Dr. Who"))
	}
	// normalizing an already-normalized name is a no-op
	require.Equal(t, Normalize("alice-bob"), Normalize(Normalize("Alice -- Bob")))
}

func TestNormalizeOnlyURLSafe(t *testing.T) {
	got := Normalize(`a/b\c?d#e%f g`)
	require.Equal(t, "a-b-c-d-e-f-g", got)
	require.Regexp(t, `^[a-z0-9-]*$`, DeriveBase("<script>", "O'Brien"))
}
