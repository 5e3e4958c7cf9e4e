package plot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCheckpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		first int
		last  int
		step  int
		want  []int
	}{
		{name: "example range", first: 0, last: 10, step: 3, want: []int{0, 3, 6, 9}},
		{name: "appends final stage", first: 0, last: 11, step: 3, want: []int{0, 3, 6, 9, 10}},
		{name: "step one", first: 0, last: 4, step: 1, want: []int{0, 1, 2, 3}},
		{name: "single stage", first: 0, last: 1, step: 1, want: []int{0}},
		{name: "offset first", first: 2, last: 8, step: 2, want: []int{2, 4, 6, 7}},
		{name: "step wider than range", first: 0, last: 10, step: 20, want: []int{9}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := selectCheckpoints(tc.first, tc.last, tc.step)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			// Strictly increasing, non-empty, terminating at last-1.
			require.NotEmpty(t, got)
			assert.Equal(t, tc.last-1, got[len(got)-1])

			for i := 1; i < len(got); i++ {
				assert.Greater(t, got[i], got[i-1])
			}
		})
	}
}

func TestSelectCheckpoints_DegenerateRanges(t *testing.T) {
	t.Parallel()

	_, err := selectCheckpoints(5, 5, 1)
	require.ErrorIs(t, err, ErrDegenerateRange)

	_, err = selectCheckpoints(7, 3, 1)
	require.ErrorIs(t, err, ErrDegenerateRange)

	_, err = selectCheckpoints(-1, 3, 1)
	require.ErrorIs(t, err, ErrDegenerateRange)

	_, err = selectCheckpoints(0, 3, 0)
	require.ErrorIs(t, err, ErrBadStep)
}
