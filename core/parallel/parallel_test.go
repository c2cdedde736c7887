package parallel

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachKeepsIndexOrder(t *testing.T) {
	for _, workers := range []int{1, 4, 0} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			errs := ForEach(20, workers, func(i int) error {
				if i%5 == 0 {
					return fmt.Errorf("member %d", i)
				}
				return nil
			})
			require.Len(t, errs, 20)
			for i, err := range errs {
				if i%5 == 0 {
					assert.EqualError(t, err, fmt.Sprintf("member %d", i))
				} else {
					assert.NoError(t, err)
				}
			}
		})
	}
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(8, 3))
	assert.Equal(t, 2, Workers(2, 10))
	assert.Equal(t, 1, Workers(4, 0))
	assert.LessOrEqual(t, Workers(0, 5), 5)
}
