package agent

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestIDGeneratorFormat(t *testing.T) {
	ids, err := NewIDGenerator()
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9]{8}$`), ids.Prefix())
	assert.Equal(t, ids.Prefix()+"-0000", ids.Next())
	assert.Equal(t, ids.Prefix()+"-0001", ids.Next())
}

func TestIDGeneratorCounterWidens(t *testing.T) {
	ids := newIDGeneratorWithPrefix("abc")
	ids.counter.Store(9999)

	assert.Equal(t, "abc-9999", ids.Next())
	assert.Equal(t, "abc-10000", ids.Next())
}

func TestIDGeneratorPrefixesDiffer(t *testing.T) {
	a, err := NewIDGenerator()
	require.NoError(t, err)
	b, err := NewIDGenerator()
	require.NoError(t, err)

	assert.NotEqual(t, a.Prefix(), b.Prefix())
}

func TestIDGeneratorConcurrentUnique(t *testing.T) {
	ids := newIDGeneratorWithPrefix("conc")

	const workers = 16
	const perWorker = 500

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, ids.Next())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
