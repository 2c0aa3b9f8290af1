package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnsureServerConcurrentCallersGetOneInstance(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	const callers = 32
	results := make([]*Server, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			s, err := EnsureServer(DefaultConfig())
			assert.NoError(t, err)
			results[idx] = s
		}(i)
	}
	wg.Wait()

	// Semua caller menerima instance yang identik
	first := results[0]
	assert.NotNil(t, first)
	for _, s := range results {
		assert.Same(t, first, s)
	}
	assert.Same(t, first, GetServer())
}

func TestEnsureServerReconcilesConfigDrift(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	s1, err := EnsureServer(DefaultConfig())
	assert.NoError(t, err)

	drifted := DefaultConfig()
	drifted.MaxPayloadBytes = 128 * 1024
	drifted.PingInterval = 10 * time.Second

	// Drift diterapkan in-place, instance tidak diganti
	s2, err := EnsureServer(drifted)
	assert.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, drifted, s2.Config())
}

func TestEnsureServerConstructionFailureRetries(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	bad := Config{MaxPayloadBytes: 0, PingInterval: time.Second}
	_, err := EnsureServer(bad)
	assert.Error(t, err)

	// Gagal konstruksi tidak meninggalkan singleton setengah jadi
	assert.Nil(t, GetServer())

	s, err := EnsureServer(DefaultConfig())
	assert.NoError(t, err)
	assert.NotNil(t, s)
}

func TestGetServerAbsentIsNil(t *testing.T) {
	resetRegistry()
	assert.Nil(t, GetServer())
}

func TestReconcileRejectsInvalidDrift(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	s, err := EnsureServer(DefaultConfig())
	assert.NoError(t, err)

	s.reconcile(Config{MaxPayloadBytes: -1, PingInterval: time.Second})
	assert.Equal(t, DefaultConfig(), s.Config())
}
