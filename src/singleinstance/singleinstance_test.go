package singleinstance

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSecondClaimNotifiesResident(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	shown := make(chan struct{}, 1)
	r, err := Claim(ctx, 0, zerolog.Nop(), func() { shown <- struct{}{} })
	if err != nil {
		t.Skipf("loopback unavailable in this environment: %v", err)
	}
	defer r.Close()

	assert.True(t, Ping(ctx, r.Port()))

	_, err = Claim(ctx, r.Port(), zerolog.Nop(), nil)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	select {
	case <-shown:
	case <-ctx.Done():
		t.Fatal("resident was not asked to show itself")
	}
}

func TestNotifyWithoutResident(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	r, err := Claim(ctx, 0, zerolog.Nop(), nil)
	if err != nil {
		t.Skipf("loopback unavailable in this environment: %v", err)
	}
	port := r.Port()
	require.NoError(t, r.Close())

	assert.Error(t, Notify(ctx, port))
	assert.False(t, Ping(ctx, port))
}

func TestPortFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want int
	}{
		{"", DefaultPort},
		{"50001", 50001},
		{"80", 1024},
		{"99999", 65535},
		{"abc", DefaultPort},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(PortEnvVar, tt.env)
			assert.Equal(t, tt.want, Port())
		})
	}
}
