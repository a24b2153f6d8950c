package srv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingService struct {
	name  string
	order *[]string
}

func (r *recordingService) Start(ctx context.Context) error { return nil }

func (r *recordingService) Shutdown(ctx context.Context) error {
	*r.order = append(*r.order, r.name)
	return nil
}

func TestShutdownServices_ReverseOrder(t *testing.T) {
	var order []string
	services := []Service{
		&recordingService{name: "db", order: &order},
		&recordingService{name: "bot", order: &order},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ShutdownServices(ctx, services)

	assert.Equal(t, []string{"bot", "db"}, order)
}

func TestNewCleanup(t *testing.T) {
	called := false
	svc := NewCleanup(func() error {
		called = true
		return nil
	})

	assert.NoError(t, svc.Start(context.Background()))
	assert.False(t, called)
	assert.NoError(t, svc.Shutdown(context.Background()))
	assert.True(t, called)
}
