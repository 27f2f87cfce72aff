package events

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_DeliversToEveryHandler(t *testing.T) {
	bus := NewEventBus()
	var calls atomic.Int32
	var got atomic.Value

	bus.On(PasswordCodeIssued, func(data interface{}) {
		calls.Add(1)
		got.Store(data.(PasswordCode).Code)
	})
	bus.On(PasswordCodeIssued, func(interface{}) { calls.Add(1) })
	bus.On(CompanyCreated, func(interface{}) { t.Error("wrong event delivered") })

	bus.Emit(PasswordCodeIssued, PasswordCode{Code: "abc123"})
	bus.Wait()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "abc123", got.Load())
}

func TestEventBus_RecoversFromPanics(t *testing.T) {
	bus := NewEventBus()
	var calls atomic.Int32
	bus.On(AccessRequestReviewed, func(interface{}) { panic("boom") })
	bus.On(AccessRequestReviewed, func(interface{}) { calls.Add(1) })

	assert.NotPanics(t, func() {
		bus.Emit(AccessRequestReviewed, nil)
		bus.Wait()
	})
	assert.Equal(t, int32(1), calls.Load())
}

func TestEventBus_EmitWithoutHandlers(t *testing.T) {
	bus := NewEventBus()
	bus.Emit("nothing.listens", 1)
	bus.Wait()
}
