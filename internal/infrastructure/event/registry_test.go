package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Register(t *testing.T) {
	r := NewHandlerRegistry()
	h := newRecordingHandler()

	r.Register(h, "PaymentApplied", "InstallmentOverdue")
	r.Register(h, "PaymentApplied")

	assert.Len(t, r.GetHandlers("PaymentApplied"), 1)
	assert.Len(t, r.GetHandlers("InstallmentOverdue"), 1)
	assert.Empty(t, r.GetHandlers("InvestmentCreated"))
}

func TestHandlerRegistry_WildcardComesLast(t *testing.T) {
	r := NewHandlerRegistry()
	typed := newRecordingHandler()
	wildcard := newRecordingHandler()

	r.Register(wildcard)
	r.Register(wildcard)
	r.Register(typed, "PaymentApplied")

	handlers := r.GetHandlers("PaymentApplied")
	assert.Len(t, handlers, 2)
	assert.Same(t, typed, handlers[0])
	assert.Same(t, wildcard, handlers[1])

	assert.Len(t, r.GetHandlers("Other"), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	r := NewHandlerRegistry()
	keep := newRecordingHandler()
	drop := newRecordingHandler()

	r.Register(keep, "PaymentApplied")
	r.Register(drop, "PaymentApplied", "InstallmentWaived")
	r.Register(drop)

	r.Unregister(drop)

	assert.Equal(t, 1, len(r.GetHandlers("PaymentApplied")))
	assert.Empty(t, r.GetHandlers("InstallmentWaived"))
	assert.Len(t, r.GetAllHandlers(), 1)
}

func TestHandlerRegistry_GetAllHandlersIsDistinct(t *testing.T) {
	r := NewHandlerRegistry()
	a, b := newRecordingHandler(), newRecordingHandler()

	r.Register(a, "PaymentApplied", "InstallmentOverdue")
	r.Register(a)
	r.Register(b, "PaymentApplied")

	assert.ElementsMatch(t, []any{a, b}, toAny(r.GetAllHandlers()))
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
