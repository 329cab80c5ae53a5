package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func draftOrder(t *testing.T) *PurchaseOrder {
	t.Helper()
	order, err := NewPurchaseOrder("po-1", "PO-20240301-ABC123", "sup-1", []PurchaseOrderItem{
		{ProductID: "A", OrderedQuantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(100)},
	}, decimal.NewFromInt(1000), decimal.NewFromInt(120), nil)
	require.NoError(t, err)
	return order
}

func TestCanTransition_MatchesTable(t *testing.T) {
	allowed := map[Status]map[Status]bool{
		StatusDraft:             {StatusPendingApproval: true, StatusCancelled: true},
		StatusPendingApproval:   {StatusApproved: true, StatusDraft: true, StatusCancelled: true},
		StatusApproved:          {StatusSentToSupplier: true, StatusCancelled: true},
		StatusSentToSupplier:    {StatusPartiallyReceived: true, StatusFullyReceived: true, StatusCancelled: true},
		StatusPartiallyReceived: {StatusPartiallyReceived: true, StatusFullyReceived: true, StatusCancelled: true},
		StatusFullyReceived:     {StatusClosed: true},
	}
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			require.Equal(t, allowed[from][to], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestExecuteTransition_DeniedPairsLeaveOrderUntouched(t *testing.T) {
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			if CanTransition(from, to) {
				continue
			}
			order := draftOrder(t)
			order.Status = from
			snapshot := order.Clone()

			next, err := ExecuteTransition(order, to, TransitionContext{Actor: Actor{ID: "u-1"}})

			require.Nil(t, next)
			require.ErrorIs(t, err, ErrInvalidTransition)
			var te *TransitionError
			require.True(t, errors.As(err, &te))
			require.Equal(t, from, te.From)
			require.Equal(t, to, te.To)
			require.Equal(t, snapshot, order)
		}
	}
}

func TestExecuteTransition_ReturnsNewOrder(t *testing.T) {
	order := draftOrder(t)
	order.Status = StatusPendingApproval

	next, err := ExecuteTransition(order, StatusApproved, TransitionContext{Actor: Actor{ID: "mgr"}})

	require.NoError(t, err)
	require.Equal(t, StatusApproved, next.Status)
	require.Equal(t, "mgr", next.ApprovedBy)
	require.Equal(t, StatusPendingApproval, order.Status)
	require.Empty(t, order.ApprovedBy)
}

func TestTerminalStatuses(t *testing.T) {
	require.True(t, StatusCancelled.IsTerminal())
	require.True(t, StatusClosed.IsTerminal())
	require.False(t, StatusFullyReceived.IsTerminal())
	require.Empty(t, ValidTransitions(StatusClosed))
}

func TestValidTransitions_ReturnsCopy(t *testing.T) {
	edges := ValidTransitions(StatusDraft)
	edges[0] = StatusClosed

	require.Equal(t, []Status{StatusPendingApproval, StatusCancelled}, ValidTransitions(StatusDraft))
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]Status{
		"sent":               StatusSentToSupplier,
		"partial":            StatusPartiallyReceived,
		"received":           StatusFullyReceived,
		"draft":              StatusDraft,
		" Cancelled ":        StatusCancelled,
		"sent_to_supplier":   StatusSentToSupplier,
		"partially_received": StatusPartiallyReceived,
	}
	for raw, want := range cases {
		got, err := NormalizeStatus(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	_, err := NormalizeStatus("rejected")
	require.ErrorIs(t, err, ErrUnknownStatus)
}
