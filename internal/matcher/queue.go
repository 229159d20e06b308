package matcher

import "trade-ledger/internal/types"

// fifo is a slice-backed queue owned by one symbol's matching pass.
type fifo struct {
	items []types.SingleUnitFill
	head  int
}

func (q *fifo) push(u ...types.SingleUnitFill) { q.items = append(q.items, u...) }

func (q *fifo) pop() types.SingleUnitFill {
	u := q.items[q.head]
	q.head++
	return u
}

func (q *fifo) len() int { return len(q.items) - q.head }

func (q *fifo) rest() []types.SingleUnitFill { return q.items[q.head:] }
