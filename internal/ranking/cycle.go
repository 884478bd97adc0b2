package ranking

// State is the leaderboard's current sort column and direction.
type State struct {
	Column Key   `json:"column"`
	Order  Order `json:"order"`
}

// DefaultState is the ordering the leaderboard starts in and resets to.
var DefaultState = State{Column: DefaultKey, Order: DefaultOrder}

// cycleKey selects a row of the transition table.
type cycleKey struct {
	lowerIsBetter bool // clicked column sorts ascending first (carbon)
	same          bool // clicked column is the current column
	current       Order
}

// cycleStep is what a click does: reset to DefaultState, or sort the
// clicked column in order.
type cycleStep struct {
	reset bool
	order Order
}

var transitions = map[cycleKey]cycleStep{
	// New column: natural direction.
	{lowerIsBetter: false, same: false, current: Asc}:  {order: Desc},
	{lowerIsBetter: false, same: false, current: Desc}: {order: Desc},
	{lowerIsBetter: true, same: false, current: Asc}:   {order: Asc},
	{lowerIsBetter: true, same: false, current: Desc}:  {order: Asc},

	// Same column: flip once, then reset.
	{lowerIsBetter: false, same: true, current: Desc}: {order: Asc},
	{lowerIsBetter: false, same: true, current: Asc}:  {reset: true},
	{lowerIsBetter: true, same: true, current: Asc}:   {order: Desc},
	{lowerIsBetter: true, same: true, current: Desc}:  {reset: true},
}

// Next returns the sort state after a click on the clicked column header.
func Next(cur State, clicked Key) State {
	order := cur.Order
	if order != Asc {
		order = Desc
	}
	step := transitions[cycleKey{
		lowerIsBetter: clicked == KeyCarbon,
		same:          clicked == cur.Column,
		current:       order,
	}]
	if step.reset {
		return DefaultState
	}
	return State{Column: clicked, Order: step.order}
}
