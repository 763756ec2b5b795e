package fiber

// stackCursor is a slot whose value tracks the fiber currently being
// processed. Providers and host contexts push on the way down and pop on
// the way back up (including the unwind path), so reads stay O(1).
type stackCursor struct {
	current any
}

type stackEntry struct {
	cursor *stackCursor
	value  any
}

func (rec *Reconciler) push(cursor *stackCursor, value any) {
	rec.valueStack = append(rec.valueStack, stackEntry{cursor, cursor.current})
	cursor.current = value
}

func (rec *Reconciler) pop(cursor *stackCursor) {
	n := len(rec.valueStack) - 1
	if n < 0 {
		panic("fiber: unexpected pop, value stack is empty")
	}
	entry := rec.valueStack[n]
	if entry.cursor != cursor {
		panic("fiber: unexpected pop, cursor mismatch")
	}
	cursor.current = entry.value
	rec.valueStack = rec.valueStack[:n]
}
