package heap

import "j5.nz/ovm/internal/value"

// FullGC runs the whole-heap mark/sweep/compact algorithm of spec
// §4.E. extra is an optional transient root, as in FastGC.
func (h *Heap) FullGC(extra RootVisitor) {
	if h.gcSuppressed() {
		return
	}
	h.stats.FullGCs++
	if h.trace != nil {
		h.trace.Printf("FullGC #%d: old=%d new=%d big=%d", h.stats.FullGCs, len(h.olds.slots), len(h.news.active), len(h.bigs.slots))
	}

	// Step 1: mark everything reachable, no generation filter.
	mark := func(v value.Value) value.Value {
		h.markRec(v)
		return v
	}
	for _, r := range h.roots {
		r.visitor(VisitMarkRec, mark)
	}
	if extra != nil {
		extra(VisitMarkRec, mark)
	}

	// Step 2: weak-reference finalize pass (full).
	query := h.weakQueryAlive(true)
	for _, w := range h.weaks {
		w.visitor(WeakFinalize, query)
	}

	moved := make(map[value.Value]value.Value)

	// Step 3: sweep big space.
	for idx, c := range h.bigs.slots {
		if c == nil {
			continue
		}
		if !c.meta.mark {
			h.reclaim(c)
			h.bigs.remove(idx)
			continue
		}
		c.meta.mark = false
		c.meta.bigYoungRef = false
	}

	// Step 4: compact old space (slide survivors into a fresh slot
	// list in existing relative order, recording forwarding addresses).
	var compactedOld []*cell
	for _, c := range h.olds.slots {
		if c == nil {
			continue
		}
		if !c.meta.mark {
			h.reclaim(c)
			continue
		}
		old := c.addr
		c.meta.mark = false
		slot := len(compactedOld)
		compactedOld = append(compactedOld, c)
		c.addr = makeAddr(spaceOld, slot)
		moved[old] = c.addr
	}

	// Step 5: reallocate new-space survivors: never-survived go to the
	// (now-active) new space; once-survived are promoted, trailing the
	// old-space compaction above.
	for _, c := range h.news.active {
		if c == nil {
			continue
		}
		if !c.meta.mark {
			h.reclaim(c)
			continue
		}
		old := c.addr
		c.meta.mark = false
		if c.meta.survivedOnce {
			c.meta.oldGen = true
			slot := len(compactedOld)
			compactedOld = append(compactedOld, c)
			c.addr = makeAddr(spaceOld, slot)
		} else {
			c.meta.survivedOnce = true
			slot := len(h.news.other)
			h.news.other = append(h.news.other, c)
			c.addr = makeAddr(spaceNew, slot)
		}
		moved[old] = c.addr
	}
	h.olds.slots = compactedOld
	h.olds.remembered = make(map[int]struct{})
	h.news.swap()

	// Step 6: update references everywhere — surviving cells' own
	// fields, roots, and weak containers.
	for _, c := range h.olds.slots {
		rewriteFields(c.Fields, moved)
	}
	for _, c := range h.news.active {
		rewriteFields(c.Fields, moved)
	}
	for _, c := range h.bigs.slots {
		if c != nil {
			rewriteFields(c.Fields, moved)
		}
	}
	moveFn := func(v value.Value) value.Value {
		if nv, ok := moved[v]; ok {
			return nv
		}
		return v
	}
	for _, r := range h.roots {
		r.visitor(VisitMove, moveFn)
	}
	if extra != nil {
		extra(VisitMove, moveFn)
	}
	wq := h.weakQueryMove(moved)
	for _, w := range h.weaks {
		w.visitor(WeakMove, wq)
	}
}

func (h *Heap) markRec(v value.Value) {
	if value.IsSmallInt(v) || v == value.Nil {
		return
	}
	c := h.resolve(v)
	if c == nil || c.meta.mark {
		return
	}
	c.meta.mark = true
	for _, f := range c.Fields {
		h.markRec(f)
	}
}
