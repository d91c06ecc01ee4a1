package heap

import "j5.nz/ovm/internal/value"

// FastGC runs the young-only collection algorithm of spec §4.E. extra,
// if non-nil, is visited as an additional transient root, for a caller
// protecting values it is mid-construction with beyond what it has
// registered permanently (every caller in this module passes nil).
func (h *Heap) FastGC(extra RootVisitor) {
	if h.gcSuppressed() {
		return
	}
	h.stats.FastGCs++
	if h.trace != nil {
		h.trace.Printf("FastGC #%d: new=%d remembered=%d", h.stats.FastGCs, len(h.news.active), len(h.olds.remembered))
	}

	// Step 1: mark young objects reachable from roots, not crossing
	// into old objects' fields (those are covered by step 2).
	mark := func(v value.Value) value.Value {
		h.markYoungRec(v)
		return v
	}
	for _, r := range h.roots {
		r.visitor(VisitMarkRecYoung, mark)
	}
	if extra != nil {
		extra(VisitMarkRecYoung, mark)
	}

	// Step 2: remembered sets (old) and flagged big-space nodes: walk
	// their fields looking for young targets. These entries are cleared
	// unconditionally in step 5, so every young object reached only
	// through them must be guaranteed to survive *this* cycle — use
	// markYoungForcePromote rather than markYoungRec so first discovery
	// here forces survivedOnce, not just mark.
	for slot := range h.olds.remembered {
		if slot < len(h.olds.slots) {
			if c := h.olds.slots[slot]; c != nil {
				for _, f := range c.Fields {
					h.markYoungForcePromote(f)
				}
			}
		}
	}
	for _, c := range h.bigs.slots {
		if c != nil && c.meta.bigYoungRef {
			for _, f := range c.Fields {
				h.markYoungForcePromote(f)
			}
		}
	}

	// Step 3: weak-reference finalize-young pass.
	query := h.weakQueryAlive(false)
	for _, w := range h.weaks {
		w.visitor(WeakFinalizeYoung, query)
	}

	// Step 4: relocate survivors; build the address-rewrite map.
	moved := make(map[value.Value]value.Value)
	var survivors []*cell
	for _, c := range h.news.active {
		if c == nil {
			continue
		}
		if !c.meta.mark {
			h.reclaim(c)
			continue
		}
		old := c.addr
		if c.meta.survivedOnce {
			slot := len(h.olds.slots)
			h.olds.slots = append(h.olds.slots, c)
			c.meta.oldGen = true
			c.addr = makeAddr(spaceOld, slot)
		} else {
			c.meta.survivedOnce = true
			slot := len(h.news.other)
			h.news.other = append(h.news.other, c)
			c.addr = makeAddr(spaceNew, slot)
		}
		moved[old] = c.addr
		c.meta.mark = false
		survivors = append(survivors, c)
	}
	h.news.swap()

	// Step 5: update references — surviving cells' own fields, roots,
	// and the recorded remembered-set holders; then clear those flags.
	for _, c := range survivors {
		rewriteFields(c.Fields, moved)
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
	for slot := range h.olds.remembered {
		if slot < len(h.olds.slots) {
			if c := h.olds.slots[slot]; c != nil {
				rewriteFields(c.Fields, moved)
			}
		}
		delete(h.olds.remembered, slot)
	}
	for _, c := range h.bigs.slots {
		if c != nil && c.meta.bigYoungRef {
			rewriteFields(c.Fields, moved)
			c.meta.bigYoungRef = false
		}
	}
}

func (h *Heap) markYoungRec(v value.Value) {
	if value.IsSmallInt(v) || v == value.Nil {
		return
	}
	c := h.resolve(v)
	if c == nil || c.meta.oldGen || c.meta.mark {
		return
	}
	c.meta.mark = true
	for _, f := range c.Fields {
		h.markYoungRec(f)
	}
}

// markYoungForcePromote is markYoungRec for objects reached only via an
// old holder's remembered-set entry or big-space bigYoungRef flag
// (gc_fast.go step 2). Those entries are cleared once this cycle
// finishes, so unlike a root-reachable object — which is merely
// eligible for promotion if it has already survived one collection —
// an object reached this way must be forced into this cycle's
// promotion on first discovery, mirroring
// OW_OBJMEM_OBJ_VISIT_MARK_REC_O2Y's unconditional MID set in the
// original core. A cell already marked by an earlier root/remembered
// visit this cycle still gets survivedOnce forced (its promotion
// decision hasn't been made yet — that happens in step 4) but isn't
// re-walked.
func (h *Heap) markYoungForcePromote(v value.Value) {
	if value.IsSmallInt(v) || v == value.Nil {
		return
	}
	c := h.resolve(v)
	if c == nil || c.meta.oldGen {
		return
	}
	alreadyMarked := c.meta.mark
	c.meta.mark = true
	c.meta.survivedOnce = true
	if alreadyMarked {
		return
	}
	for _, f := range c.Fields {
		h.markYoungForcePromote(f)
	}
}

func rewriteFields(fields []value.Value, moved map[value.Value]value.Value) {
	for i, f := range fields {
		if nv, ok := moved[f]; ok {
			fields[i] = nv
		}
	}
}

func (h *Heap) reclaim(c *cell) {
	if h.finalize != nil && !c.finalizerCalled {
		c.finalizerCalled = true
		h.finalize(c.class, c.addr)
	}
}
