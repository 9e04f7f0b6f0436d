package filtering

// operationHandler keeps the filters of one operation sorted by Order, ties
// in insertion order. The slice is replaced on every change, so a slice
// handed out earlier is never modified.
type operationHandler struct {
	filters []Filter
}

func (h *operationHandler) hasFilters() bool {
	return len(h.filters) != 0
}

func (h *operationHandler) add(filter Filter) {
	order := filter.Order()
	idx := len(h.filters)
	for i, f := range h.filters {
		if f.Order() > order {
			idx = i
			break
		}
	}
	next := make([]Filter, 0, len(h.filters)+1)
	next = append(next, h.filters[:idx]...)
	next = append(next, filter)
	next = append(next, h.filters[idx:]...)
	h.filters = next
}

func (h *operationHandler) remove(filter Filter) {
	for i, f := range h.filters {
		if f == filter {
			next := make([]Filter, 0, len(h.filters)-1)
			next = append(next, h.filters[:i]...)
			next = append(next, h.filters[i+1:]...)
			h.filters = next
			return
		}
	}
}

// processMerged runs two pre-sorted chains as one, lowest Order first.
// On equal Order the instance filter runs first. ctx.Next is consulted
// before every filter and a false result ends the dispatch.
func processMerged(instance, typed []Filter, ctx Context) {
	i, j := 0, 0
	for i < len(instance) && j < len(typed) {
		var f Filter
		if instance[i].Order() <= typed[j].Order() {
			f = instance[i]
			i++
		} else {
			f = typed[j]
			j++
		}
		if !ctx.Next() {
			return
		}
		f.Process(ctx)
	}
	for ; i < len(instance); i++ {
		if !ctx.Next() {
			return
		}
		instance[i].Process(ctx)
	}
	for ; j < len(typed); j++ {
		if !ctx.Next() {
			return
		}
		typed[j].Process(ctx)
	}
}
