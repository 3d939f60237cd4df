package models

// ReactionGroups — набор счётчиков реакций сущности.
type ReactionGroups []ReactionGroup

// Total — сумма всех счётчиков.
func (g ReactionGroups) Total() int {
	total := 0
	for _, rg := range g {
		total += rg.Count
	}

	return total
}

// Find возвращает группу по реакции.
func (g ReactionGroups) Find(content ReactionContent) (ReactionGroup, bool) {
	for _, rg := range g {
		if rg.Content == content {
			return rg, true
		}
	}

	return ReactionGroup{}, false
}

// Toggle возвращает новый набор, где у группы content инвертирован
// ViewerHasReacted, а Count изменён на ±1 (не ниже нуля).
// Исходный срез не меняется. Если группы нет, ok == false и возвращается g.
func (g ReactionGroups) Toggle(content ReactionContent) (out ReactionGroups, ok bool) {
	idx := -1
	for i, rg := range g {
		if rg.Content == content {
			idx = i
			break
		}
	}

	if idx < 0 {
		return g, false
	}

	out = make(ReactionGroups, len(g))
	copy(out, g)

	rg := out[idx]
	if rg.ViewerHasReacted {
		rg.Count--
		if rg.Count < 0 {
			rg.Count = 0
		}
	} else {
		rg.Count++
	}
	rg.ViewerHasReacted = !rg.ViewerHasReacted
	out[idx] = rg

	return out, true
}
