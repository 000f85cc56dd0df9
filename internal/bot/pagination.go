package bot

// maxMessageLength leaves headroom below Telegram's 4096-character limit.
const maxMessageLength = 3500

// headerAllowance reserves room for the list header above the entries.
const headerAllowance = 64

// listPage is one window over the student list.
type listPage struct {
	Capacity int
	Total    int
	Pages    int
	Index    int
	Start    int
	End      int
}

// paginateLines packs lines greedily into budget to find a per-page
// capacity, then clamps the requested page into range. Capacity is
// recomputed on every render, so page boundaries may shift when the
// underlying list changes length.
func paginateLines(lines []string, budget, requested int) listPage {
	capacity, used := 0, 0
	for _, line := range lines {
		if used+len(line) > budget {
			break
		}
		used += len(line)
		capacity++
	}
	// A single oversized entry still gets its own page.
	if capacity == 0 && len(lines) > 0 {
		capacity = 1
	}

	total := len(lines)
	if total == 0 {
		return listPage{Capacity: capacity}
	}

	pages := (total + capacity - 1) / capacity
	index := requested
	if index < 0 {
		index = 0
	}
	if index > pages-1 {
		index = pages - 1
	}

	start := index * capacity
	end := start + capacity
	if end > total {
		end = total
	}
	return listPage{
		Capacity: capacity,
		Total:    total,
		Pages:    pages,
		Index:    index,
		Start:    start,
		End:      end,
	}
}
