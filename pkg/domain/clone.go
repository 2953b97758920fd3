package domain

// CloneLogicOptions deep-copies a logic option list including nested sub item options.
func CloneLogicOptions(in []LogicOption) []LogicOption {
	if in == nil {
		return nil
	}
	out := make([]LogicOption, len(in))
	for i, opt := range in {
		out[i] = opt
		if opt.SubItems != nil {
			out[i].SubItems = make([]SubItem, len(opt.SubItems))
			for j, sub := range opt.SubItems {
				cp := sub
				if sub.Category != nil {
					cp.Category = StrPtr(*sub.Category)
				}
				cp.LogicOptions = CloneLogicOptions(sub.LogicOptions)
				out[i].SubItems[j] = cp
			}
		}
	}
	return out
}

// CloneTemplateItem returns a deep copy of the item.
func CloneTemplateItem(t TemplateItem) TemplateItem {
	cp := t
	cp.LogicOptions = CloneLogicOptions(t.LogicOptions)
	return cp
}

// CloneRoomItem returns a deep copy of the room item.
func CloneRoomItem(r RoomItem) RoomItem {
	cp := r
	cp.TemplateItemID = clonePtr(r.TemplateItemID)
	cp.ParentItemID = clonePtr(r.ParentItemID)
	cp.SourceLogicOptionID = clonePtr(r.SourceLogicOptionID)
	cp.ExpansionID = clonePtr(r.ExpansionID)
	cp.ActiveLogicOptionID = clonePtr(r.ActiveLogicOptionID)
	cp.LogicOptions = CloneLogicOptions(r.LogicOptions)
	return cp
}

// CloneExpansion returns a deep copy of the expansion record.
func CloneExpansion(e Expansion) Expansion {
	cp := e
	cp.ChildIDs = append([]string(nil), e.ChildIDs...)
	if e.SupersededAt != nil {
		at := *e.SupersededAt
		cp.SupersededAt = &at
	}
	return cp
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	return StrPtr(*p)
}
