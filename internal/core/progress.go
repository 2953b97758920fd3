package core

import (
	"context"
	"sort"

	"github.com/Aamm5845/residentone-workflow-sub002/pkg/domain"
)

// ComputeProgress summarises completion over the room's visible items.
// Members may read only the rooms they are assigned to.
func (s *Service) ComputeProgress(ctx context.Context, roomID string) (domain.Progress, error) {
	var progress domain.Progress
	err := s.run(ctx, "compute_progress", func(ctx context.Context) (string, error) {
		if _, err := requireRoomViewer(ctx, roomID); err != nil {
			return roomID, err
		}
		return roomID, s.store.View(ctx, func(view domain.TransactionView) error {
			if !view.RoomExists(roomID) {
				return domain.NewNotFoundError(EntityRoom, roomID)
			}
			progress = computeProgress(view, roomID)
			return nil
		})
	})
	return progress, err
}

// GetRoomState returns the room's items in display order with its progress.
// Hidden items are omitted unless includeHidden is set.
func (s *Service) GetRoomState(ctx context.Context, roomID string, includeHidden bool) (domain.RoomState, error) {
	var state domain.RoomState
	err := s.run(ctx, "get_room_state", func(ctx context.Context) (string, error) {
		if _, err := requireRoomViewer(ctx, roomID); err != nil {
			return roomID, err
		}
		return roomID, s.store.View(ctx, func(view domain.TransactionView) error {
			if !view.RoomExists(roomID) {
				return domain.NewNotFoundError(EntityRoom, roomID)
			}
			state = roomState(view, roomID, includeHidden)
			return nil
		})
	})
	return state, err
}

func roomState(view domain.TransactionView, roomID string, includeHidden bool) domain.RoomState {
	ordered := orderRoomItems(view, view.ListRoomItems(roomID))
	items := make([]RoomItem, 0, len(ordered))
	for _, item := range ordered {
		if item.Visible || includeHidden {
			items = append(items, item)
		}
	}
	return domain.RoomState{RoomID: roomID, Items: items, Progress: progressOf(ordered)}
}

func computeProgress(view domain.TransactionView, roomID string) domain.Progress {
	return progressOf(orderRoomItems(view, view.ListRoomItems(roomID)))
}

// progressOf counts visible items only. NOT_APPLICABLE items count toward
// the total but never toward completion; an empty room is 100 percent.
func progressOf(items []RoomItem) domain.Progress {
	p := domain.Progress{ByStatus: make(map[Status]int, 4), Sections: []domain.SectionProgress{}}
	for _, st := range domain.Statuses() {
		p.ByStatus[st] = 0
	}
	sectionIdx := make(map[string]int)
	for _, item := range items {
		if !item.Visible {
			continue
		}
		p.Total++
		p.ByStatus[item.Status]++
		idx, ok := sectionIdx[item.SectionID]
		if !ok {
			idx = len(p.Sections)
			sectionIdx[item.SectionID] = idx
			p.Sections = append(p.Sections, domain.SectionProgress{SectionID: item.SectionID, Name: item.SectionName})
		}
		p.Sections[idx].Total++
		if item.Status == domain.StatusCompleted {
			p.Completed++
			p.Sections[idx].Completed++
		}
	}
	p.Percent = percent(p.Completed, p.Total)
	for i := range p.Sections {
		p.Sections[i].Percent = percent(p.Sections[i].Completed, p.Sections[i].Total)
	}
	return p
}

func percent(completed, total int) int {
	if total == 0 {
		return 100
	}
	return completed * 100 / total
}

// orderRoomItems arranges items as roots by (section, position), each
// followed depth-first by its children ordered by (expansion sequence,
// position).
func orderRoomItems(view domain.TransactionView, items []RoomItem) []RoomItem {
	byID := make(map[string]struct{}, len(items))
	for _, item := range items {
		byID[item.ID] = struct{}{}
	}
	var roots []RoomItem
	children := make(map[string][]RoomItem)
	for _, item := range items {
		if item.ParentItemID != nil {
			if _, ok := byID[*item.ParentItemID]; ok {
				children[*item.ParentItemID] = append(children[*item.ParentItemID], item)
				continue
			}
		}
		roots = append(roots, item)
	}
	sort.SliceStable(roots, func(i, j int) bool {
		a, b := roots[i], roots[j]
		if a.SectionPosition != b.SectionPosition {
			return a.SectionPosition < b.SectionPosition
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	out := make([]RoomItem, 0, len(items))
	var walk func(item RoomItem)
	walk = func(item RoomItem) {
		out = append(out, item)
		kids := children[item.ID]
		if len(kids) == 0 {
			return
		}
		seq := make(map[string]int)
		for _, exp := range view.ListExpansions(item.ID) {
			seq[exp.ID] = exp.Sequence
		}
		sort.SliceStable(kids, func(i, j int) bool {
			si, sj := seq[domain.StrValue(kids[i].ExpansionID)], seq[domain.StrValue(kids[j].ExpansionID)]
			if si != sj {
				return si < sj
			}
			return kids[i].Position < kids[j].Position
		})
		for _, kid := range kids {
			walk(kid)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return out
}
