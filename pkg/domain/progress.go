package domain

// Progress summarises completion over the visible items of a room.
type Progress struct {
	Total     int               `json:"total"`
	Completed int               `json:"completed"`
	Percent   int               `json:"percent"`
	ByStatus  map[Status]int    `json:"by_status"`
	Sections  []SectionProgress `json:"sections,omitempty"`
}

// SectionProgress is the per-section breakdown of Progress.
type SectionProgress struct {
	SectionID string `json:"section_id"`
	Name      string `json:"name"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Percent   int    `json:"percent"`
}

// RoomState is the ordered checklist of one room with its progress.
type RoomState struct {
	RoomID   string     `json:"room_id"`
	Items    []RoomItem `json:"items"`
	Progress Progress   `json:"progress"`
}

// TemplateDetail is a template with its sections and items in display order.
type TemplateDetail struct {
	Template Template           `json:"template"`
	Sections []SectionWithItems `json:"sections"`
}

// SectionWithItems pairs a section with its ordered items.
type SectionWithItems struct {
	Section Section        `json:"section"`
	Items   []TemplateItem `json:"items"`
}
