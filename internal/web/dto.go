package web

import (
	"peoplepulse/internal/calendar"
	"peoplepulse/internal/model"
)

type dayResponse struct {
	Date        string             `json:"date"`
	Occurrences []model.Occurrence `json:"occurrences"`
}

type dayDTO struct {
	Key          string             `json:"key"`
	Date         string             `json:"date"`
	InFocusMonth bool               `json:"inFocusMonth"`
	IsToday      bool               `json:"isToday"`
	IsFuture     bool               `json:"isFuture"`
	Expanded     bool               `json:"expanded,omitempty"`
	Markers      []calendar.Marker  `json:"markers"`
	Occurrences  []model.Occurrence `json:"occurrences"`
}

type gridResponse struct {
	Focus string        `json:"focus"`
	View  calendar.View `json:"view"`
	Weeks [][]dayDTO    `json:"weeks,omitempty"`
	Days  []dayDTO      `json:"days"`

	// ExpandedWeek is the row index holding the expanded day, -1 if none.
	ExpandedWeek int `json:"expandedWeek"`
}

type viewResponse struct {
	Focus       string             `json:"focus"`
	View        calendar.View      `json:"view"`
	PeriodStart string             `json:"periodStart"`
	Selected    string             `json:"selected,omitempty"`
	Expanded    []model.Occurrence `json:"expanded,omitempty"`
	Grid        gridResponse       `json:"grid"`
}

type refreshResponse struct {
	Events  int    `json:"events"`
	LastRun string `json:"lastRun,omitempty"`
	Error   string `json:"error,omitempty"`
}

// newGridResponse flattens g for JSON. sel may be nil.
func newGridResponse(g calendar.Grid, sel *calendar.Selection) gridResponse {
	resp := gridResponse{
		Focus:        g.Focus.Format(dateLayout),
		View:         g.View,
		Days:         make([]dayDTO, 0, len(g.Days)),
		ExpandedWeek: -1,
	}
	for _, d := range g.Days {
		resp.Days = append(resp.Days, newDayDTO(d, sel))
	}
	for i, week := range g.Weeks {
		row := make([]dayDTO, 0, len(week))
		for _, d := range week {
			row = append(row, newDayDTO(d, sel))
		}
		resp.Weeks = append(resp.Weeks, row)
		if sel != nil && sel.WeekExpanded(week) {
			resp.ExpandedWeek = i
		}
	}
	return resp
}

func newDayDTO(d calendar.Day, sel *calendar.Selection) dayDTO {
	occs := d.Occurrences
	if occs == nil {
		occs = []model.Occurrence{}
	}
	return dayDTO{
		Key:          d.Key(),
		Date:         d.Date.Format(dateLayout),
		InFocusMonth: d.InFocusMonth,
		IsToday:      d.IsToday,
		IsFuture:     d.IsFuture,
		Expanded:     sel != nil && sel.IsExpanded(d.Date),
		Markers:      d.Markers(),
		Occurrences:  occs,
	}
}
