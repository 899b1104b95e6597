package models

import (
	"github.com/spf13/cast"
)

// Tab is the page reference a snooze request carries. ID names the open
// tab on the host so it can be closed once snoozed.
type Tab struct {
	ID      string `json:"id,omitempty"`
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Favicon string `json:"favicon,omitempty"`
}

func TabFromMap(m map[string]any) Tab {
	favicon := cast.ToString(m[fieldFavicon])
	if favicon == "" {
		favicon = cast.ToString(m["favIconUrl"])
	}
	return Tab{
		ID:      cast.ToString(m[fieldID]),
		URL:     cast.ToString(m[fieldURL]),
		Title:   cast.ToString(m[fieldTitle]),
		Favicon: favicon,
	}
}

// ItemRef identifies a stored item either by id or by the legacy
// popTime/creationTime pair.
type ItemRef struct {
	ID           string `json:"id,omitempty"`
	PopTime      int64  `json:"popTime,omitempty"`
	CreationTime int64  `json:"creationTime,omitempty"`
}

func ItemRefFromMap(m map[string]any) ItemRef {
	return ItemRef{
		ID:           cast.ToString(m[fieldID]),
		PopTime:      cast.ToInt64(m[fieldPopTime]),
		CreationTime: cast.ToInt64(m[fieldCreationTime]),
	}
}

// Find resolves the reference against the document.
func (r ItemRef) Find(doc DocumentV2) (SnoozedItem, bool) {
	if r.ID != "" {
		item, ok := doc.Items[r.ID]
		return item, ok
	}
	for _, id := range doc.Schedule[BucketKey(r.PopTime)] {
		if item := doc.Items[id]; item.CreationTime == r.CreationTime {
			return item, true
		}
	}
	return SnoozedItem{}, false
}

// ImportResult is the answer to an import request.
type ImportResult struct {
	Success    bool   `json:"success"`
	AddedCount int    `json:"addedCount,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Ack struct {
	Success bool `json:"success"`
}
