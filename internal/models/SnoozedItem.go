package models

import (
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

const (
	fieldID           = "id"
	fieldURL          = "url"
	fieldTitle        = "title"
	fieldFavicon      = "favicon"
	fieldCreationTime = "creationTime"
	fieldPopTime      = "popTime"
	fieldGroupID      = "groupId"
)

// SnoozedItem is a single snoozed page reference. Fields the current schema
// does not know about are kept in Extra and written back unchanged.
type SnoozedItem struct {
	ID           string
	URL          string
	Title        string
	Favicon      string
	CreationTime int64
	PopTime      int64
	GroupID      string
	Extra        map[string]any
}

func (i SnoozedItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Extra)+7)
	for k, v := range i.Extra {
		out[k] = v
	}
	if i.ID != "" {
		out[fieldID] = i.ID
	}
	out[fieldURL] = i.URL
	if i.Title != "" {
		out[fieldTitle] = i.Title
	}
	if i.Favicon != "" {
		out[fieldFavicon] = i.Favicon
	}
	out[fieldCreationTime] = i.CreationTime
	out[fieldPopTime] = i.PopTime
	if i.GroupID != "" {
		out[fieldGroupID] = i.GroupID
	}
	return json.Marshal(out)
}

func (i *SnoozedItem) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("snoozed item must be an object")
	}
	if errs := ValidateItem(m); len(errs) > 0 {
		return fmt.Errorf("invalid snoozed item: %s", errs[0])
	}
	*i = itemFromMap(m)
	return nil
}

// ValidateItem checks the required fields of a raw item object.
func ValidateItem(raw any) []string {
	m, ok := raw.(map[string]any)
	if !ok || m == nil {
		return []string{"Item must be an object"}
	}

	var errs []string
	if v, ok := m[fieldURL]; !ok || v == nil {
		errs = append(errs, "Missing required field: url")
	} else if _, ok := v.(string); !ok {
		errs = append(errs, "url must be a string")
	}
	for _, field := range []string{fieldCreationTime, fieldPopTime} {
		v, ok := m[field]
		if !ok || v == nil {
			errs = append(errs, "Missing required field: "+field)
			continue
		}
		if !isNumber(v) {
			errs = append(errs, field+" must be a number")
		}
	}
	return errs
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}

// itemFromMap assumes m already passed ValidateItem.
func itemFromMap(m map[string]any) SnoozedItem {
	item := SnoozedItem{
		URL:          m[fieldURL].(string),
		CreationTime: cast.ToInt64(m[fieldCreationTime]),
		PopTime:      cast.ToInt64(m[fieldPopTime]),
	}

	for k, v := range m {
		switch k {
		case fieldURL, fieldCreationTime, fieldPopTime:
			continue
		case fieldID, fieldTitle, fieldFavicon, fieldGroupID:
			if s, ok := v.(string); ok {
				switch k {
				case fieldID:
					item.ID = s
				case fieldTitle:
					item.Title = s
				case fieldFavicon:
					item.Favicon = s
				case fieldGroupID:
					item.GroupID = s
				}
				continue
			}
		}
		if item.Extra == nil {
			item.Extra = make(map[string]any)
		}
		item.Extra[k] = v
	}
	return item
}

func sortItems(items []SnoozedItem) {
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].CreationTime != items[b].CreationTime {
			return items[a].CreationTime < items[b].CreationTime
		}
		return items[a].ID < items[b].ID
	})
}
