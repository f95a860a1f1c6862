// Maps flat caller supplied fields to Notion property values.

package notion

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultProperties returns the property set used when a page is created
// without any properties.
func DefaultProperties() FlatProperties {
	return FlatProperties{
		"Name":   "Untitled from Action Test",
		"Status": "Not started",
	}
}

// MapProperties converts flat fields to Notion property values.
//
// It never fails. Values are coerced to text where the target type needs it.
// An Order value that is not a number is left out of the result.
func MapProperties(flat FlatProperties) Properties {
	props, _ := MapPropertiesChecked(flat)
	return props
}

// MapPropertiesChecked is MapProperties that also returns the names of the
// fields it left out of the result.
func MapPropertiesChecked(flat FlatProperties) (Properties, []string) {
	props := make(Properties, len(flat))
	var dropped []string
	for name, value := range flat {
		switch name {
		case "Name":
			props[name] = PropertyValue{Type: PropertyTypeTitle, Title: textRuns(value)}
		case "Status":
			props[name] = PropertyValue{Type: PropertyTypeStatus, Status: &StatusValue{Name: toText(value)}}
		case "Section", "Source":
			props[name] = PropertyValue{Type: PropertyTypeSelect, Select: &SelectValue{Name: toText(value)}}
		case "Tags":
			props[name] = PropertyValue{Type: PropertyTypeMultiSelect, MultiSelect: toMultiSelect(value)}
		case "Order":
			n, ok := toNumber(value)
			if !ok {
				dropped = append(dropped, name)
				continue
			}
			props[name] = PropertyValue{Type: PropertyTypeNumber, Number: n}
		default:
			// Content and every unknown field.
			props[name] = PropertyValue{Type: PropertyTypeRichText, RichText: textRuns(value)}
		}
	}
	return props, dropped
}

func textRuns(v any) []RichText {
	return []RichText{{Text: TextContent{Content: toText(v)}}}
}

// toText renders a decoded JSON value as text.
//
// Strings are kept verbatim and numbers keep their literal form. null, true
// and false render as None, True and False, which is what existing callers
// already see in their Notion databases.
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// toMultiSelect splits tags on ';' and ','. A list is taken element by
// element. Blank tags are dropped.
func toMultiSelect(v any) []SelectValue {
	var names []string
	switch t := v.(type) {
	case nil:
	case []any:
		for _, e := range t {
			names = append(names, strings.TrimSpace(toText(e)))
		}
	case []string:
		for _, e := range t {
			names = append(names, strings.TrimSpace(e))
		}
	default:
		names = strings.FieldsFunc(toText(t), func(r rune) bool { return r == ';' || r == ',' })
	}
	out := make([]SelectValue, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, SelectValue{Name: n})
		}
	}
	return out
}

// toNumber parses v as a float. The result is always written in plain
// decimal notation so whole numbers serialize as JSON integers.
func toNumber(v any) (json.Number, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(toText(v)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	if f == 0 {
		// Drop the sign of negative zero.
		f = 0
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64)), true
}
