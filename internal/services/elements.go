package services

import (
	"fmt"
	"strings"

	"github.com/serviteq/fieldops-backend/internal/dto"
)

// foldElements walks the webhook's UI-element list once, bucketing by type,
// and assembles the response contract. Folding is deterministic: the same
// element list always yields byte-identical output.
func foldElements(items []any) dto.AIResponse {
	var response dto.AIResponse
	var textLines []string
	var legacyItems []string

	for _, item := range items {
		element, ok := item.(map[string]any)
		if !ok {
			continue
		}
		kind, _ := element["type"].(string)
		attrs, _ := element["attributes"].(map[string]any)

		switch kind {
		case "label":
			if text := attrString(attrs, "text"); text != "" {
				textLines = append(textLines, text)
			}

		case "field", "checkbox", "combobox", "hidden", "file_base64":
			response.Form = append(response.Form, dto.FormField{
				Name:      attrString(attrs, "name"),
				Label:     attrString(attrs, "label"),
				FieldType: kind,
				Value:     attrString(attrs, "value"),
				Options:   attrStrings(attrs, "options"),
				Required:  attrBool(attrs, "required"),
			})

		case "button":
			response.Actions = append(response.Actions, foldAction(attrs))

		case "list":
			listItems := attrStrings(attrs, "items")
			response.List = &dto.ListComponent{
				Title: attrString(attrs, "title"),
				Items: listItems,
			}
			// Lists also flatten into the text so a plain-text surface still
			// shows something useful.
			for _, entry := range listItems {
				textLines = append(textLines, "• "+entry)
			}

		case "image_viewer":
			response.ImageViewer = foldMedia(attrs)
		case "file_viewer":
			response.FileViewer = foldMedia(attrs)
		case "video_player":
			response.VideoPlayer = foldMedia(attrs)
		case "audio_player":
			response.AudioPlayer = foldMedia(attrs)

		case "table":
			response.TableComponent = foldTable(attrs)

		case "record_view":
			response.RecordView = foldRecordView(attrs)

		default:
			// Oldest format: an untyped element carrying bare items.
			legacyItems = append(legacyItems, attrStrings(attrs, "items")...)
		}
	}

	if len(legacyItems) > 0 && response.List == nil {
		rows := make([][]string, 0, len(legacyItems))
		for _, entry := range legacyItems {
			rows = append(rows, []string{entry})
		}
		response.Table = &dto.TableData{Headers: []string{"Item"}, Rows: rows}
	}

	response.DisplayText = strings.TrimSpace(strings.Join(textLines, "\n\n"))
	if response.DisplayText == "" && emptyResponse(response) {
		response.DisplayText = errNoMeaningfulResponse
	}
	return response
}

func foldAction(attrs map[string]any) dto.Action {
	label := attrString(attrs, "text")
	if label == "" {
		label = attrString(attrs, "label")
	}
	return dto.Action{
		Label:  label,
		Prompt: attrString(attrs, "action"),
	}
}

func foldMedia(attrs map[string]any) *dto.MediaContent {
	return &dto.MediaContent{
		URL:   attrString(attrs, "url"),
		Title: attrString(attrs, "title"),
	}
}

// foldTable maps columns to header/accessor pairs: a string column is both,
// an object column names them separately.
func foldTable(attrs map[string]any) *dto.TableComponent {
	table := &dto.TableComponent{Rows: []map[string]any{}}

	if columns, ok := attrs["columns"].([]any); ok {
		for _, column := range columns {
			switch c := column.(type) {
			case string:
				table.Columns = append(table.Columns, dto.TableColumn{Header: c, Accessor: c})
			case map[string]any:
				table.Columns = append(table.Columns, dto.TableColumn{
					Header:   attrString(c, "header"),
					Accessor: attrString(c, "accessor"),
				})
			}
		}
	}

	if data, ok := attrs["data"].([]any); ok {
		for _, row := range data {
			if obj, ok := row.(map[string]any); ok {
				table.Rows = append(table.Rows, obj)
			}
		}
	}

	if rowActions, ok := attrs["row_actions"].([]any); ok {
		for _, action := range rowActions {
			if obj, ok := action.(map[string]any); ok {
				table.RowActions = append(table.RowActions, foldAction(obj))
			}
		}
	}

	return table
}

func foldRecordView(attrs map[string]any) *dto.RecordView {
	record := &dto.RecordView{Fields: []dto.RecordField{}}
	if fields, ok := attrs["fields"].([]any); ok {
		for _, field := range fields {
			if obj, ok := field.(map[string]any); ok {
				record.Fields = append(record.Fields, dto.RecordField{
					Label: attrString(obj, "label"),
					Value: attrString(obj, "value"),
				})
			}
		}
	}
	return record
}

func emptyResponse(r dto.AIResponse) bool {
	return r.Table == nil && r.Chart == nil && len(r.Actions) == 0 && len(r.Form) == 0 &&
		len(r.Suggestions) == 0 && r.ImageViewer == nil && r.FileViewer == nil &&
		r.VideoPlayer == nil && r.AudioPlayer == nil && r.TableComponent == nil &&
		r.RecordView == nil && r.List == nil
}

func attrString(attrs map[string]any, key string) string {
	if attrs == nil {
		return ""
	}
	switch value := attrs[key].(type) {
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%g", value)
	case bool:
		return fmt.Sprintf("%t", value)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", value)
	}
}

func attrStrings(attrs map[string]any, key string) []string {
	if attrs == nil {
		return nil
	}
	items, ok := attrs[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch value := item.(type) {
		case string:
			out = append(out, value)
		default:
			out = append(out, fmt.Sprintf("%v", value))
		}
	}
	return out
}

func attrBool(attrs map[string]any, key string) bool {
	if attrs == nil {
		return false
	}
	value, _ := attrs[key].(bool)
	return value
}
