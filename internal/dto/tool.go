package dto

import "encoding/json"

// ToolCall is a single operation requested by the model during a turn.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Filter is one atomic predicate. A list of filters is conjunctive.
// Operators travel verbatim to the store; the store rejects what it
// does not understand.
type Filter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

type QuerySpec struct {
	TableName string   `json:"tableName"`
	Select    []string `json:"select,omitempty"`
	Filters   []Filter `json:"filters,omitempty"`
	OrderBy   string   `json:"orderBy,omitempty"`
	Ascending *bool    `json:"ascending,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

type AggregateSpec struct {
	TableName       string   `json:"tableName"`
	AggregationType string   `json:"aggregationType"`
	GroupByColumn   string   `json:"groupByColumn,omitempty"`
	ValueColumn     string   `json:"valueColumn,omitempty"`
	Filters         []Filter `json:"filters,omitempty"`
}

type ActionSpec struct {
	TableName  string   `json:"tableName"`
	ActionType string   `json:"actionType"`
	Filters    []Filter `json:"filters,omitempty"`
	Updates    string   `json:"updates"`
}

// ToolOutcome is the executor's result for one tool call. Exactly one of
// Results/Message or Error is populated; it is serialized to a string before
// going back to the model.
type ToolOutcome struct {
	Results []map[string]any `json:"results,omitempty"`
	Message string           `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Serialize renders the outcome as the string payload of a tool-response
// envelope.
func (o ToolOutcome) Serialize() string {
	raw, err := json.Marshal(o)
	if err != nil {
		return `{"error":"no se pudo serializar el resultado"}`
	}
	return string(raw)
}

// ToolResponse correlates a serialized outcome back to the call it answers.
type ToolResponse struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}
