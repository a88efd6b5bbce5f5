package dto

// AIResponse is the single shape the chat surface renders. Both the model
// tool-loop and the webhook bridge must converge on it.
type AIResponse struct {
	DisplayText    string          `json:"displayText"`
	Table          *TableData      `json:"table,omitempty"`
	Chart          *ChartData      `json:"chart,omitempty"`
	Actions        []Action        `json:"actions,omitempty"`
	Form           []FormField     `json:"form,omitempty"`
	Suggestions    []string        `json:"suggestions,omitempty"`
	ImageViewer    *MediaContent   `json:"imageViewer,omitempty"`
	FileViewer     *MediaContent   `json:"fileViewer,omitempty"`
	VideoPlayer    *MediaContent   `json:"videoPlayer,omitempty"`
	AudioPlayer    *MediaContent   `json:"audioPlayer,omitempty"`
	TableComponent *TableComponent `json:"tableComponent,omitempty"`
	RecordView     *RecordView     `json:"recordView,omitempty"`
	List           *ListComponent  `json:"list,omitempty"`
	StatusDisplay  *StatusDisplay  `json:"statusDisplay,omitempty"`
}

// TableData is the simple header/rows table the model emits directly.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type ChartData struct {
	Type   string    `json:"type"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type Action struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

type FormField struct {
	Name      string   `json:"name"`
	Label     string   `json:"label,omitempty"`
	FieldType string   `json:"fieldType"`
	Value     string   `json:"value,omitempty"`
	Options   []string `json:"options,omitempty"`
	Required  bool     `json:"required,omitempty"`
}

type MediaContent struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// TableComponent is the rich table produced by the webhook bridge: explicit
// header/accessor columns over row maps, with optional per-row actions.
type TableComponent struct {
	Columns    []TableColumn    `json:"columns"`
	Rows       []map[string]any `json:"rows"`
	RowActions []Action         `json:"rowActions,omitempty"`
}

type TableColumn struct {
	Header   string `json:"header"`
	Accessor string `json:"accessor"`
}

type RecordView struct {
	Fields []RecordField `json:"fields"`
}

type RecordField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type ListComponent struct {
	Title string   `json:"title,omitempty"`
	Items []string `json:"items"`
}

// StatusDisplay tags terminal outcomes, e.g. kind "error" after the webhook
// bridge exhausts its retries.
type StatusDisplay struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
