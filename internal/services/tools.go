package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/serviteq/fieldops-backend/internal/catalog"
	"github.com/serviteq/fieldops-backend/internal/dto"
	"github.com/serviteq/fieldops-backend/internal/metrics"
	"github.com/serviteq/fieldops-backend/pkg/logger"
)

const errTableDenied = "Acceso denegado o tabla inválida."

const defaultQueryLimit = 10

type tableStore interface {
	Query(ctx context.Context, spec dto.QuerySpec) ([]map[string]any, error)
	GroupedCount(ctx context.Context, table, groupBy string, filters []dto.Filter) ([]map[string]any, error)
	Update(ctx context.Context, table string, filters []dto.Filter, updates map[string]any) (int, []map[string]any, error)
	Insert(ctx context.Context, table string, values map[string]any) (map[string]any, error)
}

// toolExecutor turns model-issued tool calls into store operations. It never
// returns a Go error: every failure folds into ToolOutcome.Error so the model
// can relay it conversationally.
type toolExecutor struct {
	store   tableStore
	metrics *metrics.Metrics
}

func NewToolExecutor(store tableStore, m *metrics.Metrics) *toolExecutor {
	return &toolExecutor{store: store, metrics: m}
}

func (e *toolExecutor) Execute(ctx context.Context, call dto.ToolCall) dto.ToolOutcome {
	log := logger.FromContext(ctx)

	outcome := e.execute(ctx, call)
	result := "ok"
	if outcome.Error != "" {
		result = "error"
		log.Warn("tool execution failed", "tool", call.Name, "error", outcome.Error)
	} else {
		log.Info("tool executed", "tool", call.Name)
	}
	e.metrics.ToolExecutions.WithLabelValues(call.Name, result).Inc()
	return outcome
}

func (e *toolExecutor) execute(ctx context.Context, call dto.ToolCall) dto.ToolOutcome {
	table, _ := call.Args["tableName"].(string)
	if !catalog.IsTableAllowed(table) {
		return dto.ToolOutcome{Error: errTableDenied}
	}

	switch call.Name {
	case catalog.ToolExecuteQuery:
		return e.executeQuery(ctx, call.Args)
	case catalog.ToolGetAggregate:
		return e.getAggregate(ctx, call.Args)
	case catalog.ToolPerformAction:
		return e.performAction(ctx, call.Args)
	default:
		return dto.ToolOutcome{Error: fmt.Sprintf("herramienta no soportada: %s", call.Name)}
	}
}

func (e *toolExecutor) executeQuery(ctx context.Context, args map[string]any) dto.ToolOutcome {
	spec, err := decodeArgs[dto.QuerySpec](args)
	if err != nil {
		return dto.ToolOutcome{Error: err.Error()}
	}
	if spec.Limit <= 0 {
		spec.Limit = defaultQueryLimit
	}

	rows, err := e.store.Query(ctx, spec)
	if err != nil {
		return dto.ToolOutcome{Error: err.Error()}
	}
	return dto.ToolOutcome{Results: rows}
}

func (e *toolExecutor) getAggregate(ctx context.Context, args map[string]any) dto.ToolOutcome {
	spec, err := decodeArgs[dto.AggregateSpec](args)
	if err != nil {
		return dto.ToolOutcome{Error: err.Error()}
	}

	switch spec.AggregationType {
	case "COUNT":
		rows, err := e.store.GroupedCount(ctx, spec.TableName, spec.GroupByColumn, spec.Filters)
		if err != nil {
			return dto.ToolOutcome{Error: err.Error()}
		}
		return dto.ToolOutcome{Results: rows}

	case "SUM":
		// Grouped SUM is not available through the thin query surface, so the
		// raw pairs are fetched and reduced here. COUNT stays store-side.
		if spec.ValueColumn == "" {
			return dto.ToolOutcome{Error: "valueColumn es obligatoria para SUM"}
		}
		query := dto.QuerySpec{
			TableName: spec.TableName,
			Filters:   spec.Filters,
		}
		if spec.GroupByColumn != "" {
			query.Select = []string{spec.GroupByColumn, spec.ValueColumn}
		} else {
			query.Select = []string{spec.ValueColumn}
		}
		rows, err := e.store.Query(ctx, query)
		if err != nil {
			return dto.ToolOutcome{Error: err.Error()}
		}
		return dto.ToolOutcome{Results: reduceSum(rows, spec.GroupByColumn, spec.ValueColumn)}

	default:
		return dto.ToolOutcome{Error: fmt.Sprintf("tipo de agregación no soportado: %s", spec.AggregationType)}
	}
}

func (e *toolExecutor) performAction(ctx context.Context, args map[string]any) dto.ToolOutcome {
	spec, err := decodeArgs[dto.ActionSpec](args)
	if err != nil {
		return dto.ToolOutcome{Error: err.Error()}
	}

	updates, err := parseUpdates(spec.Updates)
	if err != nil {
		return dto.ToolOutcome{Error: err.Error()}
	}

	switch spec.ActionType {
	case "UPDATE":
		// An empty filter list would rewrite every row of the table; that is
		// never what a conversational request means.
		if len(spec.Filters) == 0 {
			return dto.ToolOutcome{Error: "UPDATE requiere al menos un filtro"}
		}
		count, rows, err := e.store.Update(ctx, spec.TableName, spec.Filters, updates)
		if err != nil {
			return dto.ToolOutcome{Error: err.Error()}
		}
		return dto.ToolOutcome{
			Results: rows,
			Message: fmt.Sprintf("Se actualizaron %d registro(s).", count),
		}

	case "INSERT":
		row, err := e.store.Insert(ctx, spec.TableName, updates)
		if err != nil {
			return dto.ToolOutcome{Error: err.Error()}
		}
		return dto.ToolOutcome{
			Results: []map[string]any{row},
			Message: "Se insertaron 1 registro(s).",
		}

	default:
		return dto.ToolOutcome{Error: fmt.Sprintf("tipo de acción no soportado: %s", spec.ActionType)}
	}
}

func parseUpdates(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, fmt.Errorf("updates es obligatorio y debe ser un objeto JSON")
	}
	var updates map[string]any
	if err := json.Unmarshal([]byte(raw), &updates); err != nil {
		return nil, fmt.Errorf("updates no es un objeto JSON válido: %v", err)
	}
	if updates == nil {
		return nil, fmt.Errorf("updates no puede ser null")
	}
	return updates, nil
}

// reduceSum folds raw (groupBy, value) rows into one row per group key.
// Output order is sorted by key so repeated runs are identical.
func reduceSum(rows []map[string]any, groupBy, valueColumn string) []map[string]any {
	totals := map[string]float64{}
	for _, row := range rows {
		key := ""
		if groupBy != "" {
			key = fmt.Sprintf("%v", row[groupBy])
		}
		totals[key] += toFloat(row[valueColumn])
	}

	keys := make([]string, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		row := map[string]any{"total": totals[key]}
		if groupBy != "" {
			row[groupBy] = key
		}
		out = append(out, row)
	}
	return out
}

func toFloat(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case json.Number:
		f, _ := value.Float64()
		return f
	default:
		return 0
	}
}

func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	if len(args) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
