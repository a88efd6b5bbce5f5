package catalog

import "github.com/serviteq/fieldops-backend/internal/dto"

// Tool names as the model sees them.
const (
	ToolExecuteQuery  = "executeQueryOnDatabase"
	ToolGetAggregate  = "getAggregateData"
	ToolPerformAction = "performAction"
)

func filterSchema() *dto.Schema {
	return &dto.Schema{
		Type:        "array",
		Description: "Lista de filtros; se aplican todos (AND).",
		Items: &dto.Schema{
			Type: "object",
			Properties: map[string]*dto.Schema{
				"column":   {Type: "string", Description: "Columna a filtrar."},
				"operator": {Type: "string", Description: "Operador: eq, neq, gt, gte, lt, lte, in."},
				"value":    {Type: "string", Description: "Valor de comparación."},
			},
			Required: []string{"column", "operator", "value"},
		},
	}
}

// ToolSchemas declares the three operations the model may request.
func ToolSchemas() []dto.ToolSchema {
	return []dto.ToolSchema{
		{
			Name:        ToolExecuteQuery,
			Description: "Consulta registros de una tabla con filtros, orden y límite.",
			Parameters: &dto.Schema{
				Type: "object",
				Properties: map[string]*dto.Schema{
					"tableName": {Type: "string", Enum: AllowedTables, Description: "Tabla a consultar."},
					"select":    {Type: "array", Items: &dto.Schema{Type: "string"}, Description: "Columnas a proyectar; omite para todas."},
					"filters":   filterSchema(),
					"orderBy":   {Type: "string", Description: "Columna de ordenamiento."},
					"ascending": {Type: "boolean", Description: "Orden ascendente; por defecto true."},
					"limit":     {Type: "integer", Description: "Máximo de registros; por defecto 10."},
				},
				Required: []string{"tableName"},
			},
		},
		{
			Name:        ToolGetAggregate,
			Description: "Calcula agregados (COUNT o SUM) agrupados por una columna.",
			Parameters: &dto.Schema{
				Type: "object",
				Properties: map[string]*dto.Schema{
					"tableName":       {Type: "string", Enum: AllowedTables, Description: "Tabla a agregar."},
					"aggregationType": {Type: "string", Enum: []string{"COUNT", "SUM"}, Description: "Tipo de agregación."},
					"groupByColumn":   {Type: "string", Description: "Columna de agrupamiento."},
					"valueColumn":     {Type: "string", Description: "Columna numérica a sumar; obligatoria para SUM."},
					"filters":         filterSchema(),
				},
				Required: []string{"tableName", "aggregationType"},
			},
		},
		{
			Name:        ToolPerformAction,
			Description: "Modifica datos: UPDATE (requiere filters) o INSERT.",
			Parameters: &dto.Schema{
				Type: "object",
				Properties: map[string]*dto.Schema{
					"tableName":  {Type: "string", Enum: AllowedTables, Description: "Tabla a modificar."},
					"actionType": {Type: "string", Enum: []string{"UPDATE", "INSERT"}, Description: "Tipo de acción."},
					"filters":    filterSchema(),
					"updates":    {Type: "string", Description: "Objeto JSON (como string) con los campos a escribir."},
				},
				Required: []string{"tableName", "actionType", "updates"},
			},
		},
	}
}
