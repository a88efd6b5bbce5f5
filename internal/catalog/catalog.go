package catalog

import (
	"strings"
	"time"
)

// AllowedTables is the fixed set of collections any tool call may target.
// This list is the security boundary between the model and the store: a call
// naming anything else fails before a single store operation runs.
var AllowedTables = []string{
	"ReporteServicio",
	"ReporteVisita",
	"Empresa",
	"Planta",
	"Maquina",
	"Supervisor",
	"Usuario",
	"Rol",
	"Configuracion",
	"RolPermiso",
}

var allowedTableSet = func() map[string]bool {
	set := make(map[string]bool, len(AllowedTables))
	for _, name := range AllowedTables {
		set[name] = true
	}
	return set
}()

func IsTableAllowed(name string) bool {
	return allowedTableSet[name]
}

// tableDescriptions grounds the model's query generation. The text is injected
// verbatim into the system instruction.
var tableDescriptions = []string{
	"ReporteServicio: id, empresaId, plantaId, maquinaId, tecnico, fecha (YYYY-MM-DD), descripcion, horas (number), facturado (bool), estado.",
	"ReporteVisita: id, empresaId, plantaId, supervisorId, fecha (YYYY-MM-DD), motivo, observaciones, estado.",
	"Empresa: id, nombre, rfc, direccion, telefono, activo (bool).",
	"Planta: id, empresaId, nombre, direccion, contacto.",
	"Maquina: id, plantaId, nombre, modelo, numeroSerie, anio.",
	"Supervisor: id, empresaId, nombre, correo, telefono.",
	"Usuario: id, nombre, correo, rolId, activo (bool).",
	"Rol: id, nombre, descripcion.",
	"Configuracion: id, clave, valor.",
	"RolPermiso: id, rolId, permiso.",
}

func SchemaDescription() string {
	return strings.Join(tableDescriptions, "\n")
}

// SystemInstruction is the grounding prompt for the model path. It binds the
// response contract, the visualization policy, and the in-band refusal of
// deletes (no delete tool is exposed).
func SystemInstruction(now time.Time) string {
	today := now.Format("2006-01-02")
	return "Eres el asistente de datos de una aplicación de gestión de servicios en campo. " +
		"Puedes consultar y modificar la base de datos únicamente mediante las herramientas disponibles. " +
		"Esquema de tablas:\n" + SchemaDescription() + "\n" +
		"Responde SIEMPRE con un único objeto JSON conforme al contrato de respuesta: " +
		"displayText (obligatorio) y opcionalmente table, chart, actions, form, suggestions. " +
		"Usa table para listados de registros y chart para resultados agregados. " +
		"Antes de un INSERT solicita los datos al usuario mediante form; nunca inventes valores de campos. " +
		"No existe herramienta para borrar datos: si el usuario pide eliminar algo, recházalo cortésmente en displayText. " +
		"Incluye hasta 3 suggestions de seguimiento cuando sea útil. " +
		"Hoy es " + today + "."
}
