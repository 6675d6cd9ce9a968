package common

// The types below are the structured-output contracts of the language model.
// Their ids are whatever the model made up and are never reused as node ids.

type ExtractedAPI struct {
	ID          string `json:"id" jsonschema_description:"Local reference such as api_1"`
	Name        string `json:"name" jsonschema_description:"Human readable name of the API"`
	Description string `json:"description" jsonschema_description:"What the API is used for in the code"`
	BaseURL     string `json:"base_url" jsonschema_description:"Base URL exactly as written or composed in the code"`
}

type ExtractedEndpoint struct {
	ID          string   `json:"id" jsonschema_description:"Local reference such as endpoint_1"`
	APIID       string   `json:"api_id" jsonschema_description:"Local reference of the API this endpoint belongs to"`
	Path        string   `json:"path" jsonschema_description:"Path relative to the API base URL, for example /orders"`
	Method      string   `json:"method" jsonschema_description:"HTTP method in upper case"`
	Parameters  []string `json:"parameters" jsonschema_description:"Query, path or body parameters sent to the endpoint"`
	Description string   `json:"description" jsonschema_description:"What the endpoint returns or changes"`
}

type ExtractedDatabase struct {
	ID           string `json:"id" jsonschema_description:"Local reference such as db_1"`
	Name         string `json:"name" jsonschema_description:"Name of the database"`
	Type         string `json:"type" jsonschema_description:"SQL, NoSQL, Firebase, IndexedDB or another storage technology"`
	Description  string `json:"description" jsonschema_description:"Role of the database in the code"`
	QueryPattern string `json:"query_pattern" jsonschema_description:"Representative query issued against the database, empty if none"`
}

type ExtractedQuery struct {
	ID               string `json:"id" jsonschema_description:"Local reference such as query_1"`
	PreguntaOriginal string `json:"pregunta_original" jsonschema_description:"The business question the query answers"`
	PreguntaGenerica string `json:"pregunta_generica" jsonschema_description:"A generic rewording of the question"`
	SQLQuery         string `json:"sql_query" jsonschema_description:"SQL text exactly as found in the code, empty if none"`
	CypherQuery      string `json:"cypher_query" jsonschema_description:"Cypher text exactly as found in the code, empty if none"`
}

type ExtractedTable struct {
	ID          string   `json:"id" jsonschema_description:"Local reference such as table_1"`
	NombreTabla string   `json:"nombre_tabla" jsonschema_description:"Table name as it appears after FROM or JOIN"`
	Columnas    []string `json:"columnas" jsonschema_description:"Column names referenced for this table"`
	TiposDatos  []string `json:"tipos_datos" jsonschema_description:"Data type of each column, same order and length as columnas"`
}

type ExtractedRelationship struct {
	Origen  string `json:"origen" jsonschema_description:"Local reference of the source entity"`
	Destino string `json:"destino" jsonschema_description:"Local reference of the target entity"`
	Tipo    string `json:"tipo" jsonschema_description:"Relationship type"`
}

type ExtractedRelationships struct {
	Relaciones []ExtractedRelationship `json:"relaciones" jsonschema_description:"Relationships between the extracted entities"`
}

// ExtractedEntities is the raw result of one extraction call. Its relationship
// collection is advisory; relationships are inferred again after node creation.
type ExtractedEntities struct {
	APIs          []ExtractedAPI         `json:"apis" jsonschema_description:"APIs called in the code"`
	Endpoints     []ExtractedEndpoint    `json:"endpoints" jsonschema_description:"Endpoints called in the code"`
	Databases     []ExtractedDatabase    `json:"databases" jsonschema_description:"Databases used in the code"`
	Queries       []ExtractedQuery       `json:"queries" jsonschema_description:"Queries issued in the code"`
	Tables        []ExtractedTable       `json:"tables" jsonschema_description:"Tables referenced by queries or requests"`
	Relationships ExtractedRelationships `json:"relationships" jsonschema_description:"Relationships between the extracted entities"`
}

// IsEmpty reports whether all six collections are empty.
func (e ExtractedEntities) IsEmpty() bool {
	return len(e.APIs) == 0 &&
		len(e.Endpoints) == 0 &&
		len(e.Databases) == 0 &&
		len(e.Queries) == 0 &&
		len(e.Tables) == 0 &&
		len(e.Relationships.Relaciones) == 0
}

// Count returns the number of extracted entities, relationships excluded.
func (e ExtractedEntities) Count() int {
	return len(e.APIs) + len(e.Endpoints) + len(e.Databases) + len(e.Queries) + len(e.Tables)
}

// BusinessInsight annotates one extracted entity.
type BusinessInsight struct {
	EntityID           string   `json:"entity_id" jsonschema_description:"Local reference of the API, endpoint, database, query or table"`
	Description        string   `json:"description" jsonschema_description:"Business relevance of the entity"`
	KeyKPIs            []string `json:"key_kpis" jsonschema_description:"Names of KPIs the entity helps measure"`
	StatisticalMethods []string `json:"statistical_methods" jsonschema_description:"Statistical methods useful to interpret the entity"`
}

type BusinessAnalysis struct {
	Insights []BusinessInsight `json:"insights" jsonschema_description:"One insight per analysed entity"`
}
