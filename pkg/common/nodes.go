package common

// embedded holds the optional per-attribute embedding vectors of a node.
// They are secondary data and never part of the node's identity.
type embedded struct {
	vectors map[string][]float32
}

func (e *embedded) Embeddings() map[string][]float32 {
	return e.vectors
}

func (e *embedded) SetEmbedding(attribute string, vector []float32) {
	if e.vectors == nil {
		e.vectors = make(map[string][]float32)
	}
	e.vectors[attribute] = vector
}

func (e *embedded) isNode() {}

// ArtifactNode is the submitted source text. One is created per pipeline run.
type ArtifactNode struct {
	embedded
	ID   string `json:"id"`
	Code string `json:"code"`
}

func (n *ArtifactNode) NodeID() string { return n.ID }
func (n *ArtifactNode) Kind() NodeKind { return KindArtifact }
func (n *ArtifactNode) Properties() map[string]any {
	return map[string]any{"code": n.Code}
}

// UserNode identifies the submitter of an artifact. It has no attributes.
type UserNode struct {
	embedded
	ID string `json:"id"`
}

func (n *UserNode) NodeID() string             { return n.ID }
func (n *UserNode) Kind() NodeKind             { return KindUser }
func (n *UserNode) Properties() map[string]any { return map[string]any{} }

type APINode struct {
	embedded
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BaseURL     string `json:"base_url"`
}

func (n *APINode) NodeID() string { return n.ID }
func (n *APINode) Kind() NodeKind { return KindAPI }
func (n *APINode) Properties() map[string]any {
	return map[string]any{
		"name":        n.Name,
		"description": n.Description,
		"base_url":    n.BaseURL,
	}
}

// EndpointNode is a path exposed by an API. APIID is assigned fresh at
// creation and does not reference the APINode extracted alongside it.
type EndpointNode struct {
	embedded
	ID          string   `json:"id"`
	APIID       string   `json:"api_id"`
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Parameters  []string `json:"parameters"`
	Description string   `json:"description"`
}

func (n *EndpointNode) NodeID() string { return n.ID }
func (n *EndpointNode) Kind() NodeKind { return KindEndpoint }
func (n *EndpointNode) Properties() map[string]any {
	return map[string]any{
		"api_id":      n.APIID,
		"path":        n.Path,
		"method":      n.Method,
		"parameters":  nonNil(n.Parameters),
		"description": n.Description,
	}
}

type DatabaseNode struct {
	embedded
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Description  string `json:"description"`
	QueryPattern string `json:"query_pattern"`
}

func (n *DatabaseNode) NodeID() string { return n.ID }
func (n *DatabaseNode) Kind() NodeKind { return KindDatabase }
func (n *DatabaseNode) Properties() map[string]any {
	return map[string]any{
		"name":          n.Name,
		"type":          n.Type,
		"description":   n.Description,
		"query_pattern": n.QueryPattern,
	}
}

// TableNode keeps Columnas and TiposDatos parallel: index i of TiposDatos is
// the data type of column i.
type TableNode struct {
	embedded
	ID          string   `json:"id"`
	NombreTabla string   `json:"nombre_tabla"`
	Columnas    []string `json:"columnas"`
	TiposDatos  []string `json:"tipos_datos"`
}

func (n *TableNode) NodeID() string { return n.ID }
func (n *TableNode) Kind() NodeKind { return KindTable }
func (n *TableNode) Properties() map[string]any {
	return map[string]any{
		"nombre_tabla": n.NombreTabla,
		"columnas":     nonNil(n.Columnas),
		"tipos_datos":  nonNil(n.TiposDatos),
	}
}

type QueryNode struct {
	embedded
	ID               string `json:"id"`
	PreguntaOriginal string `json:"pregunta_original"`
	PreguntaGenerica string `json:"pregunta_generica"`
	SQLQuery         string `json:"sql_query"`
	CypherQuery      string `json:"cypher_query"`
}

func (n *QueryNode) NodeID() string { return n.ID }
func (n *QueryNode) Kind() NodeKind { return KindQuery }
func (n *QueryNode) Properties() map[string]any {
	return map[string]any{
		"pregunta_original": n.PreguntaOriginal,
		"pregunta_generica": n.PreguntaGenerica,
		"sql_query":         n.SQLQuery,
		"cypher_query":      n.CypherQuery,
	}
}

type KPINode struct {
	embedded
	ID          string `json:"id"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
}

func (n *KPINode) NodeID() string { return n.ID }
func (n *KPINode) Kind() NodeKind { return KindKPI }
func (n *KPINode) Properties() map[string]any {
	return map[string]any{
		"nombre":      n.Nombre,
		"descripcion": n.Descripcion,
	}
}

type StatisticNode struct {
	embedded
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (n *StatisticNode) NodeID() string { return n.ID }
func (n *StatisticNode) Kind() NodeKind { return KindStatistic }
func (n *StatisticNode) Properties() map[string]any {
	return map[string]any{
		"name":        n.Name,
		"description": n.Description,
	}
}

// VisualizationNode is part of the schema but not produced by extraction yet.
type VisualizationNode struct {
	embedded
	ID      string   `json:"id"`
	Tipo    string   `json:"tipo"`
	EjeX    string   `json:"eje_x"`
	EjeY    []string `json:"eje_y"`
	Colores []string `json:"colores"`
}

func (n *VisualizationNode) NodeID() string { return n.ID }
func (n *VisualizationNode) Kind() NodeKind { return KindVisualization }
func (n *VisualizationNode) Properties() map[string]any {
	return map[string]any{
		"tipo":    n.Tipo,
		"eje_x":   n.EjeX,
		"eje_y":   nonNil(n.EjeY),
		"colores": nonNil(n.Colores),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
