package common

import (
	"fmt"
)

// NodeFromProperties rebuilds a typed node from a graph-store record.
// Every kind of the schema is handled; anything else is ErrUnknownKind.
func NodeFromProperties(kind NodeKind, id string, props map[string]any) (Node, error) {
	switch kind {
	case KindArtifact:
		return &ArtifactNode{ID: id, Code: str(props, "code")}, nil
	case KindUser:
		return &UserNode{ID: id}, nil
	case KindAPI:
		return &APINode{
			ID:          id,
			Name:        str(props, "name"),
			Description: str(props, "description"),
			BaseURL:     str(props, "base_url"),
		}, nil
	case KindEndpoint:
		return &EndpointNode{
			ID:          id,
			APIID:       str(props, "api_id"),
			Path:        str(props, "path"),
			Method:      str(props, "method"),
			Parameters:  strs(props, "parameters"),
			Description: str(props, "description"),
		}, nil
	case KindDatabase:
		return &DatabaseNode{
			ID:           id,
			Name:         str(props, "name"),
			Type:         str(props, "type"),
			Description:  str(props, "description"),
			QueryPattern: str(props, "query_pattern"),
		}, nil
	case KindTable:
		return &TableNode{
			ID:          id,
			NombreTabla: str(props, "nombre_tabla"),
			Columnas:    strs(props, "columnas"),
			TiposDatos:  strs(props, "tipos_datos"),
		}, nil
	case KindQuery:
		return &QueryNode{
			ID:               id,
			PreguntaOriginal: str(props, "pregunta_original"),
			PreguntaGenerica: str(props, "pregunta_generica"),
			SQLQuery:         str(props, "sql_query"),
			CypherQuery:      str(props, "cypher_query"),
		}, nil
	case KindKPI:
		return &KPINode{
			ID:          id,
			Nombre:      str(props, "nombre"),
			Descripcion: str(props, "descripcion"),
		}, nil
	case KindStatistic:
		return &StatisticNode{
			ID:          id,
			Name:        str(props, "name"),
			Description: str(props, "description"),
		}, nil
	case KindVisualization:
		return &VisualizationNode{
			ID:      id,
			Tipo:    str(props, "tipo"),
			EjeX:    str(props, "eje_x"),
			EjeY:    strs(props, "eje_y"),
			Colores: strs(props, "colores"),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func str(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// strs accepts []string and the []any lists returned by graph drivers.
func strs(props map[string]any, key string) []string {
	switch v := props[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{}
	}
}
