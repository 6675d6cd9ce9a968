package graph

import (
	"fmt"
	"strings"

	"github.com/artigraph/backend/pkg/common"
	"github.com/artigraph/backend/pkg/logger"
)

const unknownDataType = "UNKNOWN"

// Generate turns extracted entities and business insights into typed nodes.
// Every node gets a fresh id; ids invented by the model are never reused.
//
// Nodes are created in this order: APIs, endpoints, databases, tables,
// queries, then per insight its KPIs followed by its statistics.
func (g *GraphClient) Generate(
	entities common.ExtractedEntities,
	analysis common.BusinessAnalysis,
) []common.Node {
	nodes := make([]common.Node, 0, entities.Count())

	for _, a := range entities.APIs {
		nodes = append(nodes, &common.APINode{
			ID:          newID(),
			Name:        a.Name,
			Description: a.Description,
			BaseURL:     a.BaseURL,
		})
	}

	for _, e := range entities.Endpoints {
		// api_id is not resolved against the extracted API on purpose; the
		// graph link between both is left to relationship inference.
		nodes = append(nodes, &common.EndpointNode{
			ID:          newID(),
			APIID:       newID(),
			Path:        e.Path,
			Method:      strings.ToUpper(strings.TrimSpace(e.Method)),
			Parameters:  nonNilStrings(e.Parameters),
			Description: e.Description,
		})
	}

	for _, d := range entities.Databases {
		nodes = append(nodes, &common.DatabaseNode{
			ID:           newID(),
			Name:         d.Name,
			Type:         d.Type,
			Description:  d.Description,
			QueryPattern: d.QueryPattern,
		})
	}

	for _, t := range entities.Tables {
		columns, types := alignColumns(t.Columnas, t.TiposDatos)
		if len(t.Columnas) != len(t.TiposDatos) {
			logger.Warn(
				"[Nodes] Aligned table column types",
				"table", t.NombreTabla,
				"columns", len(t.Columnas),
				"types", len(t.TiposDatos),
			)
		}
		nodes = append(nodes, &common.TableNode{
			ID:          newID(),
			NombreTabla: t.NombreTabla,
			Columnas:    columns,
			TiposDatos:  types,
		})
	}

	for _, q := range entities.Queries {
		nodes = append(nodes, &common.QueryNode{
			ID:               newID(),
			PreguntaOriginal: q.PreguntaOriginal,
			PreguntaGenerica: q.PreguntaGenerica,
			SQLQuery:         q.SQLQuery,
			CypherQuery:      q.CypherQuery,
		})
	}

	for _, insight := range analysis.Insights {
		for _, kpi := range insight.KeyKPIs {
			name := strings.TrimSpace(kpi)
			if name == "" {
				continue
			}
			nodes = append(nodes, &common.KPINode{
				ID:          newID(),
				Nombre:      name,
				Descripcion: fmt.Sprintf("Key performance indicator: %s", name),
			})
		}
		for _, method := range insight.StatisticalMethods {
			name := strings.TrimSpace(method)
			if name == "" {
				continue
			}
			nodes = append(nodes, &common.StatisticNode{
				ID:          newID(),
				Name:        name,
				Description: fmt.Sprintf("Statistical method relevant to the data: %s", name),
			})
		}
	}

	logger.Info("[Nodes] Nodes generated", "count", len(nodes))
	return nodes
}

// alignColumns keeps the column list as given and makes the type list the
// same length, padding with unknownDataType or dropping surplus entries.
func alignColumns(columns, types []string) ([]string, []string) {
	cols := nonNilStrings(columns)
	out := make([]string, len(cols))
	for i := range cols {
		if i < len(types) && strings.TrimSpace(types[i]) != "" {
			out[i] = types[i]
			continue
		}
		out[i] = unknownDataType
	}
	return cols, out
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
