package pgx

const upsertRunSQL = `
INSERT INTO runs (id, user_id, state, failed_at, simulate, nodes, relationships, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
	state = EXCLUDED.state,
	failed_at = EXCLUDED.failed_at,
	nodes = EXCLUDED.nodes,
	relationships = EXCLUDED.relationships,
	error = EXCLUDED.error,
	updated_at = EXCLUDED.updated_at`

const getRunSQL = `
SELECT id, user_id, state, failed_at, simulate, nodes, relationships, error, created_at, updated_at
FROM runs
WHERE id = $1`

const insertEmbeddingsSQL = `
INSERT INTO node_embeddings (run_id, node_id, kind, attribute, embedding)
SELECT $1, node_id, kind, attribute, embedding
FROM unnest($2::text[], $3::text[], $4::text[], $5::vector[]) AS t(node_id, kind, attribute, embedding)
ON CONFLICT (node_id, attribute) DO UPDATE SET embedding = EXCLUDED.embedding`
