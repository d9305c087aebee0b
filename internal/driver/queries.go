package driver

// Similarity edges live in the graph as
// (:Page {page_id})-[:SIMILAR {cluster_type, score}]->(:Page) with the
// smaller page id on the source side.
const (
	SaveSimilarEdgesQuery = `
		UNWIND $edges AS e
		MERGE (a:Page {page_id: e.page_a})
		MERGE (b:Page {page_id: e.page_b})
		MERGE (a)-[r:SIMILAR {cluster_type: e.cluster_type}]->(b)
		SET r.score = e.score
		RETURN count(r) AS saved
	`

	GetSimilarEdgesQuery = `
		MATCH (a:Page)-[r:SIMILAR {cluster_type: $cluster_type}]->(b:Page)
		WHERE r.score >= $threshold
		RETURN a.page_id AS page_a, b.page_id AS page_b, r.score AS score
		ORDER BY page_a, page_b
	`

	GetNeighborsQuery = `
		MATCH (a:Page {page_id: $page_id})-[r:SIMILAR {cluster_type: $cluster_type}]-(b:Page)
		WHERE b.page_id <> $page_id
		RETURN b.page_id AS page_id, r.score AS score
		ORDER BY score DESC, page_id ASC
		LIMIT $limit
	`
)
