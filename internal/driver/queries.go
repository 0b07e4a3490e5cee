package driver

// IndexQueries are run once at startup.
var IndexQueries = []string{
	"CREATE INDEX ON :Validator(id);",
	"CREATE INDEX ON :Validator(group_id);",
	"CREATE INDEX ON :Report(uuid);",
	"CREATE INDEX ON :Report(group_id);",
	"CREATE INDEX ON :Community(uuid);",
}

const (
	SaveReportQuery = `
		MERGE (r:Report {uuid: $uuid})
		SET r.group_id = $group_id,
			r.created_at = $created_at,
			r.overall_risk_score = $overall_risk_score,
			r.flags = $flags,
			r.temporal_flags = $temporal_flags,
			r.score_flags = $score_flags,
			r.semantic_flags = $semantic_flags
		RETURN r.uuid AS uuid
	`

	SaveValidatorsQuery = `
		MATCH (r:Report {uuid: $report_uuid})
		UNWIND $validators AS vid
		MERGE (v:Validator {id: vid, group_id: $group_id})
		SET v.last_seen_at = $created_at
		MERGE (r)-[:ANALYZED]->(v)
		RETURN count(v) AS saved
	`

	SaveCoValidatedEdgesQuery = `
		UNWIND $edges AS edge
		MATCH (a:Validator {id: edge.source, group_id: $group_id})
		MATCH (b:Validator {id: edge.target, group_id: $group_id})
		MERGE (a)-[e:CO_VALIDATED {report_uuid: $report_uuid}]->(b)
		SET e.weight = edge.weight,
			e.created_at = $created_at
		RETURN count(e) AS saved
	`

	SaveCommunityQuery = `
		MATCH (r:Report {uuid: $report_uuid})
		MERGE (c:Community {uuid: $uuid})
		SET c.group_id = $group_id,
			c.created_at = $created_at,
			c.size = size($members),
			c.shared_affiliation = $shared_affiliation,
			c.shared_specialty = $shared_specialty
		MERGE (r)-[:FOUND]->(c)
		WITH c
		UNWIND $members AS vid
		MATCH (v:Validator {id: vid, group_id: $group_id})
		MERGE (v)-[:MEMBER_OF]->(c)
		RETURN c.uuid AS uuid
	`

	DeleteReportQuery = `
		MATCH (r:Report {uuid: $uuid})
		OPTIONAL MATCH (r)-[:FOUND]->(c:Community)
		DETACH DELETE c
		WITH DISTINCT r
		OPTIONAL MATCH ()-[e:CO_VALIDATED {report_uuid: $uuid}]->()
		DELETE e
		WITH DISTINCT r
		DETACH DELETE r
	`

	GetReportQuery = `
		MATCH (r:Report {uuid: $uuid})
		RETURN r.uuid AS uuid, r.group_id AS group_id, r.overall_risk_score AS overall_risk_score, r.flags AS flags
	`

	GetReportEdgesQuery = `
		MATCH (a:Validator)-[e:CO_VALIDATED {report_uuid: $uuid}]->(b:Validator)
		RETURN a.id AS source, b.id AS target, e.weight AS weight
		ORDER BY source, target
	`

	GetReportCommunitiesQuery = `
		MATCH (:Report {uuid: $uuid})-[:FOUND]->(c:Community)<-[:MEMBER_OF]-(v:Validator)
		WITH c, v ORDER BY v.id
		RETURN c.uuid AS uuid, collect(v.id) AS members
	`

	GetRecentReportsQuery = `
		MATCH (r:Report)
		WHERE r.group_id = $group_id
		RETURN r.uuid AS uuid, r.overall_risk_score AS overall_risk_score, r.created_at AS created_at
		ORDER BY r.created_at DESC
		LIMIT $limit
	`
)
