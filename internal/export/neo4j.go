package export

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mkravets/jcg/internal/storage"
)

// Pusher mirrors the stored call graph into a Neo4j database using
// batch UNWIND queries.
type Pusher struct {
	driver   neo4j.DriverWithContext
	db       *storage.DB
	ctx      context.Context
	database string
}

// NewPusher connects to Neo4j and returns a ready-to-use pusher. An
// empty database name uses the server default.
func NewPusher(ctx context.Context, db *storage.DB, uri, user, password, database string) (*Pusher, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &Pusher{driver: driver, db: db, ctx: ctx, database: database}, nil
}

// Close releases the underlying Neo4j driver resources.
func (p *Pusher) Close() {
	p.driver.Close(p.ctx)
}

// runCypher runs a single Cypher statement with optional parameters.
func (p *Pusher) runCypher(cypher string, params map[string]any) error {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if p.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(p.database))
	}
	_, err := neo4j.ExecuteQuery(p.ctx, p.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	return err
}

// CleanGraph removes all previously pushed nodes and relationships.
func (p *Pusher) CleanGraph() error {
	log.Println("Cleaning existing graph data...")
	queries := []string{
		"MATCH ()-[r:CALLS]->() DELETE r",
		"MATCH ()-[r:HAS_METHOD]->() DELETE r",
		"MATCH ()-[r:IN_PACKAGE]->() DELETE r",
		"MATCH ()-[r:IMPLEMENTS]->() DELETE r",
		"MATCH ()-[r:EXTENDS]->() DELETE r",
		"MATCH ()-[r:EXPOSES]->() DELETE r",
		"MATCH (n:JavaPackage) DETACH DELETE n",
		"MATCH (n:JavaClass) DETACH DELETE n",
		"MATCH (n:JavaMethod) DETACH DELETE n",
		"MATCH (n:RestEndpoint) DETACH DELETE n",
	}
	for _, q := range queries {
		if err := p.runCypher(q, nil); err != nil {
			return err
		}
	}
	return nil
}

// CreateIndexes ensures the required Neo4j indexes exist.
func (p *Pusher) CreateIndexes() error {
	log.Println("Creating indexes...")
	indexes := []string{
		"CREATE INDEX java_pkg_name IF NOT EXISTS FOR (n:JavaPackage) ON (n.name)",
		"CREATE INDEX java_class_name IF NOT EXISTS FOR (n:JavaClass) ON (n.name)",
		"CREATE INDEX java_method_sig IF NOT EXISTS FOR (n:JavaMethod) ON (n.signature)",
	}
	for _, q := range indexes {
		if err := p.runCypher(q, nil); err != nil {
			return err
		}
	}
	return nil
}

// Push mirrors the whole stored graph. The target graph is wiped first
// so repeated pushes stay consistent with the local facts.
func (p *Pusher) Push() error {
	classes, err := p.db.GetAllClasses()
	if err != nil {
		return fmt.Errorf("failed to get classes: %w", err)
	}
	methods, err := p.db.GetAllMethods()
	if err != nil {
		return fmt.Errorf("failed to get methods: %w", err)
	}

	if err := p.CleanGraph(); err != nil {
		return err
	}
	if err := p.CreateIndexes(); err != nil {
		return err
	}
	if err := p.pushPackages(classes); err != nil {
		return err
	}
	if err := p.pushClasses(classes); err != nil {
		return err
	}
	if err := p.pushMethods(methods); err != nil {
		return err
	}
	if err := p.pushSupertypes(classes); err != nil {
		return err
	}
	if err := p.pushCalls(methods); err != nil {
		return err
	}
	return p.pushEndpoints(methods)
}

// pushPackages upserts JavaPackage nodes.
func (p *Pusher) pushPackages(classes []*storage.Class) error {
	seen := make(map[string]bool)
	batch := make([]map[string]any, 0)
	for _, c := range classes {
		if c.Package == "" || seen[c.Package] {
			continue
		}
		seen[c.Package] = true
		batch = append(batch, map[string]any{"name": c.Package})
	}
	log.Printf("Loading %d packages...", len(batch))
	return p.runCypher(
		`UNWIND $batch AS row
		 MERGE (n:JavaPackage {name: row.name})`,
		map[string]any{"batch": batch},
	)
}

// pushClasses upserts JavaClass nodes and links them to their packages.
func (p *Pusher) pushClasses(classes []*storage.Class) error {
	log.Printf("Loading %d classes...", len(classes))
	batch := make([]map[string]any, 0, len(classes))
	for _, c := range classes {
		batch = append(batch, map[string]any{
			"name": c.Name, "pkg": c.Package, "kind": c.Kind,
			"file": c.File, "line": c.Line,
		})
	}
	return p.runCypher(
		`UNWIND $batch AS row
		 MERGE (n:JavaClass {name: row.name})
		 SET n.package = row.pkg, n.kind = row.kind, n.file = row.file, n.line = row.line
		 WITH n, row
		 MATCH (p:JavaPackage {name: row.pkg})
		 MERGE (n)-[:IN_PACKAGE]->(p)`,
		map[string]any{"batch": batch},
	)
}

// pushMethods upserts JavaMethod nodes and HAS_METHOD edges.
func (p *Pusher) pushMethods(methods []*storage.Method) error {
	log.Printf("Loading %d methods...", len(methods))
	batch := make([]map[string]any, 0, len(methods))
	for _, m := range methods {
		batch = append(batch, map[string]any{
			"sig": m.Signature, "name": m.Name, "class": m.Class,
			"file": m.File, "line": m.Line, "complexity": m.Complexity,
			"public": strings.Contains(m.Modifiers, "public"),
		})
	}
	return p.runCypher(
		`UNWIND $batch AS row
		 MERGE (n:JavaMethod {signature: row.sig})
		 SET n.name = row.name, n.class = row.class, n.file = row.file,
		     n.line = row.line, n.complexity = row.complexity, n.public = row.public
		 WITH n, row
		 MATCH (c:JavaClass {name: row.class})
		 MERGE (c)-[:HAS_METHOD]->(n)`,
		map[string]any{"batch": batch},
	)
}

// pushSupertypes upserts EXTENDS and IMPLEMENTS edges. Supertype names
// written as simple names are resolved against the known classes; links
// to classes outside the analyzed program are skipped.
func (p *Pusher) pushSupertypes(classes []*storage.Class) error {
	links, err := p.db.GetSupertypes()
	if err != nil {
		return fmt.Errorf("failed to get supertypes: %w", err)
	}

	byName := make(map[string]bool, len(classes))
	bySimple := make(map[string]string)
	for _, c := range classes {
		byName[c.Name] = true
		simple := simpleClass(c.Name)
		if _, ok := bySimple[simple]; !ok {
			bySimple[simple] = c.Name
		}
	}

	extends := make([]map[string]any, 0)
	implements := make([]map[string]any, 0)
	for _, link := range links {
		target := link.Name
		if !byName[target] {
			resolved, ok := bySimple[target]
			if !ok {
				continue
			}
			target = resolved
		}
		row := map[string]any{"from": link.Class, "to": target}
		if link.Kind == "extends" {
			extends = append(extends, row)
		} else {
			implements = append(implements, row)
		}
	}

	log.Printf("Loading %d extends and %d implements edges...", len(extends), len(implements))
	if len(extends) > 0 {
		err := p.runCypher(
			`UNWIND $batch AS row
			 MATCH (a:JavaClass {name: row.from}), (b:JavaClass {name: row.to})
			 MERGE (a)-[:EXTENDS]->(b)`,
			map[string]any{"batch": extends},
		)
		if err != nil {
			return err
		}
	}
	if len(implements) > 0 {
		return p.runCypher(
			`UNWIND $batch AS row
			 MATCH (a:JavaClass {name: row.from}), (b:JavaClass {name: row.to})
			 MERGE (a)-[:IMPLEMENTS]->(b)`,
			map[string]any{"batch": implements},
		)
	}
	return nil
}

// pushCalls upserts CALLS relationships between JavaMethod nodes.
func (p *Pusher) pushCalls(methods []*storage.Method) error {
	edges, err := p.db.GetCallEdges()
	if err != nil {
		return fmt.Errorf("failed to get call edges: %w", err)
	}

	sigByID := make(map[int64]string, len(methods))
	for _, m := range methods {
		sigByID[m.ID] = m.Signature
	}

	log.Printf("Loading %d call edges...", len(edges))
	batch := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		caller, ok := sigByID[e.CallerID]
		if !ok {
			continue
		}
		callee, ok := sigByID[e.CalleeID]
		if !ok {
			continue
		}
		batch = append(batch, map[string]any{
			"caller": caller, "callee": callee, "line": e.Line,
		})
	}
	return p.runCypher(
		`UNWIND $batch AS row
		 MATCH (caller:JavaMethod {signature: row.caller}), (callee:JavaMethod {signature: row.callee})
		 MERGE (caller)-[r:CALLS]->(callee)
		 SET r.line = row.line`,
		map[string]any{"batch": batch},
	)
}

// pushEndpoints upserts RestEndpoint nodes and EXPOSES edges.
func (p *Pusher) pushEndpoints(methods []*storage.Method) error {
	endpoints, err := p.db.GetAllEndpoints()
	if err != nil {
		return fmt.Errorf("failed to get endpoints: %w", err)
	}
	if len(endpoints) == 0 {
		return nil
	}

	sigByID := make(map[int64]string, len(methods))
	for _, m := range methods {
		sigByID[m.ID] = m.Signature
	}

	log.Printf("Loading %d endpoints...", len(endpoints))
	batch := make([]map[string]any, 0, len(endpoints))
	for _, ep := range endpoints {
		batch = append(batch, map[string]any{
			"method":  ep.HTTPMethod,
			"path":    ep.Path,
			"handler": ep.Class + "." + ep.Method,
			"sig":     sigByID[ep.MethodID],
		})
	}
	err = p.runCypher(
		`UNWIND $batch AS row
		 MERGE (e:RestEndpoint {http_method: row.method, path: row.path})
		 SET e.handler = row.handler`,
		map[string]any{"batch": batch},
	)
	if err != nil {
		return err
	}

	linked := make([]map[string]any, 0, len(batch))
	for _, row := range batch {
		if row["sig"] != "" {
			linked = append(linked, row)
		}
	}
	if len(linked) == 0 {
		return nil
	}
	return p.runCypher(
		`UNWIND $batch AS row
		 MATCH (m:JavaMethod {signature: row.sig}), (e:RestEndpoint {http_method: row.method, path: row.path})
		 MERGE (m)-[:EXPOSES]->(e)`,
		map[string]any{"batch": linked},
	)
}
