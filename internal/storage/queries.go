package storage

import (
	"database/sql"
	"strings"

	"github.com/mkravets/jcg/internal/model"
)

// Class is the stored view of a class row.
type Class struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Package     string `json:"package"`
	Kind        string `json:"kind"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Modifiers   string `json:"modifiers,omitempty"`
	Annotations string `json:"annotations,omitempty"`
	Superclass  string `json:"superclass,omitempty"`
	Doc         string `json:"doc,omitempty"`
}

// Method is the stored view of a method row.
type Method struct {
	ID          int64  `json:"id"`
	ClassID     int64  `json:"class_id"`
	Class       string `json:"class"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Signature   string `json:"signature"`
	ReturnType  string `json:"return_type,omitempty"`
	Modifiers   string `json:"modifiers,omitempty"`
	Annotations string `json:"annotations,omitempty"`
	Doc         string `json:"doc,omitempty"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	EndLine     int    `json:"end_line,omitempty"`
	Complexity  int    `json:"complexity,omitempty"`
}

// QualifiedName returns the class-qualified method name.
func (m *Method) QualifiedName() string {
	return m.Class + "." + m.Name
}

const classCols = `id, name, package, kind, file, line, modifiers, annotations, superclass, doc`

const methodCols = `id, class_id, class_name, name, kind, signature, return_type, modifiers, annotations, doc, file, line, end_line, complexity`

// InsertClass stores a class with its imports, fields and supertype
// links, returning the class row id.
func (db *DB) InsertClass(c *model.Class) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO classes (name, package, kind, file, line, modifiers, annotations, superclass, doc)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Package, string(c.Kind), c.File, c.Line, c.Modifiers,
		strings.Join(c.Annotations, ","), c.Superclass, c.Doc,
	)
	if err != nil {
		return 0, err
	}
	classID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, imp := range c.Imports {
		if _, err := db.conn.Exec(
			`INSERT INTO imports (class_id, name, static, wildcard) VALUES (?, ?, ?, ?)`,
			classID, imp.Name, boolToInt(imp.Static), boolToInt(imp.Wildcard),
		); err != nil {
			return 0, err
		}
	}
	for _, f := range c.Fields {
		if _, err := db.conn.Exec(
			`INSERT INTO fields (class_id, name, type, modifiers, annotations, line)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			classID, f.Name, f.Type, f.Modifiers, strings.Join(f.Annotations, ","), f.Line,
		); err != nil {
			return 0, err
		}
	}
	if c.Superclass != "" {
		if _, err := db.conn.Exec(
			`INSERT INTO supertypes (class_id, kind, name) VALUES (?, 'extends', ?)`,
			classID, c.Superclass,
		); err != nil {
			return 0, err
		}
	}
	for _, iface := range c.Interfaces {
		if _, err := db.conn.Exec(
			`INSERT INTO supertypes (class_id, kind, name) VALUES (?, 'implements', ?)`,
			classID, iface,
		); err != nil {
			return 0, err
		}
	}

	return classID, nil
}

// InsertMethod stores a method and its parameters, returning the row id.
func (db *DB) InsertMethod(classID int64, m *model.Method) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO methods (class_id, class_name, name, kind, signature, return_type, modifiers, annotations, doc, file, line, end_line, complexity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		classID, m.Class, m.Name, string(m.Kind), m.Signature(), m.ReturnType,
		m.Modifiers, strings.Join(m.Annotations, ","), m.Doc, m.File, m.Line, m.EndLine, m.Complexity,
	)
	if err != nil {
		return 0, err
	}
	methodID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, p := range m.Params {
		if _, err := db.conn.Exec(
			`INSERT INTO method_params (method_id, position, name, type) VALUES (?, ?, ?, ?)`,
			methodID, i, p.Name, p.Type,
		); err != nil {
			return 0, err
		}
	}
	return methodID, nil
}

// InsertInvocation stores one call site. calleeID 0 means the callee is
// outside the analyzed program; targetClass keeps the resolved owner for
// later link repair.
func (db *DB) InsertInvocation(methodID int64, position int, inv *model.Invocation, calleeID int64, targetClass string) error {
	var callee interface{}
	if calleeID > 0 {
		callee = calleeID
	}
	_, err := db.conn.Exec(
		`INSERT INTO invocations (method_id, position, callee_id, callee_name, target_class, text, line, args)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		methodID, position, callee, inv.Name, targetClass, inv.Text, inv.Line, inv.Args,
	)
	return err
}

// InsertEndpoint stores one REST endpoint.
func (db *DB) InsertEndpoint(methodID int64, ep *model.Endpoint) error {
	var method interface{}
	if methodID > 0 {
		method = methodID
	}
	_, err := db.conn.Exec(
		`INSERT INTO endpoints (method_id, http_method, path, class_name, method_name)
		 VALUES (?, ?, ?, ?, ?)`,
		method, ep.HTTPMethod, ep.Path, ep.Class, ep.Method,
	)
	return err
}

// GetClassByName returns a class by qualified name; a bare simple name
// resolves to the first match in name order.
func (db *DB) GetClassByName(name string) (*Class, error) {
	row := db.conn.QueryRow(
		`SELECT `+classCols+` FROM classes WHERE name = ?`, name)
	c, err := scanClass(row)
	if err == sql.ErrNoRows {
		row = db.conn.QueryRow(
			`SELECT `+classCols+` FROM classes WHERE name LIKE '%.' || ? ORDER BY name LIMIT 1`, name)
		return scanClass(row)
	}
	return c, err
}

// GetAllClasses returns every class, sorted by qualified name.
func (db *DB) GetAllClasses() ([]*Class, error) {
	rows, err := db.conn.Query(`SELECT ` + classCols + ` FROM classes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// GetAllMethods returns every method, grouped by class in declaration order.
func (db *DB) GetAllMethods() ([]*Method, error) {
	rows, err := db.conn.Query(`SELECT ` + methodCols + ` FROM methods ORDER BY class_name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMethods(rows)
}

// GetMethodsOfClass returns a class's methods in declaration order.
func (db *DB) GetMethodsOfClass(classID int64) ([]*Method, error) {
	rows, err := db.conn.Query(
		`SELECT `+methodCols+` FROM methods WHERE class_id = ? ORDER BY id`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMethods(rows)
}

// GetMethod resolves a method by class and name: the first declared
// method whose name matches wins, overloads are not disambiguated.
func (db *DB) GetMethod(className, methodName string) (*Method, error) {
	row := db.conn.QueryRow(
		`SELECT `+methodCols+` FROM methods
		 WHERE (class_name = ? OR class_name LIKE '%.' || ?) AND name = ?
		 ORDER BY class_name, id LIMIT 1`,
		className, className, methodName,
	)
	return scanMethod(row)
}

// GetMethodByID returns a method by its row id.
func (db *DB) GetMethodByID(id int64) (*Method, error) {
	row := db.conn.QueryRow(
		`SELECT `+methodCols+` FROM methods WHERE id = ?`, id)
	return scanMethod(row)
}

// FindMethodsByPattern returns methods matching a name pattern (using LIKE).
// Results are sorted by match quality: exact method name match, then
// name prefix match, then any substring match.
func (db *DB) FindMethodsByPattern(pattern string) ([]*Method, error) {
	rows, err := db.conn.Query(
		`SELECT `+methodCols+` FROM methods
		 WHERE class_name || '.' || name LIKE ?
		 ORDER BY
			CASE
				WHEN name = ? THEN 0
				WHEN name LIKE ? || '%' THEN 1
				ELSE 2
			END,
			length(class_name || '.' || name) ASC`,
		"%"+pattern+"%", pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMethods(rows)
}

// FindClassesByPattern returns classes matching a name pattern.
func (db *DB) FindClassesByPattern(pattern string) ([]*Class, error) {
	rows, err := db.conn.Query(
		`SELECT `+classCols+` FROM classes
		 WHERE name LIKE ?
		 ORDER BY length(name) ASC, name`,
		"%"+pattern+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// GetDirectCallers returns methods that directly call the given method.
func (db *DB) GetDirectCallers(methodID int64) ([]*Method, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT m.`+strings.ReplaceAll(methodCols, ", ", ", m.")+`
		 FROM methods m
		 JOIN invocations i ON i.method_id = m.id
		 WHERE i.callee_id = ?
		 ORDER BY m.class_name, m.id`,
		methodID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMethods(rows)
}

// GetDirectCallees returns the methods the given method calls, in call
// order, each listed once.
func (db *DB) GetDirectCallees(methodID int64) ([]*Method, error) {
	rows, err := db.conn.Query(
		`SELECT m.`+strings.ReplaceAll(methodCols, ", ", ", m.")+`, MIN(i.position) AS first_pos
		 FROM methods m
		 JOIN invocations i ON i.callee_id = m.id
		 WHERE i.method_id = ?
		 GROUP BY m.id
		 ORDER BY first_pos`,
		methodID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []*Method
	for rows.Next() {
		m, firstPos := &Method{}, 0
		if err := scanMethodInto(rows, m, &firstPos); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// GetUpstreamCallers returns all upstream callers recursively up to maxDepth.
// If maxDepth is 0, it returns all callers with no depth limit. The
// unlimited variant carries no depth column, so UNION deduplication
// terminates the recursion even through call cycles.
func (db *DB) GetUpstreamCallers(methodID int64, maxDepth int) ([]*Method, error) {
	var query string
	var args []interface{}

	if maxDepth == 0 {
		query = `
		WITH RECURSIVE callers(` + methodCols + `) AS (
			SELECT m.` + strings.ReplaceAll(methodCols, ", ", ", m.") + `
			FROM methods m
			JOIN invocations i ON i.method_id = m.id
			WHERE i.callee_id = ?
			UNION
			SELECT m.` + strings.ReplaceAll(methodCols, ", ", ", m.") + `
			FROM methods m
			JOIN invocations i ON i.method_id = m.id
			JOIN callers c ON i.callee_id = c.id
		)
		SELECT ` + methodCols + ` FROM callers ORDER BY class_name, id`
		args = []interface{}{methodID}
	} else {
		query = `
		WITH RECURSIVE callers(` + methodCols + `, depth) AS (
			SELECT m.` + strings.ReplaceAll(methodCols, ", ", ", m.") + `, 1
			FROM methods m
			JOIN invocations i ON i.method_id = m.id
			WHERE i.callee_id = ?
			UNION
			SELECT m.` + strings.ReplaceAll(methodCols, ", ", ", m.") + `, c.depth + 1
			FROM methods m
			JOIN invocations i ON i.method_id = m.id
			JOIN callers c ON i.callee_id = c.id
			WHERE c.depth < ?
		)
		SELECT DISTINCT ` + methodCols + ` FROM callers ORDER BY class_name, id`
		args = []interface{}{methodID, maxDepth}
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMethods(rows)
}

// GetDownstreamCallees returns all downstream callees recursively up to
// maxDepth. If maxDepth is 0, it returns all callees with no depth limit.
func (db *DB) GetDownstreamCallees(methodID int64, maxDepth int) ([]*Method, error) {
	var query string
	var args []interface{}

	if maxDepth == 0 {
		query = `
		WITH RECURSIVE callees(` + methodCols + `) AS (
			SELECT m.` + strings.ReplaceAll(methodCols, ", ", ", m.") + `
			FROM methods m
			JOIN invocations i ON i.callee_id = m.id
			WHERE i.method_id = ?
			UNION
			SELECT m.` + strings.ReplaceAll(methodCols, ", ", ", m.") + `
			FROM methods m
			JOIN invocations i ON i.callee_id = m.id
			JOIN callees c ON i.method_id = c.id
		)
		SELECT ` + methodCols + ` FROM callees ORDER BY class_name, id`
		args = []interface{}{methodID}
	} else {
		query = `
		WITH RECURSIVE callees(` + methodCols + `, depth) AS (
			SELECT m.` + strings.ReplaceAll(methodCols, ", ", ", m.") + `, 1
			FROM methods m
			JOIN invocations i ON i.callee_id = m.id
			WHERE i.method_id = ?
			UNION
			SELECT m.` + strings.ReplaceAll(methodCols, ", ", ", m.") + `, c.depth + 1
			FROM methods m
			JOIN invocations i ON i.callee_id = m.id
			JOIN callees c ON i.method_id = c.id
			WHERE c.depth < ?
		)
		SELECT DISTINCT ` + methodCols + ` FROM callees ORDER BY class_name, id`
		args = []interface{}{methodID, maxDepth}
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMethods(rows)
}

// CallTreeNode represents a node in the call tree with its children
type CallTreeNode struct {
	Method   *Method         `json:"method"`
	Children []*CallTreeNode `json:"children,omitempty"`
}

// GetUpstreamCallTree builds a tree of upstream callers. If maxDepth is
// 0 the tree is unbounded; a method already on the current branch becomes
// a leaf, so call cycles terminate.
func (db *DB) GetUpstreamCallTree(methodID int64, maxDepth int) ([]*CallTreeNode, error) {
	return db.upstreamCallTree(methodID, maxDepth, map[int64]bool{methodID: true})
}

func (db *DB) upstreamCallTree(methodID int64, maxDepth int, onBranch map[int64]bool) ([]*CallTreeNode, error) {
	callers, err := db.GetDirectCallers(methodID)
	if err != nil {
		return nil, err
	}

	result := make([]*CallTreeNode, len(callers))
	for i, c := range callers {
		node := &CallTreeNode{Method: c}
		if maxDepth != 1 && !onBranch[c.ID] {
			next := maxDepth - 1
			if maxDepth == 0 {
				next = 0
			}
			onBranch[c.ID] = true
			node.Children, err = db.upstreamCallTree(c.ID, next, onBranch)
			delete(onBranch, c.ID)
			if err != nil {
				return nil, err
			}
		}
		result[i] = node
	}
	return result, nil
}

// GetDownstreamCallTree builds a tree of downstream callees. If maxDepth
// is 0 the tree is unbounded; a method already on the current branch
// becomes a leaf, so call cycles terminate.
func (db *DB) GetDownstreamCallTree(methodID int64, maxDepth int) ([]*CallTreeNode, error) {
	return db.downstreamCallTree(methodID, maxDepth, map[int64]bool{methodID: true})
}

func (db *DB) downstreamCallTree(methodID int64, maxDepth int, onBranch map[int64]bool) ([]*CallTreeNode, error) {
	callees, err := db.GetDirectCallees(methodID)
	if err != nil {
		return nil, err
	}

	result := make([]*CallTreeNode, len(callees))
	for i, c := range callees {
		node := &CallTreeNode{Method: c}
		if maxDepth != 1 && !onBranch[c.ID] {
			next := maxDepth - 1
			if maxDepth == 0 {
				next = 0
			}
			onBranch[c.ID] = true
			node.Children, err = db.downstreamCallTree(c.ID, next, onBranch)
			delete(onBranch, c.ID)
			if err != nil {
				return nil, err
			}
		}
		result[i] = node
	}
	return result, nil
}

// CallEdge is one resolved caller/callee pair.
type CallEdge struct {
	CallerID int64  `json:"caller_id"`
	CalleeID int64  `json:"callee_id"`
	Caller   string `json:"caller"`
	Callee   string `json:"callee"`
	Line     int    `json:"line"`
}

// GetCallEdges returns every resolved call site, callers grouped
// together in call order.
func (db *DB) GetCallEdges() ([]*CallEdge, error) {
	rows, err := db.conn.Query(`
		SELECT i.method_id, i.callee_id,
		       cm.class_name || '.' || cm.name,
		       tm.class_name || '.' || tm.name,
		       i.line
		FROM invocations i
		JOIN methods cm ON cm.id = i.method_id
		JOIN methods tm ON tm.id = i.callee_id
		ORDER BY cm.class_name, cm.id, i.position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []*CallEdge
	for rows.Next() {
		var e CallEdge
		if err := rows.Scan(&e.CallerID, &e.CalleeID, &e.Caller, &e.Callee, &e.Line); err != nil {
			return nil, err
		}
		edges = append(edges, &e)
	}
	return edges, rows.Err()
}

// GetAllEndpoints returns every REST endpoint, sorted by path.
func (db *DB) GetAllEndpoints() ([]*model.Endpoint, error) {
	rows, err := db.conn.Query(`
		SELECT id, COALESCE(method_id, 0), http_method, path, class_name, method_name
		FROM endpoints ORDER BY path, http_method
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []*model.Endpoint
	for rows.Next() {
		var ep model.Endpoint
		if err := rows.Scan(&ep.ID, &ep.MethodID, &ep.HTTPMethod, &ep.Path, &ep.Class, &ep.Method); err != nil {
			return nil, err
		}
		endpoints = append(endpoints, &ep)
	}
	return endpoints, rows.Err()
}

// GetInterfaces returns all interface classes.
func (db *DB) GetInterfaces() ([]*Class, error) {
	rows, err := db.conn.Query(
		`SELECT ` + classCols + ` FROM classes WHERE kind = 'interface' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// GetImplementations returns the classes that implement the given
// interface. Supertype names are matched as written in source, so both
// simple and qualified references are found.
func (db *DB) GetImplementations(interfaceName string) ([]*Class, error) {
	rows, err := db.conn.Query(
		`SELECT c.`+strings.ReplaceAll(classCols, ", ", ", c.")+`
		 FROM classes c
		 JOIN supertypes st ON st.class_id = c.id
		 WHERE st.kind = 'implements' AND (st.name = ? OR ? LIKE '%.' || st.name)
		 ORDER BY c.name`,
		interfaceName, interfaceName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// Supertype is one extends or implements link as written in source.
type Supertype struct {
	Class string `json:"class"`
	Kind  string `json:"kind"`
	Name  string `json:"name"`
}

// GetSupertypes returns every extends/implements link.
func (db *DB) GetSupertypes() ([]*Supertype, error) {
	rows, err := db.conn.Query(`
		SELECT c.name, st.kind, st.name
		FROM supertypes st
		JOIN classes c ON c.id = st.class_id
		ORDER BY c.name, st.kind, st.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*Supertype
	for rows.Next() {
		var s Supertype
		if err := rows.Scan(&s.Class, &s.Kind, &s.Name); err != nil {
			return nil, err
		}
		links = append(links, &s)
	}
	return links, rows.Err()
}

// GetSubclasses returns the classes that extend the given class.
func (db *DB) GetSubclasses(className string) ([]*Class, error) {
	rows, err := db.conn.Query(
		`SELECT c.`+strings.ReplaceAll(classCols, ", ", ", c.")+`
		 FROM classes c
		 JOIN supertypes st ON st.class_id = c.id
		 WHERE st.kind = 'extends' AND (st.name = ? OR ? LIKE '%.' || st.name)
		 ORDER BY c.name`,
		className, className,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClasses(rows)
}

// ==================== Risk Score Queries ====================

// RiskScore represents the change risk assessment for a method
type RiskScore struct {
	Method        *Method `json:"method"`
	DirectCallers int     `json:"direct_callers"`
	RiskLevel     string  `json:"risk_level"` // low, medium, high, critical
}

// GetDirectCallerCount returns the number of call sites targeting a method
func (db *DB) GetDirectCallerCount(methodID int64) (int, error) {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM invocations WHERE callee_id = ?`,
		methodID,
	).Scan(&count)
	return count, err
}

// GetTopRiskyMethods returns the methods with the most callers.
// Only direct caller counts are used; recursive counts are too slow for
// hot methods.
func (db *DB) GetTopRiskyMethods(limit int) ([]*RiskScore, error) {
	rows, err := db.conn.Query(`
		SELECT m.`+strings.ReplaceAll(methodCols, ", ", ", m.")+`,
		       COUNT(i.id) AS caller_count
		FROM methods m
		LEFT JOIN invocations i ON i.callee_id = m.id
		GROUP BY m.id
		ORDER BY caller_count DESC, m.class_name, m.id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*RiskScore
	for rows.Next() {
		m, callers := &Method{}, 0
		if err := scanMethodInto(rows, m, &callers); err != nil {
			return nil, err
		}
		results = append(results, &RiskScore{
			Method:        m,
			DirectCallers: callers,
			RiskLevel:     CalculateRiskLevel(callers),
		})
	}
	return results, rows.Err()
}

// GetTopComplexMethods returns the methods with the highest complexity.
func (db *DB) GetTopComplexMethods(limit int) ([]*Method, error) {
	rows, err := db.conn.Query(
		`SELECT `+methodCols+` FROM methods
		 ORDER BY complexity DESC, class_name, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMethods(rows)
}

// CalculateRiskLevel determines risk level based on direct callers
func CalculateRiskLevel(directCallers int) string {
	if directCallers >= 50 {
		return "critical"
	}
	if directCallers >= 20 {
		return "high"
	}
	if directCallers >= 5 {
		return "medium"
	}
	return "low"
}

// ==================== Incremental Updates ====================

// DeleteClassesByFiles removes the classes extracted from the given
// files. Child rows cascade; invocations elsewhere that pointed at the
// removed methods keep their target text and go back to unresolved.
func (db *DB) DeleteClassesByFiles(files []string) (int64, error) {
	if len(files) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(files))
	args := make([]interface{}, len(files))
	for i, f := range files {
		placeholders[i] = "?"
		args[i] = f
	}

	result, err := db.conn.Exec(
		`DELETE FROM classes WHERE file IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RelinkInvocations repairs callee links after an incremental update by
// matching the stored resolved owner and callee name against the current
// method rows. Returns the number of repaired links.
func (db *DB) RelinkInvocations() (int64, error) {
	result, err := db.conn.Exec(`
		UPDATE invocations SET callee_id = (
			SELECT m.id FROM methods m
			WHERE m.class_name = invocations.target_class
			  AND m.name = invocations.callee_name
			ORDER BY m.id LIMIT 1
		)
		WHERE callee_id IS NULL
		  AND target_class IS NOT NULL AND target_class != ''
		  AND EXISTS (
			SELECT 1 FROM methods m
			WHERE m.class_name = invocations.target_class
			  AND m.name = invocations.callee_name
		  )
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ==================== Saved Analyses ====================

// Analysis is a saved call stack exploration.
type Analysis struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
	Class     string `json:"class"`
	Method    string `json:"method"`
	Mode      string `json:"mode"`
	Rendered  string `json:"rendered"`
	TreeJSON  string `json:"tree_json,omitempty"`
}

// SaveAnalysis stores a rendered call stack with its JSON tree.
func (db *DB) SaveAnalysis(class, method, mode, rendered, treeJSON string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO analyses (class_name, method_name, mode, rendered, tree_json)
		 VALUES (?, ?, ?, ?, ?)`,
		class, method, mode, rendered, treeJSON,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListAnalyses returns saved analyses, newest first.
func (db *DB) ListAnalyses(limit int) ([]*Analysis, error) {
	rows, err := db.conn.Query(
		`SELECT id, created_at, class_name, method_name, mode, rendered, tree_json
		 FROM analyses ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*Analysis
	for rows.Next() {
		var a Analysis
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.Class, &a.Method, &a.Mode, &a.Rendered, &a.TreeJSON); err != nil {
			return nil, err
		}
		analyses = append(analyses, &a)
	}
	return analyses, rows.Err()
}

// GetAnalysis returns one saved analysis by id.
func (db *DB) GetAnalysis(id int64) (*Analysis, error) {
	var a Analysis
	err := db.conn.QueryRow(
		`SELECT id, created_at, class_name, method_name, mode, rendered, tree_json
		 FROM analyses WHERE id = ?`, id,
	).Scan(&a.ID, &a.CreatedAt, &a.Class, &a.Method, &a.Mode, &a.Rendered, &a.TreeJSON)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ==================== Stats ====================

// Stats summarizes the stored facts.
type Stats struct {
	Classes     int64 `json:"classes"`
	Methods     int64 `json:"methods"`
	Invocations int64 `json:"invocations"`
	Resolved    int64 `json:"resolved"`
	Endpoints   int64 `json:"endpoints"`
}

// GetStats returns database statistics
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM classes`).Scan(&s.Classes); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM methods`).Scan(&s.Methods); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM invocations`).Scan(&s.Invocations); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM invocations WHERE callee_id IS NOT NULL`).Scan(&s.Resolved); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM endpoints`).Scan(&s.Endpoints); err != nil {
		return nil, err
	}
	return &s, nil
}

// Helper functions

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClassInto(row rowScanner, c *Class) error {
	var modifiers, annotations, superclass, doc sql.NullString
	err := row.Scan(&c.ID, &c.Name, &c.Package, &c.Kind, &c.File, &c.Line,
		&modifiers, &annotations, &superclass, &doc)
	if err != nil {
		return err
	}
	c.Modifiers = modifiers.String
	c.Annotations = annotations.String
	c.Superclass = superclass.String
	c.Doc = doc.String
	return nil
}

func scanClass(row *sql.Row) (*Class, error) {
	var c Class
	if err := scanClassInto(row, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanClasses(rows *sql.Rows) ([]*Class, error) {
	var classes []*Class
	for rows.Next() {
		var c Class
		if err := scanClassInto(rows, &c); err != nil {
			return nil, err
		}
		classes = append(classes, &c)
	}
	return classes, rows.Err()
}

// scanMethodInto scans a method row; extra receives any trailing
// aggregate column, such as a caller count.
func scanMethodInto(row rowScanner, m *Method, extra ...interface{}) error {
	var returnType, modifiers, annotations, doc sql.NullString
	dest := []interface{}{
		&m.ID, &m.ClassID, &m.Class, &m.Name, &m.Kind, &m.Signature,
		&returnType, &modifiers, &annotations, &doc, &m.File, &m.Line, &m.EndLine, &m.Complexity,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	m.ReturnType = returnType.String
	m.Modifiers = modifiers.String
	m.Annotations = annotations.String
	m.Doc = doc.String
	return nil
}

func scanMethod(row *sql.Row) (*Method, error) {
	var m Method
	if err := scanMethodInto(row, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMethods(rows *sql.Rows) ([]*Method, error) {
	var methods []*Method
	for rows.Next() {
		var m Method
		if err := scanMethodInto(rows, &m); err != nil {
			return nil, err
		}
		methods = append(methods, &m)
	}
	return methods, rows.Err()
}
