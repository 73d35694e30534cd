package java

import (
	"strings"

	"github.com/mkravets/jcg/internal/model"
)

// Spring MVC mapping annotations and the HTTP verb they imply. An empty
// verb means the annotation names it in a method attribute.
var mappingAnnotations = map[string]string{
	"GetMapping":     "GET",
	"PostMapping":    "POST",
	"PutMapping":     "PUT",
	"DeleteMapping":  "DELETE",
	"PatchMapping":   "PATCH",
	"RequestMapping": "",
}

// Endpoints derives REST endpoints from Spring mapping annotations. A
// class level RequestMapping contributes a path prefix to every handler
// in the class.
func Endpoints(classes []*model.Class) []*model.Endpoint {
	var endpoints []*model.Endpoint
	for _, cls := range classes {
		prefix := ""
		for _, ann := range cls.Annotations {
			if annotationName(ann) == "RequestMapping" {
				prefix = annotationPath(ann)
			}
		}

		for _, m := range cls.Methods {
			for _, ann := range m.Annotations {
				verb, ok := mappingAnnotations[annotationName(ann)]
				if !ok {
					continue
				}
				if verb == "" {
					verb = requestMappingVerb(ann)
				}
				endpoints = append(endpoints, &model.Endpoint{
					HTTPMethod: verb,
					Path:       joinPath(prefix, annotationPath(ann)),
					Class:      cls.Name,
					Method:     m.Name,
				})
			}
		}
	}
	return endpoints
}

// annotationName strips any arguments: `GetMapping("/x")` → `GetMapping`.
func annotationName(ann string) string {
	if i := strings.Index(ann, "("); i > 0 {
		return ann[:i]
	}
	return ann
}

// annotationPath pulls the mapped path out of an annotation: either the
// bare string argument or a value/path attribute.
func annotationPath(ann string) string {
	i := strings.Index(ann, "(")
	if i < 0 {
		return ""
	}
	body := ann[i+1:]
	for _, attr := range []string{"value", "path"} {
		if j := strings.Index(body, attr+" ="); j >= 0 {
			return extractQuoted(body[j:])
		}
		if j := strings.Index(body, attr+"="); j >= 0 {
			return extractQuoted(body[j:])
		}
	}
	return extractQuoted(body)
}

// requestMappingVerb reads the method attribute of a RequestMapping
// annotation. Spring matches all verbs when it is absent; GET is
// recorded as the practical default.
func requestMappingVerb(ann string) string {
	idx := strings.Index(ann, "RequestMethod.")
	if idx < 0 {
		return "GET"
	}
	rest := ann[idx+len("RequestMethod."):]
	end := 0
	for end < len(rest) && rest[end] >= 'A' && rest[end] <= 'Z' {
		end++
	}
	if end == 0 {
		return "GET"
	}
	return rest[:end]
}

func joinPath(prefix, path string) string {
	switch {
	case prefix == "":
		return path
	case path == "":
		return prefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(path, "/")
}

// extractQuoted returns the first double quoted string in s.
func extractQuoted(s string) string {
	start := strings.Index(s, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(s[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}
