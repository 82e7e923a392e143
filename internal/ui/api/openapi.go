package api

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// Document describes the routed API. It is built from the same route table
// the mux is registered from, so the two cannot drift. /metrics is listed
// only when metrics are served.
func Document(version string, metrics bool) *openapi3.T {
	if version == "" {
		version = "dev"
	}
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "xplore navigation API",
			Description: "Tag-based code navigation over a published source tree.",
			Version:     version,
		},
		Paths: openapi3.NewPaths(),
	}

	for _, rt := range routes {
		op := openapi3.NewOperation()
		op.OperationID = rt.id
		op.Summary = rt.summary
		op.Tags = []string{"navigation"}
		op.AddParameter(openapi3.NewHeaderParameter(SessionHeader).
			WithDescription("Session id; a new one is issued when absent or malformed.").
			WithSchema(openapi3.NewStringSchema()))
		for _, p := range rt.params {
			op.AddParameter(p.parameter())
		}
		if rt.body != nil {
			op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchema(rt.body)}
		}
		op.AddResponse(http.StatusOK, openapi3.NewResponse().
			WithDescription("OK").
			WithJSONSchema(rt.result))
		op.AddResponse(http.StatusTooManyRequests, openapi3.NewResponse().
			WithDescription("Rate limit exceeded").
			WithJSONSchema(errorSchema))
		op.AddResponse(0, openapi3.NewResponse().
			WithDescription("Domain error").
			WithJSONSchema(errorSchema))
		addOperation(doc, rt.method, rt.path, op)
	}

	type serviceRoute struct {
		path, id, summary string
		result            *openapi3.Schema
	}
	service := []serviceRoute{
		{"/health", "health", "Service health and snapshot sizes", healthSchema},
		{"/openapi.json", "openapi", "This document", openapi3.NewObjectSchema()},
	}
	if metrics {
		service = append(service, serviceRoute{"/metrics", "metrics", "Prometheus metrics in text exposition format", openapi3.NewStringSchema()})
	}
	for _, info := range service {
		op := openapi3.NewOperation()
		op.OperationID = info.id
		op.Summary = info.summary
		op.Tags = []string{"service"}
		op.AddResponse(http.StatusOK, openapi3.NewResponse().
			WithDescription("OK").
			WithJSONSchema(info.result))
		addOperation(doc, http.MethodGet, info.path, op)
	}
	return doc
}

func addOperation(doc *openapi3.T, method, path string, op *openapi3.Operation) {
	item := doc.Paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(path, item)
	}
	item.SetOperation(method, op)
}

type param struct {
	name     string
	desc     string
	required bool
	integer  bool
	enum     []any
}

func (p param) parameter() *openapi3.Parameter {
	schema := openapi3.NewStringSchema()
	if p.integer {
		schema = openapi3.NewIntegerSchema().WithMin(0)
	}
	if len(p.enum) > 0 {
		schema = schema.WithEnum(p.enum...)
	}
	out := openapi3.NewQueryParameter(p.name).
		WithDescription(p.desc).
		WithSchema(schema)
	out.Required = p.required
	return out
}

func object(props map[string]*openapi3.Schema, required ...string) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	for name, prop := range props {
		s.WithProperty(name, prop)
	}
	s.Required = required
	return s
}

func arrayOf(items *openapi3.Schema) *openapi3.Schema {
	return openapi3.NewArraySchema().WithItems(items)
}

var (
	str  = openapi3.NewStringSchema
	num  = openapi3.NewIntegerSchema
	flag = openapi3.NewBoolSchema

	locationSchema = object(map[string]*openapi3.Schema{
		"path":    str(),
		"line":    num(),
		"pattern": str(),
	}, "path")

	tagSchema = object(map[string]*openapi3.Schema{
		"name":      str(),
		"path":      str(),
		"line":      num(),
		"pattern":   str(),
		"kind":      str(),
		"language":  str(),
		"scope":     str(),
		"scopeKind": str(),
		"signature": str(),
		"typeref":   str(),
	}, "name", "path")

	viewSchema = object(map[string]*openapi3.Schema{
		"location": locationSchema,
		"precise":  flag(),
		"language": str(),
	})

	resultSchema = object(map[string]*openapi3.Schema{
		"operation":  str().WithEnum("definition", "declaration", "type_definition", "implementations", "source_definition"),
		"status":     str().WithEnum("found", "ambiguous", "not_found", "fallback", "invalid"),
		"symbol":     str(),
		"typeName":   str(),
		"candidates": arrayOf(tagSchema),
	})

	outcomeSchema = object(map[string]*openapi3.Schema{
		"result":   resultSchema,
		"view":     viewSchema,
		"fellBack": flag(),
	})

	matchSchema = object(map[string]*openapi3.Schema{
		"path":    str(),
		"line":    num(),
		"snippet": str(),
	})

	reportSchema = object(map[string]*openapi3.Schema{
		"symbol":       str(),
		"definitions":  arrayOf(tagSchema),
		"declarations": arrayOf(tagSchema),
		"references":   arrayOf(matchSchema),
		"filesScanned": num(),
		"truncated":    flag(),
	})

	referenceSchema = object(map[string]*openapi3.Schema{
		"lang": str().WithEnum("unknown", "c/cpp", "python", "js/ts", "shell", "make"),
		"name": str(),
		"line": num(),
		"kind": str(),
	}, "name")

	includeTargetSchema = object(map[string]*openapi3.Schema{
		"ref":      referenceSchema,
		"target":   str(),
		"resolved": flag(),
	})

	includesSchema = object(map[string]*openapi3.Schema{
		"path":     str(),
		"includes": arrayOf(includeTargetSchema),
	})

	followSchema = object(map[string]*openapi3.Schema{
		"path": str(),
		"ref":  referenceSchema,
	}, "ref")

	followResultSchema = object(map[string]*openapi3.Schema{
		"view":     viewSchema,
		"resolved": flag(),
	})

	outlineSchema = object(map[string]*openapi3.Schema{
		"path":      str(),
		"macros":    arrayOf(tagSchema),
		"globals":   arrayOf(tagSchema),
		"classes":   arrayOf(tagSchema),
		"functions": arrayOf(tagSchema),
	})

	grepSchema = object(map[string]*openapi3.Schema{
		"query":   str(),
		"matches": arrayOf(matchSchema),
	})

	nodeSchema = object(map[string]*openapi3.Schema{
		"name":     str(),
		"path":     str(),
		"type":     str().WithEnum("file", "dir"),
		"mimetype": str(),
		"children": arrayOf(openapi3.NewObjectSchema()),
	})

	navigateSchema = object(map[string]*openapi3.Schema{
		"path":    str(),
		"line":    num(),
		"pattern": str(),
		"record":  flag(),
	}, "path")

	historySchema = object(map[string]*openapi3.Schema{
		"active":       locationSchema,
		"back":         arrayOf(locationSchema),
		"forward":      arrayOf(locationSchema),
		"canGoBack":    flag(),
		"canGoForward": flag(),
	})

	reloadSchema = object(map[string]*openapi3.Schema{
		"lines":     num(),
		"loaded":    num(),
		"dropped":   num(),
		"files":     num(),
		"treeFiles": num(),
	})

	healthSchema = object(map[string]*openapi3.Schema{
		"status":     str().WithEnum("up", "degraded"),
		"timestamp":  str(),
		"uptime":     str(),
		"components": openapi3.NewObjectSchema(),
	})

	errorSchema = object(map[string]*openapi3.Schema{
		"error": object(map[string]*openapi3.Schema{
			"code":    str(),
			"message": str(),
			"context": openapi3.NewObjectSchema(),
		}, "code", "message"),
	}, "error")
)
