// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/adina8244/grounded-git-mcp-server/cmd/grounded-git-mcp/cli"
)

// resourceProvider is the interface for a class of MCP resources. Each
// provider handles a URI prefix and knows how to list available
// instances and read their content. Providers are registered on the
// Server at startup and dispatched by the resource request handlers
// based on URI matching.
type resourceProvider interface {
	// Handles returns true if this provider owns the given URI. The
	// server routes resources/read to the first provider that
	// returns true.
	Handles(uri string) bool

	// List returns concrete resource descriptions and URI templates
	// available from this provider.
	List(ctx context.Context) ([]resourceDescription, []resourceTemplate)

	// Read returns the current content of a resource. The URI has
	// already been matched by Handles.
	Read(ctx context.Context, uri string) ([]resourceContent, error)
}

func (s *Server) handleResourcesList(ctx context.Context, encoder *json.Encoder, req *request) error {
	result := resourcesListResult{Resources: []resourceDescription{}}
	for _, provider := range s.resources {
		descriptions, templates := provider.List(ctx)
		result.Resources = append(result.Resources, descriptions...)
		result.ResourceTemplates = append(result.ResourceTemplates, templates...)
	}
	return writeResult(encoder, req.ID, result)
}

func (s *Server) handleResourcesRead(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for resources/read")
	}

	var params resourcesReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid resources/read params: "+err.Error())
	}

	for _, provider := range s.resources {
		if !provider.Handles(params.URI) {
			continue
		}
		contents, err := provider.Read(ctx, params.URI)
		if err != nil {
			return writeError(encoder, req.ID, codeInternalError, "reading resource: "+err.Error())
		}
		return writeResult(encoder, req.ID, resourcesReadResult{Contents: contents})
	}

	return writeError(encoder, req.ID, codeInvalidParams, "unknown resource: "+params.URI)
}

// repoResourceProvider serves repo:// URIs: bounded views of a
// repository's tree, committed file content, and range diffs.
//
//	repo://tree?ref=HEAD&max=500&root=/path
//	repo://file?ref=HEAD&path=README.md&root=/path
//	repo://diff?base=main&head=feature&triple_dot=true&root=/path
//
// The root query parameter is optional when the server has a default
// repository.
type repoResourceProvider struct {
	server *Server
}

func newRepoResourceProvider(server *Server) *repoResourceProvider {
	return &repoResourceProvider{server: server}
}

const repoURIScheme = "repo"

// Handles returns true for repo:// URIs.
func (p *repoResourceProvider) Handles(uri string) bool {
	parsed, err := url.Parse(uri)
	return err == nil && parsed.Scheme == repoURIScheme
}

// List advertises the three resource families as URI templates.
func (p *repoResourceProvider) List(_ context.Context) ([]resourceDescription, []resourceTemplate) {
	templates := []resourceTemplate{
		{
			URITemplate: "repo://tree{?ref,max,root}",
			Name:        "Repository tree",
			Description: "Tracked paths at a ref, bounded by max.",
			MIMEType:    "application/json",
		},
		{
			URITemplate: "repo://file{?ref,path,root}",
			Name:        "Committed file content",
			Description: "Exact content of a file at a ref, stable for reasoning and diffs.",
			MIMEType:    "text/plain",
		},
		{
			URITemplate: "repo://diff{?base,head,triple_dot,root}",
			Name:        "Range diff",
			Description: "Bounded patch between two refs. triple_dot compares head against the merge base.",
			MIMEType:    "application/json",
		},
	}

	var descriptions []resourceDescription
	if p.server.defaultRoot != "" {
		descriptions = append(descriptions, resourceDescription{
			URI:         "repo://tree?ref=HEAD",
			Name:        "Default repository tree at HEAD",
			MIMEType:    "application/json",
			Annotations: &resourceAnnotation{Audience: []string{"assistant"}, Priority: 0.5},
		})
	}
	return descriptions, templates
}

// Read dispatches a repo:// URI to the matching view.
func (p *repoResourceProvider) Read(ctx context.Context, uri string) ([]resourceContent, error) {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme != repoURIScheme {
		return nil, fmt.Errorf("malformed repo URI: %s", uri)
	}

	query := parsed.Query()
	repo, err := p.server.openRepo(query.Get("root"))
	if err != nil {
		return nil, err
	}

	// The URI's host component selects the view: repo://tree, repo://file,
	// repo://diff.
	switch parsed.Host {
	case "tree":
		ref := query.Get("ref")
		if ref == "" {
			ref = "HEAD"
		}
		max, _ := strconv.Atoi(query.Get("max"))
		tree, err := repo.TreeAtRef(ctx, ref, max)
		if err != nil {
			return nil, err
		}
		return jsonResource(uri, tree)
	case "file":
		path := query.Get("path")
		if path == "" {
			return nil, cli.Validation("file resource requires a path parameter")
		}
		ref := query.Get("ref")
		if ref == "" {
			ref = "HEAD"
		}
		content, err := repo.FileAtRef(ctx, ref, path)
		if err != nil {
			return nil, err
		}
		return []resourceContent{{URI: uri, MIMEType: "text/plain", Text: content.Content}}, nil
	case "diff":
		base := query.Get("base")
		head := query.Get("head")
		if base == "" || head == "" {
			return nil, cli.Validation("diff resource requires base and head parameters")
		}
		tripleDot, _ := strconv.ParseBool(query.Get("triple_dot"))
		patch, err := repo.DiffRange(ctx, base, head, tripleDot, query.Get("pathspec"))
		if err != nil {
			return nil, err
		}
		return jsonResource(uri, patch)
	default:
		return nil, fmt.Errorf("unknown repo resource %q (expected tree, file, or diff)", parsed.Host)
	}
}

// jsonResource marshals a payload into a single application/json
// resource content item.
func jsonResource(uri string, payload any) ([]resourceContent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling resource content: %w", err)
	}
	return []resourceContent{{URI: uri, MIMEType: "application/json", Text: string(data)}}, nil
}
