package taiga

import (
	"fmt"

	"github.com/taigabridge/taigabridge/internal/models"
)

// endpoint captures how one resource kind is addressed on the Taiga API.
// The per-kind call quirks (whether list requires project scoping, which
// query parameter carries the scope, whether updates need the optimistic
// concurrency version) all live here so that the verb methods on Client
// never special-case a kind.
type endpoint struct {
	// path is the collection segment under /api/v1.
	path string
	// listScoped marks kinds whose list endpoint requires a project scope.
	// Projects themselves list unscoped.
	listScoped bool
	// scopeParam is the query parameter naming the project scope. Most
	// kinds use "project"; the table makes the exceptions explicit
	// instead of scattering them through call sites.
	scopeParam string
	// versioned marks kinds whose update calls must carry the current
	// version for optimistic concurrency.
	versioned bool
}

var endpoints = map[models.ResourceKind]endpoint{
	models.KindProject:   {path: "projects", listScoped: false, scopeParam: "", versioned: true},
	models.KindUserStory: {path: "userstories", listScoped: true, scopeParam: "project", versioned: true},
	models.KindTask:      {path: "tasks", listScoped: true, scopeParam: "project", versioned: true},
	models.KindIssue:     {path: "issues", listScoped: true, scopeParam: "project", versioned: true},
	models.KindEpic:      {path: "epics", listScoped: true, scopeParam: "project", versioned: true},
	models.KindMilestone: {path: "milestones", listScoped: true, scopeParam: "project", versioned: true},
	models.KindWikiPage:  {path: "wiki", listScoped: true, scopeParam: "project", versioned: true},
}

// metaEndpoints maps each metadata kind to its collection segment. All of
// them list per project through the "project" query parameter.
var metaEndpoints = map[models.MetaKind]string{
	models.MetaUserStoryStatus: "userstory-statuses",
	models.MetaIssueStatus:     "issue-statuses",
	models.MetaIssuePriority:   "priorities",
	models.MetaIssueSeverity:   "severities",
	models.MetaIssueType:       "issue-types",
}

func metaEndpointFor(meta models.MetaKind) (string, error) {
	path, ok := metaEndpoints[meta]
	if !ok {
		return "", fmt.Errorf("%w: no endpoint for metadata kind %q", models.ErrBadRequest, meta)
	}
	return path, nil
}

// endpointFor resolves the endpoint table entry for a kind. Every kind in
// models.Kinds has an entry; a miss means a new kind was added without
// extending the table.
func endpointFor(kind models.ResourceKind) (endpoint, error) {
	ep, ok := endpoints[kind]
	if !ok {
		return endpoint{}, fmt.Errorf("%w: no endpoint for resource kind %q", models.ErrBadRequest, kind)
	}
	return ep, nil
}
