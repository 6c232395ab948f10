package models

import "fmt"

// ResourceKind identifies one of the fixed Taiga entity kinds the bridge
// exposes. Adding a kind means adding a constant here and an entry in the
// taiga package's endpoint table; there are no ad hoc call sites.
type ResourceKind string

const (
	KindProject   ResourceKind = "project"
	KindUserStory ResourceKind = "user_story"
	KindTask      ResourceKind = "task"
	KindIssue     ResourceKind = "issue"
	KindEpic      ResourceKind = "epic"
	KindMilestone ResourceKind = "milestone"
	KindWikiPage  ResourceKind = "wiki_page"
)

// Kinds lists every supported resource kind in a stable order.
func Kinds() []ResourceKind {
	return []ResourceKind{
		KindProject,
		KindUserStory,
		KindTask,
		KindIssue,
		KindEpic,
		KindMilestone,
		KindWikiPage,
	}
}

// ParseKind converts a route segment into a ResourceKind.
func ParseKind(s string) (ResourceKind, error) {
	switch ResourceKind(s) {
	case KindProject, KindUserStory, KindTask, KindIssue, KindEpic, KindMilestone, KindWikiPage:
		return ResourceKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown resource kind %q", ErrBadRequest, s)
}

// MetaKind identifies one of the per-project metadata collections the
// backend exposes: the value sets that statuses, priorities, severities,
// and types for a project are chosen from.
type MetaKind string

const (
	MetaUserStoryStatus MetaKind = "user_story_status"
	MetaIssueStatus     MetaKind = "issue_status"
	MetaIssuePriority   MetaKind = "issue_priority"
	MetaIssueSeverity   MetaKind = "issue_severity"
	MetaIssueType       MetaKind = "issue_type"
)

// MetaKinds lists every supported metadata kind in a stable order.
func MetaKinds() []MetaKind {
	return []MetaKind{
		MetaUserStoryStatus,
		MetaIssueStatus,
		MetaIssuePriority,
		MetaIssueSeverity,
		MetaIssueType,
	}
}

// ParseMetaKind converts a route segment into a MetaKind.
func ParseMetaKind(s string) (MetaKind, error) {
	switch MetaKind(s) {
	case MetaUserStoryStatus, MetaIssueStatus, MetaIssuePriority, MetaIssueSeverity, MetaIssueType:
		return MetaKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown metadata kind %q", ErrBadRequest, s)
}

// Resource is the generic payload returned by the backend for any kind.
// Taiga responses are open-ended JSON objects; the bridge passes them through
// without reshaping, so a map is the honest representation.
type Resource map[string]any

// ID extracts the numeric identifier from a resource payload, if present.
func (r Resource) ID() (int, bool) {
	v, ok := r["id"]
	if !ok {
		return 0, false
	}
	// JSON numbers decode as float64.
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Version extracts the optimistic-concurrency version Taiga requires on
// updates and deletes.
func (r Resource) Version() (int, bool) {
	v, ok := r["version"]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}
