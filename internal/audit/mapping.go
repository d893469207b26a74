package audit

import (
	"net/http"
	"strings"
)

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseRoute returns action and resource for a method and chi route pattern
// (e.g. PATCH /users/{id} -> update/user).
// Resource is the first path segment singularised; action is derived from the
// method and whether the pattern addresses a single item.
func ParseRoute(method, pattern string) ActionResource {
	segments := strings.FieldsFunc(pattern, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	resource := strings.TrimSuffix(segments[0], "s")
	item := len(segments) > 1 && strings.HasPrefix(segments[len(segments)-1], "{")
	return ActionResource{Action: methodToAction(method, item), Resource: resource}
}

func methodToAction(method string, item bool) string {
	switch method {
	case http.MethodGet:
		if item {
			return "get"
		}
		return "list"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
