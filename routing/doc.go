/*
Package routing resolves request paths to application models, and models
back to links.

# Applications

An App owns a path tree, and associates path patterns with model
factories:

	app := routing.NewApp("root", nil)
	err := app.AddPath(routing.PathSpec{
		Pattern:    "documents/{id:int}",
		Model:      reflect.TypeFor[*Document](),
		Factory:    getDocument,
		Variables:  documentVariables,
		Parameters: map[string]any{"lang": "en"},
	})

The factory receives the decoded path variables and query parameters in a
single map. The query parameters are declared explicitly, with their
default values, and the type of the default selects the converter.

# Mounts

An App can be mounted into another App at a path pattern. When the
pattern of the mount is consumed, an Instance of the mounted App is created
with the variables of the mount pattern, and the rest of the path is
resolved in the tree of the mounted App. Every App has its own, independent
tree.

# Resolution

Resolve consumes the path greedily. The unconsumed part may contain at most
a single segment, that is taken as the name of the view, with the '+'
prefix removed:

	/documents/42        → document 42, default view
	/documents/42/+edit  → document 42, view "edit"
	/documents/42/edit   → document 42, view "edit", unless the tree matches "edit"

A path that leaves more than one segment unconsumed, or ends at a node
without a model factory, or whose factory returns nil, is not found.
Invalid query parameters result in a pathtrie.BadRequestError.

# Links

Instance.Link generates the path of a model, prefixed with the paths of
the mounts leading to the instance. When the App of the instance has no
inverse path for the model, the links can be deferred to another
instance, e.g. to the parent or to a sibling mount, with App.DeferLinks.
*/
package routing
