/*
Package traject provides an HTTP server that resolves request paths to
models through a tree of path patterns, and generates links back to the
models from the same patterns.

# Routing model

An application declares path patterns like:

	documents/{id:int}
	wikis/{wiki}/pages/{name}

Each segment of a pattern is literal text mixed with typed variables. The
incoming path is consumed segment by segment, always going as deep into
the tree as possible. The model factory bound to the last matched pattern
receives the decoded path variables and the query parameters, and its
result is rendered by a view. A single unconsumed segment starting with
'+' selects the view by name, e.g. /documents/42/+edit.

Applications can be mounted into other applications. The mount pattern
binds its own variables, and the consumption continues in the tree of the
mounted application. Links are generated from the inverse of the same
patterns, prefixed with the mount path, or generated by the parent
application when the mounted one defers them.

The core is in the packages pathtrie (patterns, the tree and the inverse
index), converter (typed values in paths and queries) and routing
(applications, mounts, resolution and links).

# Quickstart

Define the applications in a route file:

	name: root
	paths:
	  - id: document
	    pattern: documents/{id:int}
	    parameters: {lang: en}
	    body: {title: Hello}
	mounts:
	  - pattern: wikis/{wiki}
	    app:
	      name: wiki
	      paths:
	        - id: page
	          pattern: pages/{name}

and start the server:

	traject -routes-file routes.yaml

The documents are served as JSON, with their links:

	curl localhost:9090/documents/42?lang=de
	curl localhost:9090/documents/42/+links

The support listener, by default on :9911, serves the registered patterns
on /routes, and, when enabled with -enable-prometheus-metrics, the metrics
on /metrics.

# Extending traject

The applications can be declared in code, with custom models, factories
and views, and served with the same stack by setting Options.Root and
Options.CustomViews, or by using the routing and dispatch packages
directly.
*/
package traject
